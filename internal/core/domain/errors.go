package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuery       = errors.New("invalid query")
	ErrQueryTooLong       = errors.New("query too long")
	ErrInvalidChunkConfig = errors.New("invalid chunk config")
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrExtractionFailure  = errors.New("extraction failure")
	ErrEmbeddingBackend   = errors.New("embedding backend error")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrIndexNotFound      = errors.New("vector index not found")
	ErrIndexCorrupt       = errors.New("vector index corrupt")
	ErrInvalidK           = errors.New("invalid top-k")
	ErrRouteUnavailable   = errors.New("route unavailable")
	ErrGenerationFailure  = errors.New("generation failure")
	ErrTimeout            = errors.New("operation timed out")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorCode maps an error to the stable machine-readable code carried by the
// terminal error stream event. Internal causes stay in the logs.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrQueryTooLong):
		return "query_too_long"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrInvalidChunkConfig):
		return "invalid_chunk_config"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrExtractionFailure):
		return "extraction_failure"
	case errors.Is(err, ErrEmbeddingBackend):
		return "embedding_backend_error"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrIndexNotFound):
		return "index_not_found"
	case errors.Is(err, ErrIndexCorrupt):
		return "index_corrupt"
	case errors.Is(err, ErrInvalidK):
		return "invalid_k"
	case errors.Is(err, ErrGenerationFailure):
		return "generation_failure"
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTemporary):
		return "timeout"
	default:
		return "internal_error"
	}
}

// SafeMessage returns a user-presentable message for an error code.
func SafeMessage(err error) string {
	switch ErrorCode(err) {
	case "invalid_query":
		return "The query is empty."
	case "query_too_long":
		return "The query exceeds the maximum length."
	case "embedding_backend_error":
		return "The embedding service is unavailable. Please try again later."
	case "index_not_found", "index_corrupt":
		return "The knowledge base is not ready. Please contact the operator."
	case "generation_failure":
		return "Answer generation failed. Please try again."
	case "timeout":
		return "The request timed out. Please try again."
	default:
		return "Internal error. Please try again later."
	}
}
