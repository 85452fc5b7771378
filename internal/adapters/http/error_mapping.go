package httpadapter

import "net/http"

// statusForCode maps stream error codes to HTTP statuses for the
// non-streaming endpoint. Streaming clients get the code inside the error
// event instead.
func statusForCode(code string) int {
	switch code {
	case "invalid_query", "invalid_k":
		return http.StatusBadRequest
	case "query_too_long":
		return http.StatusRequestEntityTooLarge
	case "index_not_found", "index_corrupt":
		return http.StatusServiceUnavailable
	case "embedding_backend_error", "generation_failure":
		return http.StatusBadGateway
	case "timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
