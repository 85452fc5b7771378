package flat

import (
	"sync/atomic"

	"github.com/geogli/chatbot/internal/core/domain"
)

// Handle is the process-wide publication point for the served index.
// Ingestion builds a complete index and swaps it in atomically, so readers
// never observe a half-written index.
type Handle struct {
	current atomic.Pointer[Index]
}

func NewHandle() *Handle {
	return &Handle{}
}

// Publish swaps in a fully built index.
func (h *Handle) Publish(idx *Index) {
	h.current.Store(idx)
}

// Ready reports whether an index has been published.
func (h *Handle) Ready() bool {
	return h.current.Load() != nil
}

// Search delegates to the currently published index.
func (h *Handle) Search(queryVector []float32, k int) ([]domain.RetrievedChunk, error) {
	idx := h.current.Load()
	if idx == nil {
		return nil, domain.WrapError(domain.ErrIndexNotFound, "search index", errNoIndex)
	}
	return idx.Search(queryVector, k)
}

var errNoIndex = errNotPublished{}

type errNotPublished struct{}

func (errNotPublished) Error() string { return "no index published" }
