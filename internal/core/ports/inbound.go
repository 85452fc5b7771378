package ports

import (
	"context"

	"github.com/geogli/chatbot/internal/core/domain"
)

// CorpusIngestor is the inbound contract for (re)building the index from a
// corpus directory.
type CorpusIngestor interface {
	Ingest(ctx context.Context, corpusRoot string, rebuild bool) (*domain.IngestionReport, error)
}

// QueryStreamer is the inbound contract for answering one query as an
// ordered event stream. The returned channel carries zero or more token
// events followed by exactly one terminal event, then closes.
type QueryStreamer interface {
	Stream(ctx context.Context, query domain.Query) (<-chan domain.StreamEvent, string)
}
