package ports

import (
	"context"

	"github.com/geogli/chatbot/internal/core/domain"
)

// DocumentLoader extracts plain text and best-effort metadata from one file.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*domain.Document, error)
}

// Chunker splits extracted text into overlapping word windows.
type Chunker interface {
	Chunk(doc *domain.Document) ([]domain.Chunk, error)
}

// Embedder builds vectors for chunk batches and single queries. All vectors
// produced by one embedder share dimensionality and backend identity.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Identity() string
}

// VectorSearcher answers nearest-neighbor queries over a published index.
type VectorSearcher interface {
	Search(queryVector []float32, k int) ([]domain.RetrievedChunk, error)
}

// AnswerStreamer is the text-generation capability: a lazy fragment sequence
// for the answer. Fragments arrive on the channel until it closes; a
// generation failure is delivered as the final element.
type AnswerStreamer interface {
	StreamAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk, history []domain.Turn) (<-chan Fragment, error)
}

// Fragment is one incremental piece of generated text.
type Fragment struct {
	Text string
	Err  error
}

// StructuredSource is the narrow capability interface to the structured-data
// route. ErrRouteUnavailable is a normal, expected outcome.
type StructuredSource interface {
	QueryStructured(ctx context.Context, query string, hints domain.SearchHints) (*domain.StructuredResult, error)
}

// SessionStore persists bounded per-session turn history.
type SessionStore interface {
	AppendTurn(ctx context.Context, turn domain.Turn) error
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	EvictInactive(ctx context.Context) (int, error)
}

// IndexNotifier broadcasts that a fresh index has been persisted so serving
// processes can reload and swap it.
type IndexNotifier interface {
	PublishIndexRebuilt(ctx context.Context) error
	SubscribeIndexRebuilt(ctx context.Context, handler func(context.Context) error) error
	Close()
}
