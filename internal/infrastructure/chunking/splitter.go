package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/geogli/chatbot/internal/core/domain"
)

// Splitter emits overlapping fixed-size word windows. Emission order is
// deterministic for identical input and configuration, so chunk ids are
// reproducible across re-ingestion runs.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, domain.WrapError(
			domain.ErrInvalidChunkConfig,
			"new splitter",
			fmt.Errorf("chunk_size=%d overlap=%d", chunkSize, overlap),
		)
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}, nil
}

func (s *Splitter) Chunk(doc *domain.Document) ([]domain.Chunk, error) {
	if s.ChunkSize <= 0 || s.Overlap < 0 || s.Overlap >= s.ChunkSize {
		return nil, domain.WrapError(
			domain.ErrInvalidChunkConfig,
			"chunk document",
			fmt.Errorf("chunk_size=%d overlap=%d", s.ChunkSize, s.Overlap),
		)
	}

	words := strings.Fields(doc.Text)
	if len(words) == 0 {
		return nil, nil
	}

	step := s.ChunkSize - s.Overlap
	out := make([]domain.Chunk, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := start + s.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		out = append(out, domain.Chunk{
			ID:         ChunkID(doc.ID, start),
			DocumentID: doc.ID,
			Ordinal:    len(out),
			WordOffset: start,
			WordCount:  end - start,
			Text:       strings.Join(words[start:end], " "),
			Meta:       doc.Meta,
		})
		if end == len(words) {
			break
		}
	}
	return out, nil
}

// ChunkID derives a stable chunk identifier from the source document id and
// the chunk's word offset.
func ChunkID(documentID string, wordOffset int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, wordOffset)))
	return hex.EncodeToString(sum[:8])
}
