package flat

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/geogli/chatbot/internal/core/domain"
)

const formatVersion = 1

// Index is a flat inner-product index over chunk vectors. Vectors are
// expected L2-normalized, so inner product equals cosine similarity. The
// index is immutable after Build/Load except for Append during incremental
// ingestion, which only the ingestion pipeline performs before publishing.
type Index struct {
	backend string
	dim     int

	vectors [][]float32
	chunks  []domain.Chunk

	// content hash per ingested document, for incremental change detection.
	docHashes map[string]string
}

type persistedIndex struct {
	FormatVersion int
	Backend       string
	Dim           int
	Vectors       [][]float32
	Chunks        []domain.Chunk
	DocHashes     map[string]string
}

// Build constructs an index wholesale from parallel chunk and vector slices.
func Build(backend string, chunks []domain.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, domain.WrapError(
			domain.ErrDimensionMismatch,
			"build index",
			fmt.Errorf("chunks/vectors length mismatch: %d/%d", len(chunks), len(vectors)),
		)
	}
	idx := &Index{
		backend:   backend,
		docHashes: make(map[string]string),
	}
	if err := idx.Append(chunks, vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

// Append adds chunks and vectors, validating dimensionality against the
// first vector seen.
func (idx *Index) Append(chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return domain.WrapError(
			domain.ErrDimensionMismatch,
			"append to index",
			fmt.Errorf("chunks/vectors length mismatch: %d/%d", len(chunks), len(vectors)),
		)
	}
	for i, v := range vectors {
		if idx.dim == 0 {
			idx.dim = len(v)
		}
		if len(v) != idx.dim {
			return domain.WrapError(
				domain.ErrDimensionMismatch,
				"append to index",
				fmt.Errorf("vector %d has dim %d, index dim %d", i, len(v), idx.dim),
			)
		}
	}
	idx.vectors = append(idx.vectors, vectors...)
	idx.chunks = append(idx.chunks, chunks...)
	return nil
}

// SetDocumentHash records the content hash of an ingested document.
func (idx *Index) SetDocumentHash(documentID, hash string) {
	if idx.docHashes == nil {
		idx.docHashes = make(map[string]string)
	}
	idx.docHashes[documentID] = hash
}

// DocumentHash returns the stored content hash for a document, if any.
func (idx *Index) DocumentHash(documentID string) (string, bool) {
	h, ok := idx.docHashes[documentID]
	return h, ok
}

// RemoveDocument drops all chunks of one document, used before re-appending
// a changed document during incremental ingestion.
func (idx *Index) RemoveDocument(documentID string) {
	chunks := idx.chunks[:0]
	vectors := idx.vectors[:0]
	for i, c := range idx.chunks {
		if c.DocumentID == documentID {
			continue
		}
		chunks = append(chunks, c)
		vectors = append(vectors, idx.vectors[i])
	}
	idx.chunks = chunks
	idx.vectors = vectors
	delete(idx.docHashes, documentID)
}

func (idx *Index) Len() int        { return len(idx.chunks) }
func (idx *Index) Dim() int        { return idx.dim }
func (idx *Index) Backend() string { return idx.backend }

// ChunkIDs returns all chunk ids in insertion order.
func (idx *Index) ChunkIDs() []string {
	ids := make([]string, len(idx.chunks))
	for i, c := range idx.chunks {
		ids[i] = c.ID
	}
	return ids
}

// Search returns up to k chunks ordered by descending similarity, ties
// broken by insertion order.
func (idx *Index) Search(queryVector []float32, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidK, "search index", fmt.Errorf("k=%d", k))
	}
	if len(idx.vectors) == 0 {
		return nil, nil
	}
	if len(queryVector) != idx.dim {
		return nil, domain.WrapError(
			domain.ErrDimensionMismatch,
			"search index",
			fmt.Errorf("query dim %d, index dim %d", len(queryVector), idx.dim),
		)
	}

	order := make([]int, len(idx.vectors))
	scores := make([]float64, len(idx.vectors))
	for i, v := range idx.vectors {
		order[i] = i
		scores[i] = dot(v, queryVector)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make([]domain.RetrievedChunk, 0, k)
	for _, i := range order[:k] {
		out = append(out, domain.RetrievedChunk{Chunk: idx.chunks[i], Score: scores[i]})
	}
	return out, nil
}

// Save persists the index with a versioned header so a mismatched embedding
// backend is detected at load time instead of silently misused.
func (idx *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	payload := persistedIndex{
		FormatVersion: formatVersion,
		Backend:       idx.backend,
		Dim:           idx.dim,
		Vectors:       idx.vectors,
		Chunks:        idx.chunks,
		DocHashes:     idx.docHashes,
	}
	if err := gob.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish index file: %w", err)
	}
	return nil
}

// Load reads a persisted index. A missing file is ErrIndexNotFound, anything
// undecodable or internally inconsistent is ErrIndexCorrupt; an empty index
// is never fabricated silently.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrIndexNotFound, "load index", err)
		}
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var payload persistedIndex
	if err := gob.NewDecoder(f).Decode(&payload); err != nil {
		return nil, domain.WrapError(domain.ErrIndexCorrupt, "load index", err)
	}
	if payload.FormatVersion != formatVersion {
		return nil, domain.WrapError(
			domain.ErrIndexCorrupt,
			"load index",
			fmt.Errorf("unsupported format version %d", payload.FormatVersion),
		)
	}
	if len(payload.Vectors) != len(payload.Chunks) {
		return nil, domain.WrapError(
			domain.ErrIndexCorrupt,
			"load index",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(payload.Vectors), len(payload.Chunks)),
		)
	}
	for i, v := range payload.Vectors {
		if len(v) != payload.Dim {
			return nil, domain.WrapError(
				domain.ErrIndexCorrupt,
				"load index",
				fmt.Errorf("vector %d has dim %d, header dim %d", i, len(v), payload.Dim),
			)
		}
	}

	idx := &Index{
		backend:   payload.Backend,
		dim:       payload.Dim,
		vectors:   payload.Vectors,
		chunks:    payload.Chunks,
		docHashes: payload.DocHashes,
	}
	if idx.docHashes == nil {
		idx.docHashes = make(map[string]string)
	}
	return idx, nil
}

// VerifyBackend fails when the serving embedder does not match the backend
// the index was built with.
func (idx *Index) VerifyBackend(identity string) error {
	if idx.backend != identity {
		return domain.WrapError(
			domain.ErrIndexCorrupt,
			"verify index backend",
			fmt.Errorf("index built with %q, serving embedder is %q", idx.backend, identity),
		)
	}
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
