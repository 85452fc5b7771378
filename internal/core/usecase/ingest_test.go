package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/geogli/chatbot/internal/core/domain"
	"github.com/geogli/chatbot/internal/core/ports"
	"github.com/geogli/chatbot/internal/infrastructure/chunking"
	"github.com/geogli/chatbot/internal/infrastructure/loader"
	"github.com/geogli/chatbot/internal/infrastructure/vector/flat"
)

type fakeEmbedder struct {
	identity string
	fail     bool
	calls    int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, domain.WrapError(domain.ErrEmbeddingBackend, "fake embed", errors.New("backend down"))
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		// Deterministic toy embedding from text length and first byte.
		var first float32
		if len(text) > 0 {
			first = float32(text[0])
		}
		out[i] = []float32{float32(len(text)), first, 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) Identity() string { return f.identity }

type fakeNotifier struct {
	published int
}

func (f *fakeNotifier) PublishIndexRebuilt(context.Context) error { f.published++; return nil }
func (f *fakeNotifier) SubscribeIndexRebuilt(context.Context, func(context.Context) error) error {
	return nil
}
func (f *fakeNotifier) Close() {}

func newTestIngestor(t *testing.T, indexPath string, embedder *fakeEmbedder, notifier ports.IndexNotifier) *Ingestor {
	t.Helper()
	splitter, err := chunking.NewSplitter(5, 1)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	return NewIngestor(loader.New(), splitter, embedder, notifier, IngestorConfig{
		IndexPath: indexPath,
		BatchSize: 2,
	}, nil)
}

func writeCorpus(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestIngestBuildsIndexAndNotifies(t *testing.T) {
	corpus := t.TempDir()
	writeCorpus(t, corpus, map[string]string{
		"jordan-2019.txt":  "Soil organic carbon declined across rangelands between 2015 and 2019.",
		"mongolia-sdg.txt": "Land productivity dynamics show degradation hotspots in the steppe.",
	})
	indexPath := filepath.Join(t.TempDir(), "corpus.idx")
	notifier := &fakeNotifier{}

	ing := newTestIngestor(t, indexPath, &fakeEmbedder{identity: "fake/embed"}, notifier)
	report, err := ing.Ingest(context.Background(), corpus, false)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.DocumentsProcessed != 2 {
		t.Errorf("DocumentsProcessed = %d, want 2", report.DocumentsProcessed)
	}
	if len(report.DocumentsSkipped) != 0 {
		t.Errorf("DocumentsSkipped = %v, want none", report.DocumentsSkipped)
	}
	if report.ChunksProduced == 0 {
		t.Errorf("expected chunks to be produced")
	}
	if notifier.published != 1 {
		t.Errorf("published = %d, want 1", notifier.published)
	}
	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index file missing: %v", err)
	}
}

func TestIngestThenResolveRetrievesFirstChunk(t *testing.T) {
	corpus := t.TempDir()
	writeCorpus(t, corpus, map[string]string{
		"soc.txt": "Land degradation reduces soil organic carbon.",
	})
	indexPath := filepath.Join(t.TempDir(), "corpus.idx")
	embedder := &fakeEmbedder{identity: "fake/embed"}
	ing := newTestIngestor(t, indexPath, embedder, nil)

	if _, err := ing.Ingest(context.Background(), corpus, false); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	idx, err := flat.Load(indexPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := idx.VerifyBackend("fake/embed"); err != nil {
		t.Fatalf("VerifyBackend() error = %v", err)
	}
	// Six words, windows of five with overlap one.
	if idx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 chunks", idx.Len())
	}

	r := NewRouter(embedder, idx, &fakeStructured{}, RouterConfig{
		TopKDefault:   6,
		TopKMax:       20,
		MaxQueryChars: 4000,
		MinScore:      0.3,
	}, nil)
	result, err := r.Resolve(context.Background(), domain.Query{
		Text:      "Land degradation reduces soil organic",
		SessionID: "s",
		Hint:      domain.HintRetrieval,
		TopK:      1,
	}, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Kind != domain.RouteRetrieval {
		t.Fatalf("Kind = %s, want retrieval", result.Kind)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("chunks = %d, want top_k=1", len(result.Chunks))
	}
	top := result.Chunks[0]
	if top.Chunk.Text != "Land degradation reduces soil organic" {
		t.Errorf("top chunk = %q, want the first window", top.Chunk.Text)
	}
	if top.Chunk.Ordinal != 0 {
		t.Errorf("ordinal = %d, want 0", top.Chunk.Ordinal)
	}
	if top.Score < 0.99 {
		t.Errorf("score = %f, want ~1 for an exact window match", top.Score)
	}
}

func TestIngestIsIdempotentOnUnchangedCorpus(t *testing.T) {
	corpus := t.TempDir()
	writeCorpus(t, corpus, map[string]string{
		"jordan-2019.txt": "Soil organic carbon declined across rangelands.",
	})
	indexPath := filepath.Join(t.TempDir(), "corpus.idx")
	embedder := &fakeEmbedder{identity: "fake/embed"}
	notifier := &fakeNotifier{}
	ing := newTestIngestor(t, indexPath, embedder, notifier)

	if _, err := ing.Ingest(context.Background(), corpus, false); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	embedsAfterFirst := embedder.calls

	report, err := ing.Ingest(context.Background(), corpus, false)
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if report.DocumentsProcessed != 0 {
		t.Errorf("second run processed = %d, want 0", report.DocumentsProcessed)
	}
	if embedder.calls != embedsAfterFirst {
		t.Errorf("second run re-embedded unchanged documents")
	}
	if notifier.published != 1 {
		t.Errorf("published = %d, want 1 (no notify on no-op run)", notifier.published)
	}
}

func TestIngestReembedsChangedDocument(t *testing.T) {
	corpus := t.TempDir()
	writeCorpus(t, corpus, map[string]string{
		"jordan-2019.txt": "Soil organic carbon declined.",
	})
	indexPath := filepath.Join(t.TempDir(), "corpus.idx")
	ing := newTestIngestor(t, indexPath, &fakeEmbedder{identity: "fake/embed"}, nil)

	if _, err := ing.Ingest(context.Background(), corpus, false); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}

	writeCorpus(t, corpus, map[string]string{
		"jordan-2019.txt": "Soil organic carbon declined sharply in the north.",
	})
	report, err := ing.Ingest(context.Background(), corpus, false)
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if report.DocumentsProcessed != 1 {
		t.Errorf("processed = %d, want 1 changed document", report.DocumentsProcessed)
	}
}

func TestIngestSkipsFailingDocumentsAndContinues(t *testing.T) {
	corpus := t.TempDir()
	writeCorpus(t, corpus, map[string]string{
		"ok.txt":     "Land productivity is a sub-indicator of SDG 15.3.1.",
		"broken.pdf": "this is not a pdf",
	})
	indexPath := filepath.Join(t.TempDir(), "corpus.idx")
	ing := newTestIngestor(t, indexPath, &fakeEmbedder{identity: "fake/embed"}, nil)

	report, err := ing.Ingest(context.Background(), corpus, false)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.DocumentsProcessed != 1 {
		t.Errorf("processed = %d, want 1", report.DocumentsProcessed)
	}
	if len(report.DocumentsSkipped) != 1 {
		t.Fatalf("skipped = %v, want exactly the broken pdf", report.DocumentsSkipped)
	}
	if filepath.Base(report.DocumentsSkipped[0].Path) != "broken.pdf" {
		t.Errorf("skipped path = %s, want broken.pdf", report.DocumentsSkipped[0].Path)
	}
}

func TestIngestEmbedFailureSkipsDocument(t *testing.T) {
	corpus := t.TempDir()
	writeCorpus(t, corpus, map[string]string{
		"doc.txt": "Soil organic carbon stock.",
	})
	indexPath := filepath.Join(t.TempDir(), "corpus.idx")
	ing := newTestIngestor(t, indexPath, &fakeEmbedder{identity: "fake/embed", fail: true}, nil)

	report, err := ing.Ingest(context.Background(), corpus, false)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.DocumentsProcessed != 0 || len(report.DocumentsSkipped) != 1 {
		t.Fatalf("report = %+v, want the document skipped", report)
	}
}
