package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/geogli/chatbot/internal/core/domain"
	"github.com/geogli/chatbot/internal/core/ports"
	"github.com/geogli/chatbot/internal/infrastructure/vector/flat"
)

var corpusExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".txt":      true,
}

// Ingestor walks a corpus directory and turns it into a persisted vector
// index. Per-document failures are recorded and skipped; only a total
// failure (unreadable corpus, no persistable index) aborts the run.
type Ingestor struct {
	loader    ports.DocumentLoader
	chunker   ports.Chunker
	embedder  ports.Embedder
	notifier  ports.IndexNotifier
	indexPath string
	batchSize int
	logger    *slog.Logger
}

type IngestorConfig struct {
	IndexPath string
	BatchSize int
}

func NewIngestor(
	loader ports.DocumentLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	notifier ports.IndexNotifier,
	cfg IngestorConfig,
	logger *slog.Logger,
) *Ingestor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		notifier:  notifier,
		indexPath: cfg.IndexPath,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

func (ing *Ingestor) Ingest(ctx context.Context, corpusRoot string, rebuild bool) (*domain.IngestionReport, error) {
	start := time.Now()
	report := &domain.IngestionReport{}

	idx := ing.openIndex(rebuild)

	err := filepath.WalkDir(corpusRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !corpusExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		changed, chunkCount, docErr := ing.ingestDocument(ctx, idx, path)
		if docErr != nil {
			ing.logger.Warn("document skipped",
				slog.String("path", path),
				slog.String("reason", docErr.Error()),
			)
			report.DocumentsSkipped = append(report.DocumentsSkipped, domain.SkippedDocument{
				Path:   path,
				Reason: docErr.Error(),
			})
			return nil
		}
		if changed {
			report.DocumentsProcessed++
			report.ChunksProduced += chunkCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus %s: %w", corpusRoot, err)
	}

	if err := idx.Save(ing.indexPath); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	if ing.notifier != nil && report.DocumentsProcessed > 0 {
		if err := ing.notifier.PublishIndexRebuilt(ctx); err != nil {
			ing.logger.Warn("index rebuilt notification failed", slog.String("error", err.Error()))
		}
	}

	report.Elapsed = time.Since(start)
	ing.logger.Info("ingestion run finished",
		slog.Int("processed", report.DocumentsProcessed),
		slog.Int("skipped", len(report.DocumentsSkipped)),
		slog.Int("chunks", report.ChunksProduced),
		slog.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// openIndex loads the existing index for incremental runs. A missing,
// corrupt, or backend-mismatched index degrades to a fresh build.
func (ing *Ingestor) openIndex(rebuild bool) *flat.Index {
	fresh, _ := flat.Build(ing.embedder.Identity(), nil, nil)
	if rebuild {
		return fresh
	}

	idx, err := flat.Load(ing.indexPath)
	if err != nil {
		if !domain.IsKind(err, domain.ErrIndexNotFound) {
			ing.logger.Warn("existing index unusable, rebuilding", slog.String("error", err.Error()))
		}
		return fresh
	}
	if err := idx.VerifyBackend(ing.embedder.Identity()); err != nil {
		ing.logger.Warn("index backend changed, rebuilding", slog.String("error", err.Error()))
		return fresh
	}
	return idx
}

// ingestDocument loads, chunks, embeds, and indexes one file. The boolean
// reports whether the index changed; unchanged documents are a no-op.
func (ing *Ingestor) ingestDocument(ctx context.Context, idx *flat.Index, path string) (bool, int, error) {
	doc, err := ing.loader.Load(ctx, path)
	if err != nil {
		return false, 0, err
	}

	if prev, ok := idx.DocumentHash(doc.ID); ok && prev == doc.ContentHash {
		ing.logger.Debug("document unchanged", slog.String("path", path))
		return false, 0, nil
	}

	chunks, err := ing.chunker.Chunk(doc)
	if err != nil {
		return false, 0, err
	}

	vectors := make([][]float32, 0, len(chunks))
	for offset := 0; offset < len(chunks); offset += ing.batchSize {
		end := offset + ing.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-offset)
		for _, c := range chunks[offset:end] {
			texts = append(texts, c.Text)
		}
		batch, err := ing.embedder.Embed(ctx, texts)
		if err != nil {
			return false, 0, err
		}
		for _, v := range batch {
			vectors = append(vectors, flat.Normalize(v))
		}
	}

	idx.RemoveDocument(doc.ID)
	if err := idx.Append(chunks, vectors); err != nil {
		return false, 0, err
	}
	idx.SetDocumentHash(doc.ID, doc.ContentHash)
	return true, len(chunks), nil
}
