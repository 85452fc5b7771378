package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geogli/chatbot/internal/core/domain"
	"github.com/geogli/chatbot/internal/core/ports"
	"github.com/geogli/chatbot/internal/infrastructure/vector/flat"
)

// Router resolves one query to a route outcome: structured data, retrieved
// context, or a confident refusal. It advances through a fixed lifecycle and
// logs every transition, so a stuck query is diagnosable from logs alone.
type Router struct {
	embedder   ports.Embedder
	searcher   ports.VectorSearcher
	structured ports.StructuredSource
	cfg        RouterConfig
	logger     *slog.Logger
}

type RouterConfig struct {
	TopKDefault   int
	TopKMax       int
	MaxQueryChars int
	MinScore      float64

	// EmbedTimeout bounds the query embedding call alone; zero leaves the
	// caller's deadline in charge.
	EmbedTimeout time.Duration
}

func NewRouter(
	embedder ports.Embedder,
	searcher ports.VectorSearcher,
	structured ports.StructuredSource,
	cfg RouterConfig,
	logger *slog.Logger,
) *Router {
	if cfg.TopKDefault <= 0 {
		cfg.TopKDefault = 6
	}
	if cfg.TopKMax <= 0 {
		cfg.TopKMax = 20
	}
	if cfg.MaxQueryChars <= 0 {
		cfg.MaxQueryChars = 4000
	}
	if cfg.MinScore == 0 {
		cfg.MinScore = 0.3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		embedder:   embedder,
		searcher:   searcher,
		structured: structured,
		cfg:        cfg,
		logger:     logger,
	}
}

// Normalize validates the query and fills defaults. A missing session id is
// minted here so the whole turn shares one id.
func (r *Router) Normalize(q domain.Query) (domain.Query, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return q, domain.WrapError(domain.ErrInvalidQuery, "normalize query", fmt.Errorf("empty query"))
	}
	if len(q.Text) > r.cfg.MaxQueryChars {
		return q, domain.WrapError(
			domain.ErrQueryTooLong,
			"normalize query",
			fmt.Errorf("query length %d exceeds %d", len(q.Text), r.cfg.MaxQueryChars),
		)
	}
	if q.TopK == 0 {
		q.TopK = r.cfg.TopKDefault
	}
	if q.TopK < 1 || q.TopK > r.cfg.TopKMax {
		return q, domain.WrapError(
			domain.ErrInvalidK,
			"normalize query",
			fmt.Errorf("top_k %d outside 1..%d", q.TopK, r.cfg.TopKMax),
		)
	}
	if q.Hint == "" {
		q.Hint = domain.HintAuto
	}
	if q.SessionID == "" {
		q.SessionID = uuid.NewString()
	}
	return q, nil
}

// Resolve runs the routing lifecycle for an already-normalized query.
func (r *Router) Resolve(ctx context.Context, q domain.Query, history []domain.Turn) (domain.RouteResult, error) {
	log := r.logger.With(slog.String("session_id", q.SessionID))
	log.Debug("route lifecycle", slog.String("state", string(domain.StateReceived)))

	hints := extractHints(q.Text, history)

	if q.Hint != domain.HintRetrieval && wantsStructured(q.Hint, q.Text) {
		log.Debug("route lifecycle",
			slog.String("state", string(domain.StateRouteSelected)),
			slog.String("route", string(domain.RouteStructured)),
		)
		result, err := r.structured.QueryStructured(ctx, q.Text, hints)
		if err == nil {
			log.Debug("route lifecycle", slog.String("state", string(domain.StateContextGathered)))
			return domain.RouteResult{Kind: domain.RouteStructured, Structured: result}, nil
		}
		if !domain.IsKind(err, domain.ErrRouteUnavailable) {
			return domain.RouteResult{}, err
		}
		log.Debug("structured route unavailable, falling back to retrieval")
	}

	log.Debug("route lifecycle",
		slog.String("state", string(domain.StateRouteSelected)),
		slog.String("route", string(domain.RouteRetrieval)),
	)
	return r.retrieve(ctx, q, hints, log)
}

func (r *Router) retrieve(ctx context.Context, q domain.Query, hints domain.SearchHints, log *slog.Logger) (domain.RouteResult, error) {
	embedCtx := ctx
	if r.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.cfg.EmbedTimeout)
		defer cancel()
	}
	vector, err := r.embedder.EmbedQuery(embedCtx, q.Text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.RouteResult{}, domain.WrapError(domain.ErrTimeout, "embed query", err)
		}
		return domain.RouteResult{}, err
	}
	flat.Normalize(vector)

	// Over-fetch when hints are set so preferring matching chunks still
	// leaves enough candidates. Hints never exclude anything.
	fetchK := q.TopK
	if !hints.Empty() {
		fetchK = q.TopK * 3
		if fetchK > r.cfg.TopKMax {
			fetchK = r.cfg.TopKMax
		}
		if fetchK < q.TopK {
			fetchK = q.TopK
		}
	}

	retrieved, err := r.searcher.Search(vector, fetchK)
	if err != nil {
		return domain.RouteResult{}, err
	}
	log.Debug("route lifecycle",
		slog.String("state", string(domain.StateContextGathered)),
		slog.Int("retrieved", len(retrieved)),
	)

	if len(retrieved) == 0 {
		return domain.RouteResult{
			Kind:   domain.RouteCannotAnswer,
			Reason: "No relevant documents found in knowledge base",
		}, nil
	}

	chunks := preferMatching(retrieved, hints, q.TopK)

	confident := chunks[:0:len(chunks)]
	for _, rc := range chunks {
		if rc.Score > r.cfg.MinScore {
			confident = append(confident, rc)
		}
	}
	if len(confident) == 0 {
		return domain.RouteResult{
			Kind:   domain.RouteCannotAnswer,
			Reason: "Retrieved documents have low confidence scores",
		}, nil
	}

	return domain.RouteResult{Kind: domain.RouteRetrieval, Chunks: confident}, nil
}

// Plan derives citations and source links from a route result. Known
// synchronously; the answer text arrives later from the stream.
func (r *Router) Plan(q domain.Query, result domain.RouteResult) domain.AnswerPlan {
	plan := domain.AnswerPlan{
		SessionID:   q.SessionID,
		Route:       result.Kind,
		SourceLinks: []string{},
	}
	if result.Kind == domain.RouteStructured && result.Structured != nil {
		plan.SourceLinks = append(plan.SourceLinks, result.Structured.SourceLinks...)
		return plan
	}

	seen := make(map[string]bool)
	for _, rc := range result.Chunks {
		source := rc.Chunk.Meta.Source
		if source == "" {
			continue
		}
		link := source
		if !strings.HasPrefix(source, "http") {
			link = fmt.Sprintf("%s#chunk%d", source, rc.Chunk.Ordinal)
		}
		if !seen[link] {
			seen[link] = true
			plan.SourceLinks = append(plan.SourceLinks, link)
		}
		plan.Citations = append(plan.Citations, domain.Citation{
			DocumentID: rc.Chunk.DocumentID,
			Source:     source,
			Ordinal:    rc.Chunk.Ordinal,
			Score:      rc.Score,
		})
	}
	return plan
}

// preferMatching stably reorders retrieved chunks so hint matches come
// first, then truncates to k. Relative score order is kept within both
// groups.
func preferMatching(retrieved []domain.RetrievedChunk, hints domain.SearchHints, k int) []domain.RetrievedChunk {
	if hints.Empty() {
		if len(retrieved) > k {
			retrieved = retrieved[:k]
		}
		return retrieved
	}

	out := make([]domain.RetrievedChunk, 0, len(retrieved))
	for _, rc := range retrieved {
		if hints.Matches(rc.Chunk.Meta) {
			out = append(out, rc)
		}
	}
	for _, rc := range retrieved {
		if !hints.Matches(rc.Chunk.Meta) {
			out = append(out, rc)
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// wantsStructured decides whether the structured route should be tried
// first. Explicit hint A always tries it; auto tries it only for queries
// that read like indicator value lookups.
func wantsStructured(hint domain.RouteHint, query string) bool {
	if hint == domain.HintStructured {
		return true
	}
	if hint != domain.HintAuto {
		return false
	}
	lower := strings.ToLower(query)
	for _, marker := range []string{"15.3.1", "value of", "how much", "proportion of", "percentage of"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
