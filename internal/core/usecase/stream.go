package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/geogli/chatbot/internal/core/domain"
	"github.com/geogli/chatbot/internal/core/ports"
)

const cannotAnswerText = "I can't answer confidently with current sources. " +
	"Please provide more specific information about location, time, or indicator."

// Streamer turns one query into an ordered event stream: zero or more token
// events followed by exactly one terminal event. The channel closes right
// after the terminal event; client disconnects cancel the context and stop
// generation.
type Streamer struct {
	router   *Router
	answerer ports.AnswerStreamer
	sessions ports.SessionStore
	cfg      StreamerConfig
	logger   *slog.Logger
}

type StreamerConfig struct {
	HistoryLimit  int
	RouteTimeout  time.Duration
	AnswerTimeout time.Duration
}

func NewStreamer(
	router *Router,
	answerer ports.AnswerStreamer,
	sessions ports.SessionStore,
	cfg StreamerConfig,
	logger *slog.Logger,
) *Streamer {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	if cfg.RouteTimeout <= 0 {
		cfg.RouteTimeout = 20 * time.Second
	}
	if cfg.AnswerTimeout <= 0 {
		cfg.AnswerTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{
		router:   router,
		answerer: answerer,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// Stream validates the query and starts the answer pipeline. The returned
// session id is known immediately so transports can expose it before the
// first event.
func (s *Streamer) Stream(ctx context.Context, query domain.Query) (<-chan domain.StreamEvent, string) {
	events := make(chan domain.StreamEvent)

	normalized, err := s.router.Normalize(query)
	if err != nil {
		go func() {
			defer close(events)
			emit(ctx, events, domain.ErrorEvent(domain.ErrorCode(err), domain.SafeMessage(err)))
		}()
		return events, normalized.SessionID
	}

	go s.run(ctx, normalized, events)
	return events, normalized.SessionID
}

func (s *Streamer) run(ctx context.Context, q domain.Query, events chan<- domain.StreamEvent) {
	defer close(events)
	start := time.Now()
	log := s.logger.With(slog.String("session_id", q.SessionID))

	history, err := s.sessions.RecentTurns(ctx, q.SessionID, s.cfg.HistoryLimit)
	if err != nil {
		log.Warn("session history unavailable", slog.String("error", err.Error()))
		history = nil
	}
	if err := s.sessions.AppendTurn(ctx, domain.Turn{
		SessionID: q.SessionID,
		Role:      domain.RoleUser,
		Content:   q.Text,
	}); err != nil {
		log.Warn("persist user turn failed", slog.String("error", err.Error()))
	}

	routeCtx, cancelRoute := context.WithTimeout(ctx, s.cfg.RouteTimeout)
	result, err := s.router.Resolve(routeCtx, q, history)
	cancelRoute()
	if err != nil {
		s.fail(ctx, events, log, err)
		return
	}

	plan := s.router.Plan(q, result)
	log.Debug("route lifecycle",
		slog.String("state", string(domain.StateAnswerPlanned)),
		slog.String("route", string(result.Kind)),
	)
	answer := domain.Answer{
		SessionID:   q.SessionID,
		SourceLinks: plan.SourceLinks,
		Citations:   plan.Citations,
		Route:       result.Kind,
	}

	switch result.Kind {
	case domain.RouteCannotAnswer:
		answer.Text = cannotAnswerText
		if result.Reason != "" {
			answer.Text += " (Reason: " + result.Reason + ")"
		}
	case domain.RouteStructured:
		answer.Text = result.Structured.Answer
	case domain.RouteRetrieval:
		text, err := s.streamTokens(ctx, q, result.Chunks, history, events)
		if err != nil {
			s.fail(ctx, events, log, err)
			return
		}
		if ctx.Err() != nil {
			log.Debug("client gone before final event")
			return
		}
		answer.Text = text
	}

	if err := s.sessions.AppendTurn(ctx, domain.Turn{
		SessionID: q.SessionID,
		Role:      domain.RoleAssistant,
		Content:   answer.Text,
	}); err != nil {
		log.Warn("persist assistant turn failed", slog.String("error", err.Error()))
	}

	answer.LatencyMS = time.Since(start).Milliseconds()
	emit(ctx, events, domain.FinalEvent(answer))
	log.Debug("route lifecycle", slog.String("state", string(domain.StateDone)))
	log.Info("query answered",
		slog.String("route", string(answer.Route)),
		slog.Int64("latency_ms", answer.LatencyMS),
	)
}

// streamTokens forwards generation fragments as token events and returns the
// accumulated answer text.
func (s *Streamer) streamTokens(
	ctx context.Context,
	q domain.Query,
	chunks []domain.RetrievedChunk,
	history []domain.Turn,
	events chan<- domain.StreamEvent,
) (string, error) {
	answerCtx, cancel := context.WithTimeout(ctx, s.cfg.AnswerTimeout)
	defer cancel()

	fragments, err := s.answerer.StreamAnswer(answerCtx, q.Text, chunks, history)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return sb.String(), nil
		case fragment, ok := <-fragments:
			if !ok {
				return sb.String(), nil
			}
			if fragment.Err != nil {
				return "", fragment.Err
			}
			sb.WriteString(fragment.Text)
			if !emit(ctx, events, domain.TokenEvent(fragment.Text)) {
				return sb.String(), nil
			}
		}
	}
}

func (s *Streamer) fail(ctx context.Context, events chan<- domain.StreamEvent, log *slog.Logger, err error) {
	log.Error("query failed",
		slog.String("state", string(domain.StateError)),
		slog.String("code", domain.ErrorCode(err)),
		slog.String("error", err.Error()),
	)
	emit(ctx, events, domain.ErrorEvent(domain.ErrorCode(err), domain.SafeMessage(err)))
}

// emit delivers one event unless the consumer is gone.
func emit(ctx context.Context, events chan<- domain.StreamEvent, e domain.StreamEvent) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
