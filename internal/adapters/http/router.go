package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geogli/chatbot/internal/core/domain"
	"github.com/geogli/chatbot/internal/core/ports"
	"github.com/geogli/chatbot/internal/observability/metrics"
)

const sessionIDHeader = "X-Session-Id"

// ReadyChecker reports whether the serving index has been published.
type ReadyChecker interface {
	Ready() bool
}

type Router struct {
	streamer ports.QueryStreamer
	ready    ReadyChecker
	metrics  *metrics.HTTPServerMetrics
	cfg      RouterConfig
	logger   *slog.Logger
}

type RouterConfig struct {
	ServiceName     string
	AllowedOrigins  string
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	OverloadTimeout time.Duration
}

func NewRouter(
	streamer ports.QueryStreamer,
	ready ReadyChecker,
	m *metrics.HTTPServerMetrics,
	cfg RouterConfig,
	logger *slog.Logger,
) *Router {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api"
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 64
	}
	if cfg.OverloadTimeout <= 0 {
		cfg.OverloadTimeout = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		streamer: streamer,
		ready:    ready,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/query/stream", rt.streamQuery)
	mux.HandleFunc("/query", rt.query)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.OverloadTimeout)
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	handler = corsMiddleware(handler, rt.cfg.AllowedOrigins)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler, rt.logger)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !rt.ready.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "index not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// streamQuery serves GET /query/stream as Server-Sent Events: token events
// while the answer is generated, then exactly one final or error event.
func (rt *Router) streamQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query, ok := rt.queryFromParams(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	events, sessionID := rt.streamer.Stream(r.Context(), query)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if sessionID != "" {
		w.Header().Set(sessionIDHeader, sessionID)
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		if rt.metrics != nil {
			rt.metrics.RecordStreamEvent(rt.cfg.ServiceName, string(event.Type))
			rt.recordQueryOutcome(event)
		}
		if err := writeSSE(w, event); err != nil {
			// Client is gone; the request context cancellation stops
			// the pipeline.
			return
		}
		flusher.Flush()
	}
}

// recordQueryOutcome observes route, retrieved context size, and latency
// once per query, on the final event.
func (rt *Router) recordQueryOutcome(event domain.StreamEvent) {
	if event.Type != domain.EventFinal || event.Answer == nil {
		return
	}
	rt.metrics.RecordQuery(
		rt.cfg.ServiceName,
		string(event.Answer.Route),
		len(event.Answer.Citations),
		time.Duration(event.Answer.LatencyMS)*time.Millisecond,
	)
}

// query serves POST /query: same pipeline without streaming, returning only
// the final answer.
func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
		RouteHint string `json:"route_hint"`
		TopK      int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	hint, ok := domain.ParseRouteHint(req.RouteHint)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "route_hint must be auto, A, or B"})
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.Header.Get(sessionIDHeader))
	}

	events, sid := rt.streamer.Stream(r.Context(), domain.Query{
		Text:      req.Message,
		SessionID: sessionID,
		Hint:      hint,
		TopK:      req.TopK,
	})
	if sid != "" {
		w.Header().Set(sessionIDHeader, sid)
	}

	for event := range events {
		switch event.Type {
		case domain.EventFinal:
			if rt.metrics != nil {
				rt.recordQueryOutcome(event)
			}
			writeJSON(w, http.StatusOK, event.Answer)
			return
		case domain.EventError:
			writeJSON(w, statusForCode(event.Code), map[string]string{
				"error": event.Msg,
				"code":  event.Code,
			})
			return
		}
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stream ended without result"})
}

func (rt *Router) queryFromParams(w http.ResponseWriter, r *http.Request) (domain.Query, bool) {
	params := r.URL.Query()

	hint, ok := domain.ParseRouteHint(params.Get("route_hint"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "route_hint must be auto, A, or B"})
		return domain.Query{}, false
	}

	topK := 0
	if raw := params.Get("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top_k must be an integer"})
			return domain.Query{}, false
		}
		topK = parsed
	}

	sessionID := params.Get("session_id")
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.Header.Get(sessionIDHeader))
	}

	return domain.Query{
		Text:      params.Get("q"),
		SessionID: sessionID,
		Hint:      hint,
		TopK:      topK,
	}, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
