package domain

// RouteHint is the client's routing preference.
type RouteHint string

const (
	HintAuto       RouteHint = "auto"
	HintStructured RouteHint = "A"
	HintRetrieval  RouteHint = "B"
)

func ParseRouteHint(raw string) (RouteHint, bool) {
	switch RouteHint(raw) {
	case HintAuto, HintStructured, HintRetrieval:
		return RouteHint(raw), true
	case "":
		return HintAuto, true
	default:
		return "", false
	}
}

// RouteKind tags the route that actually satisfied a query.
type RouteKind string

const (
	RouteStructured   RouteKind = "A"
	RouteRetrieval    RouteKind = "B"
	RouteCannotAnswer RouteKind = "cannot_answer"
)

// Query is a single user request. Transient; only the resulting turns are
// persisted in the session log.
type Query struct {
	Text      string
	SessionID string
	Hint      RouteHint
	TopK      int
}

// RouteState is the router's position in its lifecycle.
type RouteState string

const (
	StateReceived        RouteState = "RECEIVED"
	StateRouteSelected   RouteState = "ROUTE_SELECTED"
	StateContextGathered RouteState = "CONTEXT_GATHERED"
	StateAnswerPlanned   RouteState = "ANSWER_PLANNED"
	StateDone            RouteState = "DONE"
	StateError           RouteState = "ERROR"
)

// RouteResult is the tagged outcome of route selection and context gathering.
// The router switches exhaustively over Kind.
type RouteResult struct {
	Kind       RouteKind
	Chunks     []RetrievedChunk
	Structured *StructuredResult
	Reason     string
}

// StructuredResult is what the structured-data collaborator returns when it
// can serve a query.
type StructuredResult struct {
	Answer      string   `json:"answer"`
	SourceLinks []string `json:"source_links"`
}

// AnswerPlan is the ANSWER_PLANNED output handed to the streaming
// coordinator: citations are known synchronously, the text arrives lazily.
type AnswerPlan struct {
	SessionID   string
	Route       RouteKind
	Citations   []Citation
	SourceLinks []string
}
