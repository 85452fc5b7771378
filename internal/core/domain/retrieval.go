package domain

// RetrievedChunk is a chunk returned from similarity search.
type RetrievedChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// SearchHints carry advisory metadata preferences derived from the query and
// session history. Matching chunks are preferred, never required.
type SearchHints struct {
	Country string
	Year    int
}

func (h SearchHints) Empty() bool {
	return h.Country == "" && h.Year == 0
}

// Matches reports whether chunk metadata satisfies the hints that are set.
func (h SearchHints) Matches(m Metadata) bool {
	if h.Country != "" && m.Country != h.Country {
		return false
	}
	if h.Year != 0 && m.Year != h.Year {
		return false
	}
	return true
}

// Citation points at the origin of retrieved evidence.
type Citation struct {
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Ordinal    int     `json:"ordinal"`
	Score      float64 `json:"score"`
}

// Answer is the completed result of one query turn.
type Answer struct {
	SessionID   string     `json:"session_id"`
	Text        string     `json:"answer"`
	SourceLinks []string   `json:"source_links"`
	Citations   []Citation `json:"citations"`
	Route       RouteKind  `json:"route"`
	LatencyMS   int64      `json:"latency_ms"`
}
