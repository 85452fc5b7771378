package domain

type DocumentFormat string

const (
	FormatPDF      DocumentFormat = "pdf"
	FormatMarkdown DocumentFormat = "markdown"
	FormatHTML     DocumentFormat = "html"
	FormatText     DocumentFormat = "text"
)

// Document is a source file after text extraction. Immutable once extracted;
// re-ingestion recreates it wholesale.
type Document struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Format      DocumentFormat `json:"format"`
	Text        string         `json:"-"`
	ContentHash string         `json:"content_hash"`
	Meta        Metadata       `json:"meta"`
}

// Metadata is best-effort structured information inferred from the filename
// or content. Zero values mean "unknown".
type Metadata struct {
	Country string `json:"country,omitempty"`
	Year    int    `json:"year,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Chunk is a contiguous word window of a document's text, the unit of
// retrieval. Created only during ingestion.
type Chunk struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"document_id"`
	Ordinal    int      `json:"ordinal"`
	WordOffset int      `json:"word_offset"`
	WordCount  int      `json:"word_count"`
	Text       string   `json:"text"`
	Meta       Metadata `json:"meta"`
}
