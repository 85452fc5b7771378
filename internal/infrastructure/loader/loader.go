package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/geogli/chatbot/internal/core/domain"
)

// Loader extracts plain text from corpus files, dispatching on extension.
// Extraction quality beyond plain text is out of scope; OCR and table
// extraction are not attempted.
type Loader struct{}

func New() *Loader {
	return &Loader{}
}

func (l *Loader) Load(ctx context.Context, path string) (*domain.Document, error) {
	format, err := sniffFormat(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtractionFailure, "read file", err)
	}

	doc := &domain.Document{
		ID:          documentID(path),
		Path:        path,
		Format:      format,
		ContentHash: contentHash(raw),
		Meta:        inferMetadata(path),
	}

	// Zero-byte files are valid and produce zero chunks downstream.
	if len(raw) == 0 {
		return doc, nil
	}

	var text string
	switch format {
	case domain.FormatPDF:
		text, err = extractPDF(path)
	case domain.FormatHTML:
		text, err = extractHTML(raw)
	case domain.FormatMarkdown:
		text = extractMarkdown(string(raw))
	case domain.FormatText:
		text = string(raw)
	}
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	doc.Text = strings.TrimSpace(text)
	return doc, nil
}

func sniffFormat(path string) (domain.DocumentFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return domain.FormatPDF, nil
	case ".md", ".markdown":
		return domain.FormatMarkdown, nil
	case ".html", ".htm":
		return domain.FormatHTML, nil
	case ".txt":
		return domain.FormatText, nil
	default:
		return "", domain.WrapError(
			domain.ErrUnsupportedFormat,
			"sniff format",
			fmt.Errorf("extension %q", filepath.Ext(path)),
		)
	}
}

// documentID is a stable id derived from the corpus-relative path so
// re-ingestion of an unchanged corpus reproduces the same ids.
func documentID(path string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(path)))
	return hex.EncodeToString(sum[:8])
}

func contentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
