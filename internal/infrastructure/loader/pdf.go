package loader

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/geogli/chatbot/internal/core/domain"
)

// extractPDF pulls plain text from a PDF. The pdf package panics on some
// malformed inputs, so the recover maps those to ExtractionFailure like any
// other unreadable document.
func extractPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.WrapError(domain.ErrExtractionFailure, "extract pdf", fmt.Errorf("pdf parser panic: %v", r))
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtractionFailure, "extract pdf", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrExtractionFailure, "extract pdf", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", domain.WrapError(domain.ErrExtractionFailure, "extract pdf", err)
	}
	return buf.String(), nil
}
