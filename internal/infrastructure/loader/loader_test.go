package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/geogli/chatbot/internal/core/domain"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadUnsupportedExtension(t *testing.T) {
	l := New()
	_, err := l.Load(context.Background(), writeFixture(t, "data.xlsx", "x"))
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadEmptyFileYieldsEmptyText(t *testing.T) {
	l := New()
	doc, err := l.Load(context.Background(), writeFixture(t, "empty.txt", ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Text != "" {
		t.Fatalf("expected empty text, got %q", doc.Text)
	}
	if doc.ContentHash == "" {
		t.Fatalf("content hash missing")
	}
}

func TestLoadMarkdownStripsSyntax(t *testing.T) {
	l := New()
	md := "# Land Degradation\n\nSoil **organic** carbon is a [key indicator](https://example.org).\n\n```\ncode block\n```\n- drought\n"
	doc, err := l.Load(context.Background(), writeFixture(t, "report.md", md))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := "Land Degradation\nSoil organic carbon is a key indicator.\ndrought"
	if doc.Text != want {
		t.Fatalf("extracted text = %q, want %q", doc.Text, want)
	}
	if doc.Format != domain.FormatMarkdown {
		t.Fatalf("format = %s", doc.Format)
	}
}

func TestLoadHTMLSkipsScripts(t *testing.T) {
	l := New()
	page := `<html><head><style>body{}</style><script>var x=1;</script></head><body><h1>Land productivity</h1><p>declined in drylands.</p></body></html>`
	doc, err := l.Load(context.Background(), writeFixture(t, "page.html", page))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Text != "Land productivity declined in drylands." {
		t.Fatalf("extracted text = %q", doc.Text)
	}
}

func TestLoadCorruptPDF(t *testing.T) {
	l := New()
	_, err := l.Load(context.Background(), writeFixture(t, "broken.pdf", "definitely not a pdf"))
	if !domain.IsKind(err, domain.ErrExtractionFailure) {
		t.Fatalf("expected ErrExtractionFailure, got %v", err)
	}
}

func TestDocumentIDStable(t *testing.T) {
	if documentID("corpus/a.txt") != documentID("corpus/a.txt") {
		t.Fatalf("document id not stable")
	}
	if documentID("corpus/a.txt") == documentID("corpus/b.txt") {
		t.Fatalf("distinct paths collide")
	}
}

func TestInferMetadata(t *testing.T) {
	cases := []struct {
		name    string
		country string
		year    int
	}{
		{"Saudi-Arabia_LDN_2018.pdf", "Saudi Arabia", 2018},
		{"ksa-sdg-15.3.1.md", "Saudi Arabia", 0},
		{"mongolia_report.html", "Mongolia", 0},
		{"global-overview-2021.txt", "", 2021},
		{"notes.txt", "", 0},
	}
	for _, tc := range cases {
		meta := inferMetadata(tc.name)
		if meta.Country != tc.country {
			t.Fatalf("%s: country = %q, want %q", tc.name, meta.Country, tc.country)
		}
		if meta.Year != tc.year {
			t.Fatalf("%s: year = %d, want %d", tc.name, meta.Year, tc.year)
		}
	}
}
