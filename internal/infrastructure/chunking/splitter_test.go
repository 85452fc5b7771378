package chunking

import (
	"strings"
	"testing"

	"github.com/geogli/chatbot/internal/core/domain"
)

func testDoc(text string) *domain.Document {
	return &domain.Document{ID: "doc-1", Text: text}
}

func TestNewSplitterRejectsBadConfig(t *testing.T) {
	cases := []struct {
		size, overlap int
	}{
		{0, 0},
		{-1, 0},
		{5, 5},
		{5, 6},
		{5, -1},
	}
	for _, tc := range cases {
		_, err := NewSplitter(tc.size, tc.overlap)
		if err == nil {
			t.Fatalf("NewSplitter(%d, %d) expected error", tc.size, tc.overlap)
		}
		if !domain.IsKind(err, domain.ErrInvalidChunkConfig) {
			t.Fatalf("expected ErrInvalidChunkConfig, got %v", err)
		}
	}
}

func TestChunkShortTextYieldsSingleChunk(t *testing.T) {
	s, err := NewSplitter(50, 10)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	chunks, err := s.Chunk(testDoc("soil organic carbon"))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "soil organic carbon" {
		t.Fatalf("unexpected chunk text: %q", chunks[0].Text)
	}
	if chunks[0].Ordinal != 0 || chunks[0].WordOffset != 0 || chunks[0].WordCount != 3 {
		t.Fatalf("unexpected chunk geometry: %+v", chunks[0])
	}
}

func TestChunkOverlapWindows(t *testing.T) {
	s, err := NewSplitter(5, 1)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	chunks, err := s.Chunk(testDoc("Land degradation reduces soil organic carbon."))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	want := []string{
		"Land degradation reduces soil organic",
		"organic carbon.",
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i].Text, w)
		}
		if chunks[i].Ordinal != i {
			t.Fatalf("chunk %d ordinal = %d", i, chunks[i].Ordinal)
		}
	}
}

func TestChunkNoContainedTrailingWindow(t *testing.T) {
	// Nine words with step 4 align a window exactly on the last word;
	// no extra window duplicating already-covered words may follow.
	s, err := NewSplitter(5, 1)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	chunks, err := s.Chunk(testDoc("Soil organic carbon stocks decline under sustained drought stress"))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	want := []string{
		"Soil organic carbon stocks decline",
		"decline under sustained drought stress",
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %+v", len(want), len(chunks), chunks)
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i].Text, w)
		}
	}
}

func TestChunkDeterministicIDs(t *testing.T) {
	s, _ := NewSplitter(4, 2)
	text := strings.Repeat("drought affects land productivity dynamics ", 20)

	first, err := s.Chunk(testDoc(text))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	second, err := s.Chunk(testDoc(text))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("chunk %d id differs: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].WordOffset != second[i].WordOffset {
			t.Fatalf("chunk %d offset differs", i)
		}
	}
}

func TestChunkEmptyTextYieldsNoChunks(t *testing.T) {
	s, _ := NewSplitter(5, 1)
	chunks, err := s.Chunk(testDoc("   \n\t "))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkInheritsMetadata(t *testing.T) {
	s, _ := NewSplitter(5, 1)
	doc := testDoc("vegetation cover trends in arid regions")
	doc.Meta = domain.Metadata{Country: "Saudi Arabia", Year: 2019}

	chunks, err := s.Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	for _, c := range chunks {
		if c.Meta.Country != "Saudi Arabia" || c.Meta.Year != 2019 {
			t.Fatalf("metadata not inherited: %+v", c.Meta)
		}
	}
}
