package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitRespectsChunkSize(t *testing.T) {
	s, err := New(Params{ChunkSize: 50, ChunkOverlap: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text := strings.Repeat("Acme Corp owns Beta LLC. ", 20)
	chunks, err := s.Split([]string{text})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 50 {
			t.Fatalf("chunk %d has %d chars", i, n)
		}
	}
}

func TestSplitKeepsSegmentOrder(t *testing.T) {
	s, err := New(Params{ChunkSize: 100, ChunkOverlap: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	chunks, err := s.Split([]string{"page one", "", "page two"})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 2 || chunks[0] != "page one" || chunks[1] != "page two" {
		t.Fatalf("unexpected chunks %q", chunks)
	}
}

func TestSplitEmpty(t *testing.T) {
	s, err := New(Params{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	chunks, err := s.Split(nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %q", chunks)
	}
}

func TestSplitCustomLenFunc(t *testing.T) {
	words := func(s string) int { return len(strings.Fields(s)) }
	s, err := New(Params{ChunkSize: 3, ChunkOverlap: 0, LenFunc: words})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	chunks, err := s.Split([]string{"one two three four five six"})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for _, c := range chunks {
		if words(c) > 3 {
			t.Fatalf("chunk %q exceeds three words", c)
		}
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{name: "overlap too large", params: Params{ChunkSize: 100, ChunkOverlap: 100}},
		{name: "unknown unit", params: Params{Unit: "lines"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.params); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
