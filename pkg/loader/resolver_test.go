package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type mapSource map[string]string

func (m mapSource) GetFileText(ctx context.Context, file GraphFile) ([]byte, error) {
	text, ok := m[file.FilePath]
	if !ok {
		return nil, ErrFileNotFound
	}
	return []byte(text), nil
}

func (m mapSource) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out, nil
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"docs/report.pdf", "report.pdf"},
		{"/abs/path/notes.md", "notes.md"},
		{"file:///tmp/a.txt", "a.txt"},
		{"https://example.com/news/article.html?x=1", "article.html"},
		{"https://example.com/", "example.com"},
		{"s3://bucket/reports/q1.docx", "q1.docx"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FileName(tt.in); got != tt.want {
				t.Fatalf("FileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolverLoad(t *testing.T) {
	src := mapSource{
		"a.txt":                      "Acme Corp owns Beta LLC.",
		"blank.md":                   "  \n ",
		"https://example.com/page":   "Readable page",
		"s3://bucket/docs/intro.txt": "From S3",
	}
	r := NewResolver()
	r.RegisterSource(src, "file", "http", "https", "s3")
	r.RegisterParser(NewTextGraphLoader(), ".txt", "md", ".html")

	name, segs, err := r.Load(t.Context(), "a.txt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if name != "a.txt" || !reflect.DeepEqual(segs, []string{"Acme Corp owns Beta LLC."}) {
		t.Fatalf("unexpected result %q %q", name, segs)
	}

	_, segs, err = r.Load(t.Context(), "blank.md")
	if err != nil || len(segs) != 0 {
		t.Fatalf("blank file should give no segments, got %q, %v", segs, err)
	}

	_, segs, err = r.Load(t.Context(), "https://example.com/page")
	if err != nil || len(segs) != 1 {
		t.Fatalf("web page without extension should load as html, got %q, %v", segs, err)
	}

	name, _, err = r.Load(t.Context(), "s3://bucket/docs/intro.txt")
	if err != nil || name != "intro.txt" {
		t.Fatalf("s3 load: %q, %v", name, err)
	}

	if _, _, err := r.Load(t.Context(), "image.png"); !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	if _, _, err := r.Load(t.Context(), "missing.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestResolverWalk(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"b.txt", "a.md", "skip.png", filepath.Join("sub", "c.txt")} {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	r := NewResolver()
	r.RegisterSource(mapSource{}, "file", "s3")
	r.RegisterParser(NewTextGraphLoader(), ".txt", ".md")

	got, err := r.Walk(t.Context(), dir)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "sub", "c.txt"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Walk = %v, want %v", got, want)
	}

	if _, err := r.Walk(t.Context(), filepath.Join(dir, "skip.png")); !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType for single unsupported file, got %v", err)
	}
	if _, err := r.Walk(t.Context(), filepath.Join(dir, "nope")); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestResolverWalkListing(t *testing.T) {
	src := mapSource{
		"s3://bucket/docs/b.txt": "b",
		"s3://bucket/docs/a.txt": "a",
		"s3://bucket/docs/c.bin": "c",
	}
	r := NewResolver()
	r.RegisterSource(src, "s3")
	r.RegisterParser(NewTextGraphLoader(), ".txt")

	got, err := r.Walk(t.Context(), "s3://bucket/docs/")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"s3://bucket/docs/a.txt", "s3://bucket/docs/b.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Walk = %v, want %v", got, want)
	}
}
