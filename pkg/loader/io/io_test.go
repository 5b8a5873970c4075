package io

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OFFIS-RIT/graphrag/pkg/loader"
)

func TestGetFileTextRereadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(path, []byte("first"), 0o600); err != nil {
		t.Fatal(err)
	}

	l := NewIOGraphFileLoader()
	file := loader.NewGraphFile(loader.NewGraphFileParams{ID: path, FilePath: path, Loader: l})

	got, err := file.GetText(t.Context())
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if string(got) != "first" {
		t.Fatalf("got %q", got)
	}

	if err := os.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, _ = file.GetText(t.Context())
	if string(got) != "second" {
		t.Fatalf("expected changed content, got %q", got)
	}
}

func TestGetFileTextServesCacheWhileUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("aaaa"), 0o600); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	l := NewIOGraphFileLoader()
	file := loader.NewGraphFile(loader.NewGraphFileParams{ID: path, FilePath: path, Loader: l})
	if _, err := file.GetText(t.Context()); err != nil {
		t.Fatal(err)
	}

	// Same size and mtime: the cached bytes are returned.
	if err := os.WriteFile(path, []byte("bbbb"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	got, _ := file.GetText(t.Context())
	if string(got) != "aaaa" {
		t.Fatalf("expected cached content, got %q", got)
	}

	l.Forget(file)
	got, _ = file.GetText(t.Context())
	if string(got) != "bbbb" {
		t.Fatalf("expected fresh content after Forget, got %q", got)
	}
}

func TestGetFileTextMissing(t *testing.T) {
	l := NewIOGraphFileLoader()
	file := loader.NewGraphFile(loader.NewGraphFileParams{
		FilePath: filepath.Join(t.TempDir(), "missing.txt"),
		Loader:   l,
	})
	_, err := file.GetText(t.Context())
	if !errors.Is(err, loader.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestGetFileTextDirectory(t *testing.T) {
	l := NewIOGraphFileLoader()
	file := loader.NewGraphFile(loader.NewGraphFileParams{FilePath: t.TempDir(), Loader: l})
	if _, err := file.GetText(t.Context()); err == nil {
		t.Fatalf("expected error for directory")
	}
}
