package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Resolver picks the source loader for a path by scheme and the segment
// loader by file extension.
type Resolver struct {
	sources map[string]GraphFileLoader
	parsers map[string]GraphSegmentLoader
}

// NewResolver creates an empty Resolver. Sources and parsers are registered
// by the caller.
func NewResolver() *Resolver {
	return &Resolver{
		sources: make(map[string]GraphFileLoader),
		parsers: make(map[string]GraphSegmentLoader),
	}
}

// RegisterSource binds a source loader to one or more schemes ("file",
// "http", "https", "s3").
func (r *Resolver) RegisterSource(l GraphFileLoader, schemes ...string) {
	for _, s := range schemes {
		r.sources[strings.ToLower(s)] = l
	}
}

// RegisterParser binds a segment loader to one or more extensions (".pdf").
func (r *Resolver) RegisterParser(l GraphSegmentLoader, exts ...string) {
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.parsers[ext] = l
	}
}

// Extensions returns the registered extensions in lexical order.
func (r *Resolver) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Supported reports whether p can be resolved.
func (r *Resolver) Supported(p string) bool {
	_, _, err := r.Resolve(p)
	return err == nil
}

// Resolve builds the GraphFile for p and returns the segment loader that
// parses it. Web pages without a registered extension are read as HTML.
func (r *Resolver) Resolve(p string) (GraphFile, GraphSegmentLoader, error) {
	scheme := Scheme(p)
	source, ok := r.sources[scheme]
	if !ok {
		return GraphFile{}, nil, fmt.Errorf("%w: no source for scheme %q", ErrUnsupportedFileType, scheme)
	}

	file := NewGraphFile(NewGraphFileParams{
		ID:       p,
		FilePath: p,
		Loader:   source,
	})

	parser, ok := r.parsers[file.Ext()]
	if !ok && (scheme == "http" || scheme == "https") {
		parser, ok = r.parsers[".html"]
	}
	if !ok {
		return GraphFile{}, nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, file.Name())
	}
	return file, parser, nil
}

// Load resolves p and returns its file name and ordered raw text segments.
func (r *Resolver) Load(ctx context.Context, p string) (string, []string, error) {
	file, parser, err := r.Resolve(p)
	if err != nil {
		return "", nil, err
	}
	segments, err := parser.GetSegments(ctx, file)
	if err != nil {
		return "", nil, err
	}
	return file.Name(), segments, nil
}

// GraphFileLister is implemented by sources that can enumerate the files
// below a prefix, such as object storage.
type GraphFileLister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// Walk returns the supported files below root in lexical order. A root that
// is a single file or a remote reference is returned as is, or an error when
// it cannot be resolved. Remote roots ending in "/" are listed when the
// source supports it.
func (r *Resolver) Walk(ctx context.Context, root string) ([]string, error) {
	if scheme := Scheme(root); scheme != "file" {
		if lister, ok := r.sources[scheme].(GraphFileLister); ok && strings.HasSuffix(root, "/") {
			return r.walkListing(ctx, lister, root)
		}
		if _, _, err := r.Resolve(root); err != nil {
			return nil, err
		}
		return []string{root}, nil
	}

	root = strings.TrimPrefix(root, "file://")
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, root)
		}
		return nil, err
	}
	if !info.IsDir() {
		if _, _, err := r.Resolve(root); err != nil {
			return nil, err
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if r.Supported(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func (r *Resolver) walkListing(ctx context.Context, lister GraphFileLister, root string) ([]string, error) {
	all, err := lister.List(ctx, root)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(all))
	for _, p := range all {
		if r.Supported(p) {
			files = append(files, p)
		}
	}
	slices.Sort(files)
	return files, nil
}
