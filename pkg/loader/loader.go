package loader

import (
	"context"
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFileType is returned when no parser is registered for a
	// path's extension or no source is registered for its scheme.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileNotFound is returned when the source reports the file missing.
	ErrFileNotFound = errors.New("file not found")
)

// GraphFile represents a document that can be turned into ordered text
// segments for graph construction. FilePath is a local path, an http(s) URL
// or an s3://bucket/key reference.
//
// The raw bytes are retrieved via the associated GraphFileLoader.
type GraphFile struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new GraphFile.
type NewGraphFileParams struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

// NewGraphFile creates a new GraphFile from params.
func NewGraphFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		Loader:   params.Loader,
	}
}

// Name returns the document file name: the base name of the local path,
// the URL path or the object key.
func (f *GraphFile) Name() string {
	return FileName(f.FilePath)
}

// Ext returns the lower-cased extension of the file name including the dot.
func (f *GraphFile) Ext() string {
	return strings.ToLower(path.Ext(f.Name()))
}

// GetText retrieves the raw content of the file using its Loader.
//
// Example:
//
//	text, err := file.GetText(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(text))
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	if f.Loader == nil {
		return nil, errors.New("graph file has no loader")
	}
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for fetching the raw contents of a
// GraphFile. Implementations may load files from disk, object storage or the web.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

// GraphSegmentLoader turns a GraphFile into ordered raw text segments, for
// example one segment per PDF page. An empty result is not an error.
type GraphSegmentLoader interface {
	GetSegments(ctx context.Context, file GraphFile) ([]string, error)
}

// CacheKey generates a unique cache key for a GraphFile based on its ID and path.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}

// Scheme returns the source scheme of p: "http", "https", "s3" or "file".
func Scheme(p string) string {
	if i := strings.Index(p, "://"); i > 0 {
		scheme := strings.ToLower(p[:i])
		switch scheme {
		case "http", "https", "s3", "file":
			return scheme
		}
	}
	return "file"
}

// FileName returns the base name of a local path, URL path or object key.
func FileName(p string) string {
	switch Scheme(p) {
	case "http", "https", "s3":
		u, err := url.Parse(p)
		if err == nil {
			name := path.Base(u.Path)
			if name == "." || name == "/" {
				return u.Host
			}
			return name
		}
	case "file":
		p = strings.TrimPrefix(p, "file://")
	}
	return filepath.Base(p)
}
