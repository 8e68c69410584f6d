// Package extract turns files of supported formats into plain text for
// chunking. Extractors are looked up by lowercase file extension.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParseError reports a file that could not be turned into text. Multi-file
// ingestion logs and skips these rather than aborting.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extractor converts a file into plain text.
type Extractor func(path string) (string, error)

// Registry maps file extensions to extractors.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with all built-in extractors registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(".txt", extractText)
	r.Register(".md", extractText)
	r.Register(".csv", extractCSV)
	r.Register(".pdf", extractPDF)
	r.Register(".xlsx", extractXLSX)
	r.Register(".xls", extractXLSX)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".tif", ".tiff"} {
		r.Register(ext, extractImage)
	}
	return r
}

// Register adds or replaces the extractor for an extension (with leading dot).
func (r *Registry) Register(ext string, fn Extractor) {
	r.byExt[strings.ToLower(ext)] = fn
}

// Supported reports whether path's extension has a registered extractor.
func (r *Registry) Supported(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract runs the extractor registered for path's extension. Failures,
// including an unregistered extension, are returned as *ParseError.
func (r *Registry) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := r.byExt[ext]
	if !ok {
		return "", &ParseError{Path: path, Err: fmt.Errorf("no extractor for extension %q", ext)}
	}
	text, err := fn(path)
	if err != nil {
		return "", &ParseError{Path: path, Err: err}
	}
	return text, nil
}
