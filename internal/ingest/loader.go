// Package ingest turns files and externally extracted text into documents
// and bootstraps the document store at startup.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/asesor/internal/document"
	"github.com/hpungsan/asesor/internal/errors"
)

// ErrUnsupported is returned for files the loaders can't extract text from (PDFs).
var ErrUnsupported = errors.NewInvalidRequest("unsupported document format")

// Extensions are the file types LoadFile understands.
var Extensions = []string{".txt", ".md", ".markdown"}

// Supported reports whether LoadFile can read path.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// stem returns the file name without directory or extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readText returns the trimmed text of a supported file.
func readText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" || !Supported(path) {
		return "", ErrUnsupported
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound("file", path)
		}
		return "", err
	}

	if ext == ".md" || ext == ".markdown" {
		return MarkdownText(data), nil
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadFile reads a single .txt or .md file. Text files get id txt_<stem>,
// markdown files md_<stem>. ok is false when the file has no text.
func LoadFile(path string) (doc document.Document, ok bool, err error) {
	content, err := readText(path)
	if err != nil {
		return document.Document{}, false, err
	}
	if content == "" {
		return document.Document{}, false, nil
	}

	prefix := "txt_"
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".md" || ext == ".markdown" {
		prefix = "md_"
	}
	s := stem(path)
	return document.New(prefix+s, content, MetadataFromFilename(s)), true, nil
}

// LoadDir loads every file in dir matching pattern (e.g. "*.txt") with id
// file_<stem>. Empty files are skipped. Per-file failures are collected,
// not fatal.
func LoadDir(dir, pattern string) ([]document.Document, []error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, []error{errors.NewNotFound("directory", dir)}
	}
	if pattern == "" {
		pattern = "*.txt"
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, []error{errors.NewInvalidRequest(fmt.Sprintf("bad pattern %q: %v", pattern, err))}
	}

	var (
		docs []document.Document
		errs []error
	)
	for _, path := range matches {
		content, err := readText(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}
		if content == "" {
			continue
		}
		s := stem(path)
		docs = append(docs, document.New("file_"+s, content, MetadataFromFilename(s)))
	}
	return docs, errs
}

// FromOCRText builds a document from text an external OCR step extracted
// from name. Empty text yields ok=false.
func FromOCRText(name, ocrText string) (document.Document, bool) {
	content := strings.TrimSpace(ocrText)
	if content == "" {
		return document.Document{}, false
	}
	s := stem(name)
	meta := MetadataFromFilename(s)
	meta["fuente"] = "ocr"
	return document.New("ocr_"+s, content, meta), true
}
