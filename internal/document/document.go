package document

import (
	"regexp"
	"strings"
)

// Known metadata keys lifted into typed fields.
const (
	KeyMarca     = "marca"
	KeyModelo    = "modelo"
	KeyCategoria = "categoria"
	KeyTipo      = "tipo"
)

// Document is a unit of retrievable technical content.
// Documents are immutable once created; the store only appends them.
type Document struct {
	// ID identifies the document. Not guaranteed unique across a store.
	ID string

	// Content is the free-text body that search scores against.
	Content string

	// Metadata is the raw, open-ended key/value bag kept for filtering and export.
	Metadata map[string]string

	// Typed views of the known keys. Empty when the key is absent.
	Marca     string
	Modelo    string
	Categoria string
	Tipo      string
}

// New builds a Document, copying metadata so callers can't mutate it afterwards.
func New(id, content string, metadata map[string]string) Document {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	return Document{
		ID:        id,
		Content:   content,
		Metadata:  meta,
		Marca:     meta[KeyMarca],
		Modelo:    meta[KeyModelo],
		Categoria: meta[KeyCategoria],
		Tipo:      meta[KeyTipo],
	}
}

// Meta returns a metadata value and whether the key exists.
func (d Document) Meta(key string) (string, bool) {
	v, ok := d.Metadata[key]
	return v, ok
}

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases, and collapses internal whitespace to single spaces.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}
