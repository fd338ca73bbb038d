package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cast"
)

// Record is one entry of the interchange file.
type Record struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// File is the on-disk interchange format: {"documents": [...]}.
type File struct {
	Documents []Record `json:"documents"`
}

// rawRecord mirrors Record but keeps metadata values untyped so that
// numbers and booleans written by other tools can be coerced.
type rawRecord struct {
	ID       *string        `json:"id"`
	Content  *string        `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// UnmarshalJSON decodes a record, coercing scalar metadata values to strings.
// Missing id/content or nested metadata values make the record malformed.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == nil {
		return fmt.Errorf("document record missing id")
	}
	if raw.Content == nil {
		return fmt.Errorf("document %q missing content", *raw.ID)
	}

	meta := make(map[string]string, len(raw.Metadata))
	for k, v := range raw.Metadata {
		switch v.(type) {
		case map[string]any, []any:
			return fmt.Errorf("document %q: metadata %q is not a scalar", *raw.ID, k)
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return fmt.Errorf("document %q: metadata %q: %w", *raw.ID, k, err)
		}
		meta[k] = s
	}

	r.ID = *raw.ID
	r.Content = *raw.Content
	r.Metadata = meta
	return nil
}

// ToRecord converts a Document to its interchange record.
func (d Document) ToRecord() Record {
	meta := d.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return Record{ID: d.ID, Content: d.Content, Metadata: meta}
}

// ToDocument converts a record into a Document.
func (r Record) ToDocument() Document {
	return New(r.ID, r.Content, r.Metadata)
}

// Encode writes docs as a 2-space indented interchange file.
// Non-ASCII text and HTML characters are written verbatim.
func Encode(w io.Writer, docs []Document) error {
	f := File{Documents: make([]Record, 0, len(docs))}
	for _, d := range docs {
		f.Documents = append(f.Documents, d.ToRecord())
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// Decode reads an interchange file.
func Decode(data []byte) ([]Document, error) {
	var f File
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(f.Documents))
	for _, r := range f.Documents {
		docs = append(docs, r.ToDocument())
	}
	return docs, nil
}
