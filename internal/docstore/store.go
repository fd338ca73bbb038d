// Package docstore holds the ordered, append-only collection of documents
// the retrieval engine searches.
package docstore

import (
	"fmt"
	"sync"

	"github.com/hpungsan/asesor/internal/document"
)

// Store is an append-only, insertion-ordered document collection.
// Documents are never deduplicated by ID and never removed.
type Store struct {
	mu   sync.RWMutex
	docs []document.Document
}

// New returns a store seeded with docs, in order.
func New(docs ...document.Document) *Store {
	s := &Store{}
	s.Add(docs...)
	return s
}

// Add appends documents in the given order.
func (s *Store) Add(docs ...document.Document) {
	if len(docs) == 0 {
		return
	}
	s.mu.Lock()
	s.docs = append(s.docs, docs...)
	s.mu.Unlock()
}

// AddContent appends a single document and returns its ID.
// An empty id is replaced by doc_NNN, numbered from the current store size.
func (s *Store) AddContent(content string, metadata map[string]string, id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = fmt.Sprintf("doc_%03d", len(s.docs)+1)
	}
	s.docs = append(s.docs, document.New(id, content, metadata))
	return id
}

// All returns a snapshot of the documents in insertion order.
func (s *Store) All() []document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]document.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Len returns the number of documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
