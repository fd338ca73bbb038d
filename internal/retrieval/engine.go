// Package retrieval ranks documents lexically against a query and derives
// compatibility and specification judgments from the ranking.
package retrieval

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/asesor/internal/document"
)

// DefaultTopK is the result count when the caller passes a non-positive topK.
const DefaultTopK = 5

// Search kinds reported to the Recorder.
const (
	KindSearch         = "search"
	KindCompatibility  = "compatibility"
	KindSpecifications = "specifications"
)

// Source supplies the documents to scan, in insertion order.
type Source interface {
	All() []document.Document
}

// Recorder observes searches. Implemented by the metrics package.
type Recorder interface {
	ObserveSearch(kind string, results int)
}

// Result is a ranked document with its score.
type Result struct {
	Document document.Document `json:"document"`
	Score    int               `json:"score"`
}

// Engine scores documents from a Source. It holds no state between calls.
type Engine struct {
	source   Source
	logger   *zap.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the search recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New returns an engine over source.
func New(source Source, opts ...Option) *Engine {
	e := &Engine{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns up to topK documents ranked against query. A non-positive
// topK means none was given and DefaultTopK applies.
func (e *Engine) Search(query string, filters map[string]string, topK int) []document.Document {
	results := e.search(KindSearch, query, filters, topK)
	docs := make([]document.Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}
	return docs
}

// SearchScored is Search with scores attached.
func (e *Engine) SearchScored(query string, filters map[string]string, topK int) []Result {
	return e.search(KindSearch, query, filters, topK)
}

func (e *Engine) search(kind, query string, filters map[string]string, topK int) []Result {
	if topK <= 0 {
		topK = DefaultTopK
	}
	words := queryWords(query)

	var results []Result
	for _, doc := range e.source.All() {
		if !matchesFilters(doc, filters) {
			continue
		}
		if score := Score(words, doc.Content); score > 0 {
			results = append(results, Result{Document: doc, Score: score})
		}
	}

	// Ties keep store order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []Result{}
	}

	e.logger.Debug("search",
		zap.String("kind", kind),
		zap.String("query", query),
		zap.Any("filters", filters),
		zap.Int("results", len(results)))
	if e.recorder != nil {
		e.recorder.ObserveSearch(kind, len(results))
	}
	return results
}

// queryWords lowercases and whitespace-splits query, keeping the first
// occurrence of each word.
func queryWords(query string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}

// Score counts the words contained anywhere in the lowercased content.
// A matched "cvm" earns +5 when the content also contains "120" or an "l".
func Score(words []string, content string) int {
	lower := strings.ToLower(content)
	score := 0
	cvm := false
	for _, w := range words {
		if strings.Contains(lower, w) {
			score++
			if w == "cvm" {
				cvm = true
			}
		}
	}
	if cvm && (strings.Contains(lower, "120") || strings.Contains(lower, "l")) {
		score += 5
	}
	return score
}

// matchesFilters requires every filter key to exist in the document metadata
// with a case-insensitive equal value.
func matchesFilters(doc document.Document, filters map[string]string) bool {
	for k, v := range filters {
		got, ok := doc.Meta(k)
		if !ok || strings.ToLower(got) != strings.ToLower(v) {
			return false
		}
	}
	return true
}
