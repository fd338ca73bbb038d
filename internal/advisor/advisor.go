// Package advisor orchestrates retrieval, completion and qualification for
// technical queries and lead conversations.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/asesor/internal/crm"
	"github.com/hpungsan/asesor/internal/document"
	aerrors "github.com/hpungsan/asesor/internal/errors"
	"github.com/hpungsan/asesor/internal/lead"
	"github.com/hpungsan/asesor/internal/llm"
	"github.com/hpungsan/asesor/internal/retrieval"
)

// State is a stage of the technical advisor flow.
type State string

const (
	StateReceiveQuery  State = "RECEIVE_QUERY"
	StateSearchRAG     State = "SEARCH_RAG"
	StateProvideAdvice State = "PROVIDE_ADVICE"
)

func (s State) Valid() bool {
	switch s {
	case StateReceiveQuery, StateSearchRAG, StateProvideAdvice:
		return true
	}
	return false
}

// Confidence is the advisor's self-reported certainty.
type Confidence string

const (
	ConfidenceAlta  Confidence = "alta"
	ConfidenceMedia Confidence = "media"
	ConfidenceBaja  Confidence = "baja"
)

func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceAlta, ConfidenceMedia, ConfidenceBaja:
		return true
	}
	return false
}

const (
	// contextDocs is how many search results are sent to the completion collaborator.
	contextDocs = 3
	// excerptRunes bounds the content of each RAG result returned to the caller.
	excerptRunes = 200

	fallbackAdvice = "Lo siento, no pude procesar la información correctamente. Consulta con el departamento técnico."
)

// RAGResult is an excerpt of a document that informed a response.
type RAGResult struct {
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
}

// TechnicalResponse answers a salesperson's technical query.
type TechnicalResponse struct {
	TechnicalResponse string      `json:"technical_response"`
	RAGResults        []RAGResult `json:"rag_results"`
	StateTransition   State       `json:"state_transition"`
	Actions           []string    `json:"actions"`
	Confidence        Confidence  `json:"confidence"`
}

// Searcher finds documents relevant to a query.
type Searcher interface {
	Search(query string, filters map[string]string, topK int) []document.Document
}

// CRM is the subset of the CRM client used while qualifying leads.
type CRM interface {
	Configured() bool
	VendorByZone(ctx context.Context, zona string) (*crm.Vendor, error)
	SyncLead(ctx context.Context, l *lead.Lead) error
	AssignToVendor(ctx context.Context, crmID, vendorID, zona string) error
}

// Options configures an Advisor.
type Options struct {
	Completer    llm.Completer
	Searcher     Searcher
	CRM          CRM
	SystemPrompt string
	TopK         int
	Logger       *zap.Logger
	Observer     lead.Observer
}

// Advisor answers technical queries and drives lead conversations.
// It holds no per-request state and is safe for concurrent use.
type Advisor struct {
	completer    llm.Completer
	searcher     Searcher
	crm          CRM
	systemPrompt string
	topK         int
	logger       *zap.Logger
	observer     lead.Observer
}

// New creates an Advisor. Searcher is required.
func New(opts Options) *Advisor {
	a := &Advisor{
		completer:    opts.Completer,
		searcher:     opts.Searcher,
		crm:          opts.CRM,
		systemPrompt: opts.SystemPrompt,
		topK:         opts.TopK,
		logger:       opts.Logger,
		observer:     opts.Observer,
	}
	if a.topK <= 0 {
		a.topK = retrieval.DefaultTopK
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// ProcessQuery searches the document store for query and asks the completion
// collaborator for advice grounded on the top results. A reply that is not a
// valid TechnicalResponse yields a low-confidence fallback; a failed call yields an error.
func (a *Advisor) ProcessQuery(ctx context.Context, query string) (*TechnicalResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, aerrors.NewInvalidRequest("query is required")
	}
	if a.completer == nil {
		return nil, aerrors.NewNotConfigured(llm.Service)
	}

	log := a.logger.With(zap.String("query", query))
	log.Debug("advisor state", zap.String("state", string(StateSearchRAG)))

	docs := a.searcher.Search(query, nil, a.topK)
	if len(docs) > contextDocs {
		docs = docs[:contextDocs]
	}
	log.Info("rag search", zap.Int("results", len(docs)))

	var sb strings.Builder
	results := make([]RAGResult, 0, len(docs))
	for _, d := range docs {
		fmt.Fprintf(&sb, "Documento: %s\n%s\n\n", d.ID, d.Content)
		results = append(results, RAGResult{
			DocumentID: d.ID,
			Content:    excerpt(d.Content),
			Metadata:   d.Metadata,
		})
	}

	messages := a.withSystem(llm.ChatMessage{Role: llm.RoleUser, Content: fmt.Sprintf(queryPrompt, query, sb.String())})
	reply, err := a.completer.Complete(ctx, messages)
	if err != nil {
		log.Warn("completion failed", zap.Error(err))
		return nil, err
	}

	resp, ok := decodeTechnical(reply)
	if !ok {
		log.Warn("undecodable completion, using fallback", zap.Int("reply_len", len(reply)))
		resp = &TechnicalResponse{
			TechnicalResponse: fallbackAdvice,
			RAGResults:        results,
			StateTransition:   StateProvideAdvice,
			Actions:           []string{},
			Confidence:        ConfidenceBaja,
		}
	}
	if len(resp.RAGResults) == 0 {
		resp.RAGResults = results
	}
	if resp.Actions == nil {
		resp.Actions = []string{}
	}
	log.Debug("advisor state", zap.String("state", string(StateProvideAdvice)))
	return resp, nil
}

func (a *Advisor) withSystem(msgs ...llm.ChatMessage) []llm.ChatMessage {
	if a.systemPrompt == "" {
		return msgs
	}
	return append([]llm.ChatMessage{{Role: llm.RoleSystem, Content: a.systemPrompt}}, msgs...)
}

// decodeTechnical parses a completion into a TechnicalResponse. Missing text,
// unknown states and unknown confidence levels are rejected.
func decodeTechnical(reply string) (*TechnicalResponse, bool) {
	var resp TechnicalResponse
	if err := json.Unmarshal([]byte(reply), &resp); err != nil {
		return nil, false
	}
	if strings.TrimSpace(resp.TechnicalResponse) == "" || !resp.StateTransition.Valid() || !resp.Confidence.Valid() {
		return nil, false
	}
	return &resp, true
}

// excerpt returns the first excerptRunes runes of s followed by "...".
func excerpt(s string) string {
	r := []rune(s)
	if len(r) > excerptRunes {
		r = r[:excerptRunes]
	}
	return string(r) + "..."
}

const queryPrompt = `
Consulta del vendedor: %s

Resultados RAG disponibles:
%s
Proporciona una respuesta técnica detallada basada únicamente en la información de las fichas técnicas.
Responde solo con JSON: {"technical_response": "...", "rag_results": [], "state_transition": "PROVIDE_ADVICE", "actions": [], "confidence": "alta|media|baja"}
`
