package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/asesor/internal/advisor"
	"github.com/hpungsan/asesor/internal/config"
	"github.com/hpungsan/asesor/internal/docstore"
	"github.com/hpungsan/asesor/internal/errors"
	"github.com/hpungsan/asesor/internal/lead"
	"github.com/hpungsan/asesor/internal/retrieval"
)

// Deps are the collaborators the tool handlers operate on.
type Deps struct {
	Store    *docstore.Store
	Engine   *retrieval.Engine
	Advisor  *advisor.Advisor
	Sessions *advisor.Sessions
	Config   *config.Config
	Logger   *zap.Logger
	Observer lead.Observer
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store    *docstore.Store
	engine   *retrieval.Engine
	advisor  *advisor.Advisor
	sessions *advisor.Sessions
	cfg      *config.Config
	logger   *zap.Logger
	observer lead.Observer
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	h := &Handlers{
		store:    deps.Store,
		engine:   deps.Engine,
		advisor:  deps.Advisor,
		sessions: deps.Sessions,
		cfg:      deps.Config,
		logger:   deps.Logger,
		observer: deps.Observer,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.cfg == nil {
		h.cfg = config.DefaultConfig()
	}
	if h.sessions == nil {
		h.sessions = advisor.NewSessions()
	}
	return h
}

// Request types for each document tool

// DocsSearchRequest represents the arguments for docs_search.
type DocsSearchRequest struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters,omitempty"`
	TopK    int               `json:"top_k,omitempty"`
}

// DocsCompatibilityRequest represents the arguments for docs_compatibility.
type DocsCompatibilityRequest struct {
	Implemento string `json:"implemento"`
	Marca      string `json:"marca"`
	Modelo     string `json:"modelo,omitempty"`
}

// DocsSpecificationsRequest represents the arguments for docs_specifications.
type DocsSpecificationsRequest struct {
	Marca  string `json:"marca"`
	Modelo string `json:"modelo,omitempty"`
}

// DocsAddRequest represents the arguments for docs_add.
type DocsAddRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	ID       string            `json:"id,omitempty"`
	Persist  bool              `json:"persist,omitempty"`
}

// AdvisorQueryRequest represents the arguments for advisor_query.
type AdvisorQueryRequest struct {
	Query string `json:"query"`
}

// SearchHit is one ranked document in a docs_search response.
type SearchHit struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    int               `json:"score"`
}

// SearchOutput is the docs_search response.
type SearchOutput struct {
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

// AddOutput is the docs_add response.
type AddOutput struct {
	ID        string `json:"id"`
	Total     int    `json:"total"`
	Persisted bool   `json:"persisted"`
}

// Handler implementations

// HandleDocsSearch handles the docs_search tool call.
func (h *Handlers) HandleDocsSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocsSearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Query) == "" {
		return errorResult(errors.NewInvalidRequest("query is required")), nil
	}
	if input.TopK < 0 {
		return errorResult(errors.NewInvalidRequest("top_k must be positive")), nil
	}
	topK := input.TopK
	if topK == 0 {
		topK = h.cfg.SearchTopK
	}

	results := h.engine.SearchScored(input.Query, input.Filters, topK)
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			ID:       r.Document.ID,
			Content:  r.Document.Content,
			Metadata: r.Document.Metadata,
			Score:    r.Score,
		}
	}
	return successResult(SearchOutput{Results: hits, Count: len(hits)})
}

// HandleDocsCompatibility handles the docs_compatibility tool call.
func (h *Handlers) HandleDocsCompatibility(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocsCompatibilityRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Implemento) == "" || strings.TrimSpace(input.Marca) == "" {
		return errorResult(errors.NewInvalidRequest("implemento and marca are required")), nil
	}

	return successResult(h.engine.ValidateCompatibility(input.Implemento, input.Marca, input.Modelo))
}

// HandleDocsSpecifications handles the docs_specifications tool call.
func (h *Handlers) HandleDocsSpecifications(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocsSpecificationsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Marca) == "" {
		return errorResult(errors.NewInvalidRequest("marca is required")), nil
	}

	return successResult(h.engine.GetSpecifications(input.Marca, input.Modelo))
}

// HandleDocsAdd handles the docs_add tool call.
func (h *Handlers) HandleDocsAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocsAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Content) == "" {
		return errorResult(errors.NewInvalidRequest("content is required")), nil
	}

	id := h.store.AddContent(input.Content, input.Metadata, input.ID)
	out := AddOutput{ID: id, Total: h.store.Len()}

	if input.Persist {
		if h.cfg.KnowledgeFile == "" {
			return errorResult(errors.NewNotConfigured("knowledge_file")), nil
		}
		if err := h.store.Save(h.cfg.KnowledgeFile); err != nil {
			return errorResult(err), nil
		}
		out.Persisted = true
	}

	h.logger.Info("document added", zap.String("doc_id", id), zap.Bool("persisted", out.Persisted))
	return successResult(out)
}

// HandleAdvisorQuery handles the advisor_query tool call.
func (h *Handlers) HandleAdvisorQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AdvisorQueryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.advisor == nil {
		return errorResult(errors.NewNotConfigured("advisor")), nil
	}

	resp, err := h.advisor.ProcessQuery(ctx, input.Query)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(resp)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var aErr *errors.AsesorError
	if stderrors.As(err, &aErr) {
		// Keep wrapper context such as "items[2]: " in front of the message.
		message := strings.TrimSuffix(err.Error(), aErr.Error()) + aErr.Message
		errorObj := map[string]any{
			"code":    aErr.Code,
			"message": message,
			"status":  aErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if aErr.Code != errors.ErrInternal && aErr.Details != nil {
			errorObj["details"] = aErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
