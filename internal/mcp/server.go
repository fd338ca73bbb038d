package mcp

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"docs_search": {
		def:     docsSearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocsSearch },
	},
	"docs_compatibility": {
		def:     docsCompatibilityToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocsCompatibility },
	},
	"docs_specifications": {
		def:     docsSpecificationsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocsSpecifications },
	},
	"docs_add": {
		def:     docsAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocsAdd },
	},
	"advisor_query": {
		def:     advisorQueryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdvisorQuery },
	},
	"lead_create": {
		def:     leadCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLeadCreate },
	},
	"lead_get": {
		def:     leadGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLeadGet },
	},
	"lead_update": {
		def:     leadUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLeadUpdate },
	},
	"lead_transition": {
		def:     leadTransitionToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLeadTransition },
	},
	"lead_suggest": {
		def:     leadSuggestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLeadSuggest },
	},
	"lead_required": {
		def:     leadRequiredToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLeadRequired },
	},
	"lead_message": {
		def:     leadMessageToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLeadMessage },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the asesor tools registered.
// Tools listed in deps.Config.DisabledTools are excluded; unknown names are logged.
func NewServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"asesor",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	if deps.Config != nil {
		for _, name := range deps.Config.DisabledTools {
			disabled[name] = true
		}
		if unknown := ValidateDisabledTools(deps.Config.DisabledTools); len(unknown) > 0 {
			h.logger.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps Deps, version string) error {
	s := NewServer(deps, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
