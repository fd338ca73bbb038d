package mcp

import "github.com/mark3labs/mcp-go/mcp"

var docsSearchToolDef = mcp.NewTool("docs_search",
	mcp.WithDescription("Rank technical documents by how many query words they contain. Filters match metadata case-insensitively."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Free-text query")),
	mcp.WithObject("filters", mcp.Description("Metadata filters, e.g. {\"marca\": \"Bobcat\"}")),
	mcp.WithNumber("top_k", mcp.Description("Maximum results (default 5)")),
)

var docsCompatibilityToolDef = mcp.NewTool("docs_compatibility",
	mcp.WithDescription("Judge whether an implement fits a machine from the technical documents."),
	mcp.WithString("implemento", mcp.Required(), mcp.Description("Implement, e.g. balde")),
	mcp.WithString("marca", mcp.Required(), mcp.Description("Machine brand")),
	mcp.WithString("modelo", mcp.Description("Machine model")),
)

var docsSpecificationsToolDef = mcp.NewTool("docs_specifications",
	mcp.WithDescription("Return the specifications document for a machine."),
	mcp.WithString("marca", mcp.Required(), mcp.Description("Machine brand")),
	mcp.WithString("modelo", mcp.Description("Machine model")),
)

var docsAddToolDef = mcp.NewTool("docs_add",
	mcp.WithDescription("Append a document to the store. Ids default to doc_NNN."),
	mcp.WithString("content", mcp.Required(), mcp.Description("Document text")),
	mcp.WithObject("metadata", mcp.Description("String metadata (marca, modelo, categoria, tipo, ...)")),
	mcp.WithString("id", mcp.Description("Document id")),
	mcp.WithBoolean("persist", mcp.Description("Save the store to the knowledge file afterwards")),
)

var advisorQueryToolDef = mcp.NewTool("advisor_query",
	mcp.WithDescription("Answer a salesperson's technical query grounded on the top matching documents."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Technical question")),
)

var leadCreateToolDef = mcp.NewTool("lead_create",
	mcp.WithDescription("Start a lead conversation in NEW."),
	mcp.WithString("canal", mcp.Description("whatsapp, web, email or telefono")),
	mcp.WithString("mensaje_inicial", mcp.Description("First message from the prospect")),
)

var leadGetToolDef = mcp.NewTool("lead_get",
	mcp.WithDescription("Fetch a lead by id."),
	mcp.WithString("lead_id", mcp.Required(), mcp.Description("Lead id")),
)

var leadUpdateToolDef = mcp.NewTool("lead_update",
	mcp.WithDescription("Merge extracted data into a lead. Empty fields leave existing values untouched."),
	mcp.WithString("lead_id", mcp.Required(), mcp.Description("Lead id")),
	mcp.WithObject("extracted_data", mcp.Description("nombre, zona, implemento_interes, urgencia, mini_cargadora{marca, modelo, uso}")),
	mcp.WithString("lead_score", mcp.Description("alto, medio or bajo")),
	mcp.WithString("assigned_vendor", mcp.Description("Vendor id")),
)

var leadTransitionToolDef = mcp.NewTool("lead_transition",
	mcp.WithDescription("Move a lead to another state. Illegal transitions return success=false and leave the lead untouched."),
	mcp.WithString("lead_id", mcp.Required(), mcp.Description("Lead id")),
	mcp.WithString("to", mcp.Required(), mcp.Description("Target state")),
	mcp.WithNumber("checkpoint", mcp.Description("Checkpoint to record (default: the target state's checkpoint)")),
)

var leadSuggestToolDef = mcp.NewTool("lead_suggest",
	mcp.WithDescription("Suggest the next state for a lead without changing it."),
	mcp.WithString("lead_id", mcp.Required(), mcp.Description("Lead id")),
)

var leadRequiredToolDef = mcp.NewTool("lead_required",
	mcp.WithDescription("List the data fields required to reach a state, and which of them a lead is missing."),
	mcp.WithString("state", mcp.Required(), mcp.Description("Target state")),
	mcp.WithString("lead_id", mcp.Description("Lead to check")),
)

var leadMessageToolDef = mcp.NewTool("lead_message",
	mcp.WithDescription("Process a prospect message: extract data, advance the lead and return the reply."),
	mcp.WithString("lead_id", mcp.Required(), mcp.Description("Lead id")),
	mcp.WithString("message", mcp.Required(), mcp.Description("Prospect message")),
)
