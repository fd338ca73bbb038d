package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/asesor/internal/advisor"
	"github.com/hpungsan/asesor/internal/errors"
	"github.com/hpungsan/asesor/internal/lead"
)

// LeadCreateRequest represents the arguments for lead_create.
type LeadCreateRequest struct {
	Canal          string `json:"canal,omitempty"`
	MensajeInicial string `json:"mensaje_inicial,omitempty"`
}

// LeadRef identifies a lead.
type LeadRef struct {
	LeadID string `json:"lead_id"`
}

// LeadUpdateRequest represents the arguments for lead_update.
type LeadUpdateRequest struct {
	LeadID         string             `json:"lead_id"`
	ExtractedData  lead.ExtractedData `json:"extracted_data"`
	LeadScore      lead.Score         `json:"lead_score,omitempty"`
	AssignedVendor string             `json:"assigned_vendor,omitempty"`
}

// LeadTransitionRequest represents the arguments for lead_transition.
type LeadTransitionRequest struct {
	LeadID     string `json:"lead_id"`
	To         string `json:"to"`
	Checkpoint *int   `json:"checkpoint,omitempty"`
}

// LeadRequiredRequest represents the arguments for lead_required.
type LeadRequiredRequest struct {
	State  string `json:"state"`
	LeadID string `json:"lead_id,omitempty"`
}

// LeadMessageRequest represents the arguments for lead_message.
type LeadMessageRequest struct {
	LeadID  string `json:"lead_id"`
	Message string `json:"message"`
}

// TransitionOutput is the lead_transition response.
type TransitionOutput struct {
	Success bool       `json:"success"`
	From    lead.State `json:"from"`
	To      lead.State `json:"to"`
	Lead    *lead.Lead `json:"lead"`
}

// SuggestOutput is the lead_suggest response. SuggestedState is null when there is no suggestion.
type SuggestOutput struct {
	LeadID             string       `json:"lead_id"`
	CurrentState       lead.State   `json:"current_state"`
	SuggestedState     *lead.State  `json:"suggested_state"`
	AllowedTransitions []lead.State `json:"allowed_transitions"`
	MissingData        []string     `json:"missing_data"`
}

// RequiredOutput is the lead_required response.
type RequiredOutput struct {
	State        lead.State `json:"state"`
	RequiredData []string   `json:"required_data"`
	MissingData  []string   `json:"missing_data,omitempty"`
}

func (h *Handlers) machine(l *lead.Lead) *lead.Machine {
	return lead.NewMachine(l, lead.WithLogger(h.logger), lead.WithObserver(h.observer))
}

// HandleLeadCreate handles the lead_create tool call.
func (h *Handlers) HandleLeadCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LeadCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	l, err := h.sessions.Create(lead.Canal(input.Canal), input.MensajeInicial)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(l)
}

// HandleLeadGet handles the lead_get tool call.
func (h *Handlers) HandleLeadGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LeadRef](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	l, err := h.sessions.Get(input.LeadID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(l)
}

// HandleLeadUpdate handles the lead_update tool call.
func (h *Handlers) HandleLeadUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LeadUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	d := input.ExtractedData
	if d.Urgencia != "" && !d.Urgencia.Valid() {
		return errorResult(errors.NewInvalidRequest("unknown urgencia: " + string(d.Urgencia))), nil
	}
	if d.Maquina.Uso != "" && !d.Maquina.Uso.Valid() {
		return errorResult(errors.NewInvalidRequest("unknown uso: " + string(d.Maquina.Uso))), nil
	}
	if input.LeadScore != "" && !input.LeadScore.Valid() {
		return errorResult(errors.NewInvalidRequest("unknown lead_score: " + string(input.LeadScore))), nil
	}

	var out *lead.Lead
	err = h.sessions.With(input.LeadID, func(l *lead.Lead) error {
		if err := l.Merge(d); err != nil {
			return errors.NewInternal(err)
		}
		if input.LeadScore != "" {
			l.LeadScore = input.LeadScore
		}
		if input.AssignedVendor != "" {
			l.AssignedVendor = input.AssignedVendor
		}
		out = l.Clone()
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleLeadTransition handles the lead_transition tool call.
func (h *Handlers) HandleLeadTransition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LeadTransitionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	to, err := lead.ParseState(input.To)
	if err != nil {
		return errorResult(err), nil
	}
	checkpoint := lead.CheckpointForState(to)
	if input.Checkpoint != nil {
		checkpoint = *input.Checkpoint
	}

	var out TransitionOutput
	err = h.sessions.With(input.LeadID, func(l *lead.Lead) error {
		out.From = l.CurrentState
		out.Success = h.machine(l).Transition(to, checkpoint)
		out.To = l.CurrentState
		out.Lead = l.Clone()
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleLeadSuggest handles the lead_suggest tool call.
func (h *Handlers) HandleLeadSuggest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LeadRef](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	l, err := h.sessions.Get(input.LeadID)
	if err != nil {
		return errorResult(err), nil
	}

	out := SuggestOutput{
		LeadID:             l.ID,
		CurrentState:       l.CurrentState,
		AllowedTransitions: lead.AllowedTransitions(l.CurrentState),
		MissingData:        l.MissingData(),
	}
	if next, ok := h.machine(l).SuggestNextState(); ok {
		out.SuggestedState = &next
	}
	return successResult(out)
}

// HandleLeadRequired handles the lead_required tool call.
func (h *Handlers) HandleLeadRequired(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LeadRequiredRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	state, err := lead.ParseState(input.State)
	if err != nil {
		return errorResult(err), nil
	}

	out := RequiredOutput{State: state, RequiredData: lead.RequiredDataForState(state)}
	if input.LeadID != "" {
		l, err := h.sessions.Get(input.LeadID)
		if err != nil {
			return errorResult(err), nil
		}
		out.MissingData = l.MissingDataFor(state)
	}
	return successResult(out)
}

// HandleLeadMessage handles the lead_message tool call.
func (h *Handlers) HandleLeadMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LeadMessageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.advisor == nil {
		return errorResult(errors.NewNotConfigured("advisor")), nil
	}

	var resp *advisor.MessageResponse
	err = h.sessions.With(input.LeadID, func(l *lead.Lead) error {
		var err error
		resp, err = h.advisor.ProcessMessage(ctx, l, input.Message)
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(resp)
}
