package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	aerrors "github.com/hpungsan/asesor/internal/errors"
	"github.com/hpungsan/asesor/internal/lead"
	"github.com/hpungsan/asesor/internal/llm"
)

// ErrorInfo is the wire view of a structured error carried inside a successful response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	if aErr, ok := err.(*aerrors.AsesorError); ok {
		return &ErrorInfo{Code: string(aErr.Code), Message: aErr.Message}
	}
	return &ErrorInfo{Code: string(aerrors.ErrInternal), Message: err.Error()}
}

// MessageResponse is the outcome of one lead utterance.
type MessageResponse struct {
	LeadID          string             `json:"lead_id"`
	ReplyToUser     string             `json:"reply_to_user"`
	StateTransition lead.State         `json:"state_transition"`
	Checkpoint      int                `json:"checkpoint"`
	ExtractedData   lead.ExtractedData `json:"extracted_data"`
	Flags           []lead.Flag        `json:"flags"`
	MissingData     []string           `json:"missing_data"`
	LeadScore       lead.Score         `json:"lead_score,omitempty"`
	CRMError        *ErrorInfo         `json:"crm_error,omitempty"`
}

// QualifyResult reports what Qualify did to a lead.
type QualifyResult struct {
	From     lead.State   `json:"from"`
	To       lead.State   `json:"to"`
	Path     []lead.State `json:"path"`
	CRMError *ErrorInfo   `json:"crm_error,omitempty"`
}

// leadReply is the JSON the completion collaborator returns for a lead utterance.
type leadReply struct {
	ReplyToUser   string             `json:"reply_to_user"`
	ExtractedData lead.ExtractedData `json:"extracted_data"`
	LeadScore     lead.Score         `json:"lead_score"`
}

// ProcessMessage records utterance on l, extracts data from the completion
// collaborator's reply, advances the lead as far as its data allows and
// records the reply. A reply that is not JSON is passed through as plain text
// with no extraction. If the completion fails l is left as it was, so the
// utterance can be retried. The caller must serialize access to l.
func (a *Advisor) ProcessMessage(ctx context.Context, l *lead.Lead, utterance string) (*MessageResponse, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, aerrors.NewInvalidRequest("message is required")
	}
	if a.completer == nil {
		return nil, aerrors.NewNotConfigured(llm.Service)
	}
	log := a.logger.With(zap.String("lead_id", l.ID))

	n := len(l.ConversationHistory)
	l.AppendMessage(llm.RoleUser, utterance)

	raw, err := a.completer.Complete(ctx, a.leadMessages(l))
	if err != nil {
		l.ConversationHistory = l.ConversationHistory[:n]
		log.Warn("completion failed", zap.Error(err))
		return nil, err
	}

	reply := leadReply{ReplyToUser: raw}
	var decoded leadReply
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		reply = decoded
		a.applyReply(log, l, decoded)
	} else {
		log.Warn("undecodable completion, replying with raw text", zap.Error(err))
	}

	res := a.Qualify(ctx, l)

	if reply.ReplyToUser != "" {
		l.AppendMessage(llm.RoleAssistant, reply.ReplyToUser)
	}

	return &MessageResponse{
		LeadID:          l.ID,
		ReplyToUser:     reply.ReplyToUser,
		StateTransition: l.CurrentState,
		Checkpoint:      l.Checkpoint,
		ExtractedData:   l.ExtractedData,
		Flags:           l.Flags(),
		MissingData:     l.MissingData(),
		LeadScore:       l.LeadScore,
		CRMError:        res.CRMError,
	}, nil
}

// applyReply merges extracted data and score, dropping enum values the lead model does not know.
func (a *Advisor) applyReply(log *zap.Logger, l *lead.Lead, r leadReply) {
	d := r.ExtractedData
	if d.Urgencia != "" && !d.Urgencia.Valid() {
		log.Warn("ignoring unknown urgencia", zap.String("value", string(d.Urgencia)))
		d.Urgencia = ""
	}
	if d.Maquina.Uso != "" && !d.Maquina.Uso.Valid() {
		log.Warn("ignoring unknown uso", zap.String("value", string(d.Maquina.Uso)))
		d.Maquina.Uso = ""
	}
	if err := l.Merge(d); err != nil {
		log.Warn("merging extracted data", zap.Error(err))
	}
	if r.LeadScore.Valid() {
		l.LeadScore = r.LeadScore
	}
}

// Qualify repeatedly applies the suggested transition until there is no
// suggestion or a state would repeat. Before ASSIGNED a vendor is resolved for
// the lead's zone; after reaching ASSIGNED the lead is synced to the CRM and
// assigned. A CRM failure sets CRM_SYNC_FAILED and is reported in the result;
// the lead keeps whatever state it reached.
func (a *Advisor) Qualify(ctx context.Context, l *lead.Lead) QualifyResult {
	m := lead.NewMachine(l, lead.WithLogger(a.logger), lead.WithObserver(a.observer))
	res := QualifyResult{From: l.CurrentState, Path: []lead.State{}}
	seen := map[lead.State]bool{l.CurrentState: true}

	for range lead.States {
		next, ok := m.SuggestNextState()
		if !ok || seen[next] {
			break
		}
		if next == lead.StateAssigned {
			if !a.resolveVendor(ctx, l, &res) {
				break
			}
		}
		if !m.Transition(next, lead.CheckpointForState(next)) {
			break
		}
		seen[next] = true
		res.Path = append(res.Path, next)

		if next == lead.StateAssigned {
			a.syncAssigned(ctx, l, &res)
		}
	}

	res.To = l.CurrentState
	return res
}

// resolveVendor sets l.AssignedVendor from the CRM. It reports whether the lead may move to ASSIGNED.
func (a *Advisor) resolveVendor(ctx context.Context, l *lead.Lead, res *QualifyResult) bool {
	if l.AssignedVendor != "" {
		return true
	}
	if a.crm == nil || !a.crm.Configured() {
		a.logger.Debug("crm not configured, lead stays qualified", zap.String("lead_id", l.ID))
		return false
	}
	v, err := a.crm.VendorByZone(ctx, l.ExtractedData.Zona)
	if err != nil {
		a.crmFailed(l, res, err)
		return false
	}
	if v == nil || v.ID == "" {
		a.logger.Warn("no vendor for zone", zap.String("lead_id", l.ID), zap.String("zona", l.ExtractedData.Zona))
		l.AddFlag(lead.FlagNoVendorForZone)
		return false
	}
	l.RemoveFlag(lead.FlagNoVendorForZone)
	l.AssignedVendor = v.ID
	return true
}

func (a *Advisor) syncAssigned(ctx context.Context, l *lead.Lead, res *QualifyResult) {
	if a.crm == nil || !a.crm.Configured() {
		return
	}
	if err := a.crm.SyncLead(ctx, l); err != nil {
		a.crmFailed(l, res, err)
		return
	}
	if err := a.crm.AssignToVendor(ctx, l.CRMID, l.AssignedVendor, l.ExtractedData.Zona); err != nil {
		a.crmFailed(l, res, err)
		return
	}
	l.RemoveFlag(lead.FlagCRMSyncFailed)
}

func (a *Advisor) crmFailed(l *lead.Lead, res *QualifyResult, err error) {
	a.logger.Warn("crm sync failed", zap.String("lead_id", l.ID), zap.Error(err))
	l.AddFlag(lead.FlagCRMSyncFailed)
	res.CRMError = errorInfo(err)
}

// leadMessages builds the completion transcript for l.
func (a *Advisor) leadMessages(l *lead.Lead) []llm.ChatMessage {
	known, _ := json.Marshal(l.ExtractedData)
	status := fmt.Sprintf(leadPrompt, l.CurrentState, known, strings.Join(l.MissingData(), ", "))

	msgs := a.withSystem(llm.ChatMessage{Role: llm.RoleSystem, Content: status})
	for _, m := range l.ConversationHistory {
		role := m.Role
		if role != llm.RoleAssistant {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return msgs
}

const leadPrompt = `Estado del lead: %s
Datos conocidos: %s
Datos faltantes: %s

Responde solo con JSON:
{"reply_to_user": "...", "extracted_data": {"nombre": "", "zona": "", "implemento_interes": "", "urgencia": "alta|media|baja", "mini_cargadora": {"marca": "", "modelo": "", "uso": "obra|agro|industria|otro"}}, "lead_score": "alto|medio|bajo"}
Omite los campos que no conozcas.`
