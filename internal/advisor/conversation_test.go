package advisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hpungsan/asesor/internal/crm"
	aerrors "github.com/hpungsan/asesor/internal/errors"
	"github.com/hpungsan/asesor/internal/lead"
	"github.com/hpungsan/asesor/internal/llm"
)

const fullReply = `{
	"reply_to_user": "Perfecto Ana, te contacta un asesor.",
	"extracted_data": {
		"nombre": "Ana",
		"zona": "Norte",
		"implemento_interes": "balde",
		"urgencia": "alta",
		"mini_cargadora": {"marca": "Bobcat", "modelo": "S70", "uso": "obra"}
	},
	"lead_score": "alto"
}`

func qualifiedData() lead.ExtractedData {
	return lead.ExtractedData{
		Nombre:            "Ana",
		Zona:              "Norte",
		ImplementoInteres: "balde",
		Urgencia:          lead.UrgenciaAlta,
		Maquina:           lead.Maquina{Marca: "Bobcat", Modelo: "S70", Uso: lead.UsoObra},
	}
}

func TestProcessMessage_FullQualification(t *testing.T) {
	c := &fakeCompleter{replies: []string{fullReply}}
	fc := &fakeCRM{configured: true, vendor: &crm.Vendor{ID: "v-9"}}
	var transitions []lead.State
	a := New(Options{
		Completer: c,
		Searcher:  exampleEngine(),
		CRM:       fc,
		Logger:    zaptest.NewLogger(t),
		Observer: func(_, to lead.State, ok bool) {
			if ok {
				transitions = append(transitions, to)
			}
		},
	})

	l := lead.New(lead.CanalWhatsApp, "hola")
	resp, err := a.ProcessMessage(context.Background(), l, "Soy Ana de Norte, busco un balde para mi Bobcat S70")
	require.NoError(t, err)

	assert.Equal(t, lead.StateAssigned, resp.StateTransition)
	assert.Equal(t, 4, resp.Checkpoint)
	assert.Equal(t, "Perfecto Ana, te contacta un asesor.", resp.ReplyToUser)
	assert.Equal(t, lead.ScoreAlto, resp.LeadScore)
	assert.Empty(t, resp.MissingData)
	assert.Empty(t, resp.Flags)
	assert.Nil(t, resp.CRMError)

	assert.Equal(t, []lead.State{lead.StateCollectingTechData, lead.StateQualified, lead.StateAssigned}, transitions)
	assert.Equal(t, "v-9", l.AssignedVendor)
	assert.Equal(t, "crm-1", l.CRMID)
	assert.Equal(t, 1, fc.synced)
	assert.Equal(t, []string{"crm-1/v-9"}, fc.assigned)

	require.Len(t, l.ConversationHistory, 2)
	assert.Equal(t, llm.RoleUser, l.ConversationHistory[0].Role)
	assert.Equal(t, llm.RoleAssistant, l.ConversationHistory[1].Role)
}

func TestProcessMessage_PartialDataStaysCollecting(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"reply_to_user": "¿Qué máquina tienes?", "extracted_data": {"implemento_interes": "balde", "nombre": "Luis"}}`}}
	a := New(Options{Completer: c, Searcher: exampleEngine()})

	l := lead.New(lead.CanalWeb, "")
	resp, err := a.ProcessMessage(context.Background(), l, "quiero un balde")
	require.NoError(t, err)

	assert.Equal(t, lead.StateCollectingTechData, resp.StateTransition)
	assert.Equal(t, 2, resp.Checkpoint)
	assert.Equal(t, []string{lead.FieldZona, lead.FieldMarca}, resp.MissingData)
	assert.Equal(t, "Luis", l.ExtractedData.Nombre)
}

func TestProcessMessage_PlainTextReply(t *testing.T) {
	c := &fakeCompleter{replies: []string{"Hola, ¿en qué te ayudo?"}}
	a := New(Options{Completer: c, Searcher: exampleEngine()})

	l := lead.New(lead.CanalEmail, "")
	resp, err := a.ProcessMessage(context.Background(), l, "hola")
	require.NoError(t, err)

	assert.Equal(t, "Hola, ¿en qué te ayudo?", resp.ReplyToUser)
	assert.Equal(t, lead.StateNew, resp.StateTransition)
	assert.Len(t, l.ConversationHistory, 2)
}

func TestProcessMessage_UnknownEnumsDropped(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"reply_to_user": "ok", "extracted_data": {"urgencia": "ya", "mini_cargadora": {"uso": "jardin", "marca": "JCB"}}, "lead_score": "excelente"}`}}
	a := New(Options{Completer: c, Searcher: exampleEngine()})

	l := lead.New(lead.CanalWeb, "")
	_, err := a.ProcessMessage(context.Background(), l, "hola")
	require.NoError(t, err)

	assert.Empty(t, l.ExtractedData.Urgencia)
	assert.Empty(t, l.ExtractedData.Maquina.Uso)
	assert.Equal(t, "JCB", l.ExtractedData.Maquina.Marca)
	assert.Empty(t, l.LeadScore)
}

func TestProcessMessage_CompletionFailure(t *testing.T) {
	a := New(Options{Completer: &fakeCompleter{err: aerrors.NewUpstreamFailed("llm", nil)}, Searcher: exampleEngine()})

	l := lead.New(lead.CanalWeb, "")
	_, err := a.ProcessMessage(context.Background(), l, "hola")
	assert.True(t, aerrors.Is(err, aerrors.ErrUpstreamFailed))

	_, err = a.ProcessMessage(context.Background(), l, "")
	assert.True(t, aerrors.Is(err, aerrors.ErrInvalidRequest))
}

func TestProcessMessage_FailedCompletionLeavesHistory(t *testing.T) {
	c := &fakeCompleter{err: aerrors.NewUpstreamFailed("llm", nil)}
	a := New(Options{Completer: c, Searcher: exampleEngine()})

	l := lead.New(lead.CanalWeb, "")
	_, err := a.ProcessMessage(context.Background(), l, "hola")
	require.Error(t, err)
	assert.Empty(t, l.ConversationHistory)
	assert.Equal(t, lead.StateNew, l.CurrentState)

	c.err = nil
	c.replies = []string{`{"reply_to_user": "¿Cómo te llamas?"}`}
	_, err = a.ProcessMessage(context.Background(), l, "hola")
	require.NoError(t, err)

	var users int
	for _, m := range l.ConversationHistory {
		if m.Role == llm.RoleUser {
			users++
		}
	}
	assert.Equal(t, 1, users)
	require.Len(t, l.ConversationHistory, 2)
	assert.Equal(t, "hola", l.ConversationHistory[0].Content)
}

func TestProcessMessage_TranscriptCarriesHistory(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"reply_to_user": "uno"}`, `{"reply_to_user": "dos"}`}}
	a := New(Options{Completer: c, Searcher: exampleEngine(), SystemPrompt: "sistema"})

	l := lead.New(lead.CanalWeb, "")
	_, err := a.ProcessMessage(context.Background(), l, "primero")
	require.NoError(t, err)
	_, err = a.ProcessMessage(context.Background(), l, "segundo")
	require.NoError(t, err)

	msgs := c.calls[1]
	// system prompt, lead status, user, assistant, user
	require.Len(t, msgs, 5)
	assert.Equal(t, "sistema", msgs[0].Content)
	assert.Contains(t, msgs[1].Content, "Estado del lead: NEW")
	assert.Equal(t, "uno", msgs[3].Content)
	assert.Equal(t, "segundo", msgs[4].Content)
}

func qualifiedLead() *lead.Lead {
	l := lead.New(lead.CanalWhatsApp, "")
	l.ExtractedData = qualifiedData()
	l.CurrentState = lead.StateQualified
	l.Checkpoint = 3
	return l
}

func TestQualify_NoVendorForZone(t *testing.T) {
	a := New(Options{Searcher: exampleEngine(), CRM: &fakeCRM{configured: true}})
	l := qualifiedLead()

	res := a.Qualify(context.Background(), l)

	assert.Equal(t, lead.StateQualified, res.To)
	assert.Empty(t, res.Path)
	assert.True(t, l.HasFlag(lead.FlagNoVendorForZone))
	assert.Nil(t, res.CRMError)
}

func TestQualify_CRMNotConfigured(t *testing.T) {
	a := New(Options{Searcher: exampleEngine()})
	l := qualifiedLead()

	res := a.Qualify(context.Background(), l)

	assert.Equal(t, lead.StateQualified, res.To)
	assert.Empty(t, l.Flags())
	assert.Nil(t, res.CRMError)
}

func TestQualify_VendorLookupFails(t *testing.T) {
	a := New(Options{Searcher: exampleEngine(), CRM: &fakeCRM{configured: true, vendorErr: aerrors.NewUpstreamStatus("crm", 500)}})
	l := qualifiedLead()

	res := a.Qualify(context.Background(), l)

	assert.Equal(t, lead.StateQualified, res.To)
	assert.True(t, l.HasFlag(lead.FlagCRMSyncFailed))
	require.NotNil(t, res.CRMError)
	assert.Equal(t, "UPSTREAM_FAILED", res.CRMError.Code)
}

func TestQualify_SyncFailureKeepsAssigned(t *testing.T) {
	fc := &fakeCRM{configured: true, vendor: &crm.Vendor{ID: "v-1"}, syncErr: aerrors.NewUpstreamTimeout("crm", 10)}
	a := New(Options{Searcher: exampleEngine(), CRM: fc})
	l := qualifiedLead()

	res := a.Qualify(context.Background(), l)

	assert.Equal(t, lead.StateAssigned, res.To)
	assert.Equal(t, []lead.State{lead.StateAssigned}, res.Path)
	assert.True(t, l.HasFlag(lead.FlagCRMSyncFailed))
	require.NotNil(t, res.CRMError)
	assert.Equal(t, "UPSTREAM_TIMEOUT", res.CRMError.Code)
	assert.Empty(t, fc.assigned)
}

func TestQualify_NoSuggestion(t *testing.T) {
	a := New(Options{Searcher: exampleEngine()})
	l := lead.New(lead.CanalWeb, "")

	res := a.Qualify(context.Background(), l)
	assert.Equal(t, lead.StateNew, res.From)
	assert.Equal(t, lead.StateNew, res.To)
	assert.Empty(t, res.Path)
}

func TestQualify_StopsOnRepeatedState(t *testing.T) {
	a := New(Options{Searcher: exampleEngine()})
	l := lead.New(lead.CanalWeb, "")
	l.ExtractedData.ImplementoInteres = "balde"

	res := a.Qualify(context.Background(), l)

	// NEW -> COLLECTING -> FOLLOW_UP; FOLLOW_UP would suggest COLLECTING again.
	assert.Equal(t, []lead.State{lead.StateCollectingTechData, lead.StateFollowUp}, res.Path)
	assert.Equal(t, lead.StateFollowUp, res.To)
}
