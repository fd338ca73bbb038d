package lead

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/asesor/internal/errors"
)

func TestNew(t *testing.T) {
	l := New(CanalWhatsApp, "Hola, necesito un balde para una Bobcat S70")

	assert.Len(t, l.ID, 26)
	assert.Equal(t, StateNew, l.CurrentState)
	assert.Equal(t, 1, l.Checkpoint)
	assert.Empty(t, l.Flags())
	assert.False(t, l.SyncedToCRM)
	assert.NotEqual(t, l.ID, New(CanalWeb, "").ID)
}

func TestAppendMessage(t *testing.T) {
	l := New(CanalWeb, "")
	first := l.AppendMessage("user", "hola")
	second := l.AppendMessage("assistant", "¿Qué implemento busca?")

	require.Len(t, l.ConversationHistory, 2)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "user", l.ConversationHistory[0].Role)
	assert.Equal(t, "¿Qué implemento busca?", l.ConversationHistory[1].Content)
}

func TestMerge_OnlyNonEmpty(t *testing.T) {
	l := New(CanalWeb, "")
	require.NoError(t, l.Merge(ExtractedData{
		ImplementoInteres: "balde",
		Maquina:           Maquina{Marca: "Bobcat", Modelo: "S70"},
	}))
	require.NoError(t, l.Merge(ExtractedData{
		Zona:    "Buenos Aires",
		Maquina: Maquina{Uso: UsoObra},
	}))

	d := l.ExtractedData
	assert.Equal(t, "balde", d.ImplementoInteres)
	assert.Equal(t, "Buenos Aires", d.Zona)
	assert.Equal(t, "Bobcat", d.Maquina.Marca)
	assert.Equal(t, "S70", d.Maquina.Modelo)
	assert.Equal(t, UsoObra, d.Maquina.Uso)

	require.NoError(t, l.Merge(ExtractedData{Maquina: Maquina{Marca: "Caterpillar"}}))
	assert.Equal(t, "Caterpillar", l.ExtractedData.Maquina.Marca)
	assert.Equal(t, "S70", l.ExtractedData.Maquina.Modelo)
}

func TestMissingData(t *testing.T) {
	l := New(CanalWeb, "")
	assert.Equal(t, []string{"nombre", "zona", "marca", "implemento_interes"}, l.MissingData())
	assert.False(t, l.IsQualified())

	require.NoError(t, l.Merge(qualifiedData()))
	assert.Empty(t, l.MissingData())
	assert.True(t, l.IsQualified())

	assert.Equal(t, []string{"vendedor_asignado"}, l.MissingDataFor(StateAssigned))
	l.AssignedVendor = "V-12"
	assert.Empty(t, l.MissingDataFor(StateAssigned))
	assert.Empty(t, l.MissingDataFor(StateFollowUp))
}

func TestFieldValue(t *testing.T) {
	l := New(CanalWeb, "")
	require.NoError(t, l.Merge(ExtractedData{
		Nombre:   "Juan",
		Urgencia: UrgenciaAlta,
		Maquina:  Maquina{Uso: UsoAgro, Modelo: "242D"},
	}))

	assert.Equal(t, "Juan", l.FieldValue(FieldNombre))
	assert.Equal(t, "alta", l.FieldValue(FieldUrgencia))
	assert.Equal(t, "agro", l.FieldValue(FieldUso))
	assert.Equal(t, "242D", l.FieldValue(FieldModelo))
	assert.Equal(t, "", l.FieldValue("color"))
}

func TestFlags(t *testing.T) {
	l := New(CanalWeb, "")
	l.AddFlag(FlagNoVendorForZone)
	l.AddFlag(FlagMissingTechData)
	l.AddFlag(FlagMissingTechData)

	assert.Equal(t, []Flag{FlagMissingTechData, FlagNoVendorForZone}, l.Flags())
	assert.True(t, l.HasFlag(FlagNoVendorForZone))

	l.RemoveFlag(FlagNoVendorForZone)
	l.RemoveFlag(FlagCRMSyncFailed)
	assert.Equal(t, []Flag{FlagMissingTechData}, l.Flags())

	var zero Lead
	zero.RemoveFlag(FlagCRMSyncFailed)
	assert.False(t, zero.HasFlag(FlagCRMSyncFailed))
	zero.AddFlag(FlagCRMSyncFailed)
	assert.True(t, zero.HasFlag(FlagCRMSyncFailed))
}

func TestClone_Independent(t *testing.T) {
	l := New(CanalWeb, "")
	l.AppendMessage("user", "hola")
	l.AddFlag(FlagMissingTechData)

	c := l.Clone()
	c.AppendMessage("assistant", "respuesta")
	c.AddFlag(FlagCRMSyncFailed)
	c.ExtractedData.Zona = "Mendoza"

	assert.Len(t, l.ConversationHistory, 1)
	assert.False(t, l.HasFlag(FlagCRMSyncFailed))
	assert.Empty(t, l.ExtractedData.Zona)
	assert.Equal(t, l.ID, c.ID)
}

func TestLead_MarshalJSON(t *testing.T) {
	l := New(CanalWhatsApp, "hola")
	l.AddFlag(FlagMissingTechData)
	require.NoError(t, l.Merge(ExtractedData{Maquina: Maquina{Marca: "Bobcat"}}))

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "NEW", out["current_state"])
	assert.Equal(t, float64(1), out["checkpoint"])
	assert.Equal(t, []any{"MISSING_TECH_DATA"}, out["flags"])
	assert.Equal(t, []any{}, out["conversation_history"])
	extracted := out["extracted_data"].(map[string]any)
	assert.Equal(t, map[string]any{"marca": "Bobcat"}, extracted["mini_cargadora"])
}

func TestParseState(t *testing.T) {
	s, err := ParseState(" qualified ")
	require.NoError(t, err)
	assert.Equal(t, StateQualified, s)

	_, err = ParseState("ARCHIVED")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRequiredDataForState(t *testing.T) {
	assert.Empty(t, RequiredDataForState(StateNew))
	assert.Empty(t, RequiredDataForState(StateFollowUp))
	assert.Equal(t, []string{"implemento_interes"}, RequiredDataForState(StateCollectingTechData))
	assert.Equal(t, []string{"nombre", "zona", "marca", "implemento_interes", "vendedor_asignado"},
		RequiredDataForState(StateAssigned))

	// Callers can't corrupt the table
	req := RequiredDataForState(StateQualified)
	req[0] = "x"
	assert.Equal(t, "nombre", RequiredDataForState(StateQualified)[0])
}

func TestCheckpointForState(t *testing.T) {
	want := map[State]int{
		StateNew:                1,
		StateCollectingTechData: 2,
		StateQualified:          3,
		StateAssigned:           4,
		StateFollowUp:           2,
	}
	for s, cp := range want {
		assert.Equal(t, cp, CheckpointForState(s), "state %s", s)
	}
}

func TestEnumValid(t *testing.T) {
	assert.True(t, CanalTelefono.Valid())
	assert.False(t, Canal("fax").Valid())
	assert.True(t, UsoIndustria.Valid())
	assert.False(t, Uso("").Valid())
	assert.True(t, UrgenciaBaja.Valid())
	assert.True(t, ScoreMedio.Valid())
	assert.False(t, Score("excelente").Valid())
}
