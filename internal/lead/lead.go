// Package lead models a prospect's conversation record and the state machine
// that qualifies it.
package lead

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/oklog/ulid/v2"
)

// Canal is the channel a lead first arrived on.
type Canal string

const (
	CanalWhatsApp Canal = "whatsapp"
	CanalWeb      Canal = "web"
	CanalEmail    Canal = "email"
	CanalTelefono Canal = "telefono"
)

// Uso is the intended use of the lead's machine.
type Uso string

const (
	UsoObra      Uso = "obra"
	UsoAgro      Uso = "agro"
	UsoIndustria Uso = "industria"
	UsoOtro      Uso = "otro"
)

// Urgencia is how soon the lead needs the implement.
type Urgencia string

const (
	UrgenciaAlta  Urgencia = "alta"
	UrgenciaMedia Urgencia = "media"
	UrgenciaBaja  Urgencia = "baja"
)

// Score is the commercial score assigned by the completion collaborator.
type Score string

const (
	ScoreAlto  Score = "alto"
	ScoreMedio Score = "medio"
	ScoreBajo  Score = "bajo"
)

func (c Canal) Valid() bool {
	switch c {
	case CanalWhatsApp, CanalWeb, CanalEmail, CanalTelefono:
		return true
	}
	return false
}

func (u Uso) Valid() bool {
	switch u {
	case UsoObra, UsoAgro, UsoIndustria, UsoOtro:
		return true
	}
	return false
}

func (u Urgencia) Valid() bool {
	switch u {
	case UrgenciaAlta, UrgenciaMedia, UrgenciaBaja:
		return true
	}
	return false
}

func (s Score) Valid() bool {
	switch s {
	case ScoreAlto, ScoreMedio, ScoreBajo:
		return true
	}
	return false
}

// Maquina describes the lead's machine. Empty strings mean unknown.
type Maquina struct {
	Marca  string `json:"marca,omitempty"`
	Modelo string `json:"modelo,omitempty"`
	Uso    Uso    `json:"uso,omitempty"`
}

// ExtractedData holds the facts gathered from the conversation so far.
type ExtractedData struct {
	Nombre            string   `json:"nombre,omitempty"`
	Zona              string   `json:"zona,omitempty"`
	ImplementoInteres string   `json:"implemento_interes,omitempty"`
	Urgencia          Urgencia `json:"urgencia,omitempty"`
	Maquina           Maquina  `json:"mini_cargadora" copier:"-"`
}

// Message is one exchanged message in a lead's conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Lead is the mutable record of one prospect's conversation.
type Lead struct {
	ID             string
	Canal          Canal
	MensajeInicial string
	CreatedAt      time.Time

	CurrentState State
	Checkpoint   int

	ExtractedData       ExtractedData
	ConversationHistory []Message

	// Set only after assignment / a successful CRM sync.
	AssignedVendor string
	CRMID          string
	SyncedToCRM    bool

	LeadScore Score

	flags FlagSet
}

// New creates a lead in NEW with checkpoint 1.
func New(canal Canal, mensaje string) *Lead {
	return &Lead{
		ID:             ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String(),
		Canal:          canal,
		MensajeInicial: mensaje,
		CreatedAt:      time.Now().UTC(),
		CurrentState:   StateNew,
		Checkpoint:     CheckpointForState(StateNew),
		flags:          FlagSet{},
	}
}

// AppendMessage records a message and returns it.
func (l *Lead) AppendMessage(role, content string) Message {
	m := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	l.ConversationHistory = append(l.ConversationHistory, m)
	return m
}

// Merge overwrites extracted fields with the non-empty fields of in.
func (l *Lead) Merge(in ExtractedData) error {
	if err := copier.CopyWithOption(&l.ExtractedData, &in, copier.Option{IgnoreEmpty: true}); err != nil {
		return err
	}
	return copier.CopyWithOption(&l.ExtractedData.Maquina, &in.Maquina, copier.Option{IgnoreEmpty: true})
}

// FieldValue returns the value of a named field, "" when unset or unknown.
func (l *Lead) FieldValue(name string) string {
	d := l.ExtractedData
	switch name {
	case FieldNombre:
		return d.Nombre
	case FieldZona:
		return d.Zona
	case FieldMarca:
		return d.Maquina.Marca
	case FieldModelo:
		return d.Maquina.Modelo
	case FieldUso:
		return string(d.Maquina.Uso)
	case FieldImplementoInteres:
		return d.ImplementoInteres
	case FieldUrgencia:
		return string(d.Urgencia)
	case FieldVendedorAsignado:
		return l.AssignedVendor
	}
	return ""
}

// MissingDataFor returns the fields required for target that are unset.
func (l *Lead) MissingDataFor(target State) []string {
	missing := []string{}
	for _, f := range RequiredDataForState(target) {
		if l.FieldValue(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// MissingData returns the qualification fields still unset.
func (l *Lead) MissingData() []string {
	return l.MissingDataFor(StateQualified)
}

// IsQualified reports whether every qualification field is set.
func (l *Lead) IsQualified() bool {
	return len(l.MissingData()) == 0
}

// HasContactChannel reports whether the lead's channel is known.
func (l *Lead) HasContactChannel() bool {
	return l.Canal != ""
}

// AddFlag marks the lead with f.
func (l *Lead) AddFlag(f Flag) {
	if l.flags == nil {
		l.flags = FlagSet{}
	}
	l.flags.add(f)
}

// RemoveFlag clears f. Clearing an absent flag is a no-op.
func (l *Lead) RemoveFlag(f Flag) {
	l.flags.remove(f)
}

// HasFlag reports whether f is set.
func (l *Lead) HasFlag(f Flag) bool {
	return l.flags.has(f)
}

// Flags returns the set flags in lexical order.
func (l *Lead) Flags() []Flag {
	return l.flags.sorted()
}

// Clone returns a deep copy. Mutating the clone never affects l.
func (l *Lead) Clone() *Lead {
	c := *l
	c.ConversationHistory = append([]Message(nil), l.ConversationHistory...)
	c.flags = make(FlagSet, len(l.flags))
	for f := range l.flags {
		c.flags[f] = struct{}{}
	}
	return &c
}

// leadJSON is the wire view of a Lead.
type leadJSON struct {
	ID                  string        `json:"id"`
	Canal               Canal         `json:"canal,omitempty"`
	MensajeInicial      string        `json:"mensaje_inicial,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	CurrentState        State         `json:"current_state"`
	Checkpoint          int           `json:"checkpoint"`
	ExtractedData       ExtractedData `json:"extracted_data"`
	Flags               []Flag        `json:"flags"`
	ConversationHistory []Message     `json:"conversation_history"`
	AssignedVendor      string        `json:"assigned_vendor,omitempty"`
	CRMID               string        `json:"crm_id,omitempty"`
	SyncedToCRM         bool          `json:"synced_to_crm"`
	LeadScore           Score         `json:"lead_score,omitempty"`
}

// MarshalJSON renders the lead with flags as a sorted list.
func (l *Lead) MarshalJSON() ([]byte, error) {
	history := l.ConversationHistory
	if history == nil {
		history = []Message{}
	}
	return json.Marshal(leadJSON{
		ID:                  l.ID,
		Canal:               l.Canal,
		MensajeInicial:      l.MensajeInicial,
		CreatedAt:           l.CreatedAt,
		CurrentState:        l.CurrentState,
		Checkpoint:          l.Checkpoint,
		ExtractedData:       l.ExtractedData,
		Flags:               l.Flags(),
		ConversationHistory: history,
		AssignedVendor:      l.AssignedVendor,
		CRMID:               l.CRMID,
		SyncedToCRM:         l.SyncedToCRM,
		LeadScore:           l.LeadScore,
	})
}
