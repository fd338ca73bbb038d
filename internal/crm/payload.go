package crm

import (
	"time"

	"github.com/hpungsan/asesor/internal/lead"
)

// Payload is the CRM's lead representation.
type Payload struct {
	Source              string         `json:"source"`
	CreatedAt           string         `json:"created_at"`
	State               lead.State     `json:"state"`
	Score               *string        `json:"score"`
	Contact             Contact        `json:"contact"`
	TechnicalData       TechnicalData  `json:"technical_data"`
	ConversationHistory []lead.Message `json:"conversation_history"`
	Flags               []lead.Flag    `json:"flags"`
	Checkpoint          int            `json:"checkpoint"`
}

type Contact struct {
	Name *string `json:"name"`
	Zone *string `json:"zone"`
}

type TechnicalData struct {
	MachineBrand      *string `json:"machine_brand"`
	MachineModel      *string `json:"machine_model"`
	MachineUse        *string `json:"machine_use"`
	ImplementInterest *string `json:"implement_interest"`
	Urgency           *string `json:"urgency"`
}

// NewPayload builds the CRM payload for l. Unknown values are sent as null.
func NewPayload(l *lead.Lead) Payload {
	d := l.ExtractedData
	source := string(l.Canal)
	if source == "" {
		source = "unknown"
	}
	history := l.ConversationHistory
	if history == nil {
		history = []lead.Message{}
	}
	return Payload{
		Source:    source,
		CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		State:     l.CurrentState,
		Score:     optional(string(l.LeadScore)),
		Contact: Contact{
			Name: optional(d.Nombre),
			Zone: optional(d.Zona),
		},
		TechnicalData: TechnicalData{
			MachineBrand:      optional(d.Maquina.Marca),
			MachineModel:      optional(d.Maquina.Modelo),
			MachineUse:        optional(string(d.Maquina.Uso)),
			ImplementInterest: optional(d.ImplementoInteres),
			Urgency:           optional(string(d.Urgencia)),
		},
		ConversationHistory: history,
		Flags:               l.Flags(),
		Checkpoint:          l.Checkpoint,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
