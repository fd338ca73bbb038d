package lead

import (
	"strings"

	"github.com/hpungsan/asesor/internal/errors"
)

// State is a qualification state of a lead.
type State string

const (
	StateNew                State = "NEW"
	StateCollectingTechData State = "COLLECTING_TECH_DATA"
	StateQualified          State = "QUALIFIED"
	StateFollowUp           State = "FOLLOW_UP"
	StateAssigned           State = "ASSIGNED"
)

// States lists every state in declaration order.
var States = []State{
	StateNew,
	StateCollectingTechData,
	StateQualified,
	StateFollowUp,
	StateAssigned,
}

// Field names used by the required-data tables and FieldValue.
const (
	FieldNombre            = "nombre"
	FieldZona              = "zona"
	FieldMarca             = "marca"
	FieldModelo            = "modelo"
	FieldUso               = "uso"
	FieldImplementoInteres = "implemento_interes"
	FieldUrgencia          = "urgencia"
	FieldVendedorAsignado  = "vendedor_asignado"
)

// validTransitions is directed; ASSIGNED only goes back to FOLLOW_UP for re-engagement.
var validTransitions = map[State][]State{
	StateNew:                {StateCollectingTechData, StateFollowUp},
	StateCollectingTechData: {StateQualified, StateFollowUp, StateNew},
	StateQualified:          {StateAssigned, StateFollowUp},
	StateFollowUp:           {StateCollectingTechData, StateQualified, StateAssigned},
	StateAssigned:           {StateFollowUp},
}

var qualificationFields = []string{FieldNombre, FieldZona, FieldMarca, FieldImplementoInteres}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the states reachable from s.
func AllowedTransitions(s State) []State {
	return append([]State(nil), validTransitions[s]...)
}

// RequiredDataForState returns the fields a lead needs to reach s.
// Unknown states and states without requirements return an empty slice.
func RequiredDataForState(s State) []string {
	switch s {
	case StateCollectingTechData:
		return []string{FieldImplementoInteres}
	case StateQualified:
		return append([]string(nil), qualificationFields...)
	case StateAssigned:
		return append(append([]string(nil), qualificationFields...), FieldVendedorAsignado)
	default:
		return []string{}
	}
}

// CheckpointForState is the progress milestone recorded when a lead enters s.
// FOLLOW_UP shares the collecting checkpoint.
func CheckpointForState(s State) int {
	switch s {
	case StateCollectingTechData, StateFollowUp:
		return 2
	case StateQualified:
		return 3
	case StateAssigned:
		return 4
	default:
		return 1
	}
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// ParseState parses a state name, case-insensitively.
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", errors.NewInvalidRequest("unknown state: " + s)
	}
	return st, nil
}
