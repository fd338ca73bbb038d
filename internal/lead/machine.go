package lead

import (
	"go.uber.org/zap"
)

// Observer is notified of every transition attempt.
type Observer func(from, to State, ok bool)

// Machine validates and executes transitions on a single lead.
// It only ever mutates the lead it was constructed with.
type Machine struct {
	lead     *Lead
	logger   *zap.Logger
	observer Observer
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for rejected transitions and exit-handler warnings.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers a callback for transition attempts.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observer = o }
}

// NewMachine returns a state machine bound to l.
func NewMachine(l *Lead, opts ...Option) *Machine {
	m := &Machine{lead: l, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lead returns the lead the machine drives.
func (m *Machine) Lead() *Lead { return m.lead }

// Transition moves the lead to to, recording checkpoint.
// An illegal transition returns false and leaves the lead untouched.
func (m *Machine) Transition(to State, checkpoint int) bool {
	from := m.lead.CurrentState

	if !CanTransition(from, to) {
		m.logger.Warn("rejected transition",
			zap.String("lead_id", m.lead.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		m.notify(from, to, false)
		return false
	}

	m.exit(from)

	m.lead.CurrentState = to
	m.lead.Checkpoint = checkpoint

	m.logger.Info("transition",
		zap.String("lead_id", m.lead.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("checkpoint", checkpoint))
	m.notify(from, to, true)
	return true
}

// SuggestNextState proposes the next state from the lead's current data.
// The second result is false when there is no suggestion; callers must not
// transition in that case. The lead is never mutated.
func (m *Machine) SuggestNextState() (State, bool) {
	l := m.lead

	switch l.CurrentState {
	case StateNew:
		if l.ExtractedData.ImplementoInteres != "" {
			return StateCollectingTechData, true
		}
	case StateCollectingTechData:
		if l.IsQualified() {
			return StateQualified, true
		}
		if len(l.MissingData()) > 2 {
			return StateFollowUp, true
		}
	case StateQualified:
		if l.ExtractedData.Zona != "" {
			return StateAssigned, true
		}
	case StateFollowUp:
		if l.IsQualified() {
			return StateQualified, true
		}
		if l.ExtractedData.ImplementoInteres != "" {
			return StateCollectingTechData, true
		}
	case StateAssigned:
	}
	return "", false
}

// Advance transitions to the suggested state using its default checkpoint.
// Returns the new state and true, or false when there was nothing to do.
func (m *Machine) Advance() (State, bool) {
	next, ok := m.SuggestNextState()
	if !ok {
		return m.lead.CurrentState, false
	}
	if !m.Transition(next, CheckpointForState(next)) {
		return m.lead.CurrentState, false
	}
	return next, true
}

// exit runs the side effects of leaving state s. It never blocks a transition.
func (m *Machine) exit(s State) {
	l := m.lead
	log := m.logger.With(zap.String("lead_id", l.ID), zap.String("state", string(s)))

	switch s {
	case StateNew:
		if !l.HasContactChannel() {
			log.Warn("no contact channel identified")
		}
	case StateCollectingTechData:
		if len(l.MissingData()) > 0 {
			l.AddFlag(FlagMissingTechData)
		} else {
			l.RemoveFlag(FlagMissingTechData)
		}
	case StateQualified:
		if !l.IsQualified() {
			log.Warn("lead left QUALIFIED with missing data", zap.Strings("missing", l.MissingData()))
			l.AddFlag(FlagMissingTechData)
		}
	case StateFollowUp:
		if missing := l.MissingData(); len(missing) > 0 {
			log.Info("missing data for follow-up", zap.Strings("missing", missing))
		}
	case StateAssigned:
		if l.AssignedVendor == "" {
			log.Warn("lead in ASSIGNED without vendor")
		}
	default:
		log.Warn("no exit handler for state")
	}
}

func (m *Machine) notify(from, to State, ok bool) {
	if m.observer != nil {
		m.observer(from, to, ok)
	}
}
