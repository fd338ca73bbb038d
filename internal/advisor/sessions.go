package advisor

import (
	"sort"
	"strings"
	"sync"

	aerrors "github.com/hpungsan/asesor/internal/errors"
	"github.com/hpungsan/asesor/internal/lead"
)

// Sessions is an in-process registry of leads keyed by ID.
// Each lead has its own lock so a slow conversation never blocks another.
type Sessions struct {
	mu    sync.RWMutex
	leads map[string]*session
}

type session struct {
	mu   sync.Mutex
	lead *lead.Lead
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{leads: make(map[string]*session)}
}

// Create registers a new lead and returns a copy of it.
func (s *Sessions) Create(canal lead.Canal, mensaje string) (*lead.Lead, error) {
	canal = lead.Canal(strings.ToLower(strings.TrimSpace(string(canal))))
	if canal != "" && !canal.Valid() {
		return nil, aerrors.NewInvalidRequest("unknown canal: " + string(canal))
	}
	l := lead.New(canal, mensaje)
	if mensaje != "" {
		l.AppendMessage("user", mensaje)
	}

	s.mu.Lock()
	s.leads[l.ID] = &session{lead: l}
	s.mu.Unlock()
	return l.Clone(), nil
}

func (s *Sessions) get(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.leads[id]
	s.mu.RUnlock()
	if !ok {
		return nil, aerrors.NewNotFound("lead", id)
	}
	return sess, nil
}

// Get returns a copy of the lead with the given id.
func (s *Sessions) Get(id string) (*lead.Lead, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.lead.Clone(), nil
}

// With runs fn with exclusive access to the lead with the given id.
func (s *Sessions) With(id string, fn func(l *lead.Lead) error) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess.lead)
}

// List returns copies of every lead ordered by id.
func (s *Sessions) List() []*lead.Lead {
	s.mu.RLock()
	all := make([]*session, 0, len(s.leads))
	for _, sess := range s.leads {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	out := make([]*lead.Lead, 0, len(all))
	for _, sess := range all {
		sess.mu.Lock()
		out = append(out, sess.lead.Clone())
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered leads.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads)
}
