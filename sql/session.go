package sql

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SessionID identifies an engine session. The empty id means no session.
type SessionID string

// Warning is a non fatal condition reported to the user.
type Warning struct {
	Level   string
	Code    int
	Message string
}

func (w *Warning) String() string {
	return fmt.Sprintf("%s %d: %s", w.Level, w.Code, w.Message)
}

// Session owns plan sources and keeps track of the plans that are still in
// use, so that caching decisions can consider every live plan of the
// session. It is safe for concurrent use.
type Session struct {
	id SessionID

	mu       sync.RWMutex
	plans    map[uint64]*trackedPlan
	order    []uint64
	warnings []*Warning
}

type trackedPlan struct {
	node Node
	refs int
}

// NewSession creates a new session with a random id.
func NewSession() *Session {
	return NewSessionWithID(SessionID(uuid.New().String()))
}

// NewSessionWithID creates a new session with the given id.
func NewSessionWithID(id SessionID) *Session {
	return &Session{
		id:    id,
		plans: make(map[uint64]*trackedPlan),
	}
}

// ID returns the session id.
func (s *Session) ID() SessionID { return s.id }

// Track registers a plan as live. Plans are reference counted by their
// structural hash, so tracking the same plan twice requires releasing it
// twice.
func (s *Session) Track(n Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := n.Hash()
	if p, ok := s.plans[h]; ok {
		p.refs++
		return
	}
	s.plans[h] = &trackedPlan{node: n, refs: 1}
	s.order = append(s.order, h)
}

// Release marks one reference to the plan as no longer live.
func (s *Session) Release(n Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := n.Hash()
	p, ok := s.plans[h]
	if !ok {
		return
	}

	p.refs--
	if p.refs > 0 {
		return
	}

	delete(s.plans, h)
	for i, oh := range s.order {
		if oh == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Plans returns the live plans of the session in the order they were first
// tracked.
func (s *Session) Plans() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]Node, len(s.order))
	for i, h := range s.order {
		nodes[i] = s.plans[h].node
	}
	return nodes
}

// Warn stores the warning in the session.
func (s *Session) Warn(w *Warning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, w)
}

// Warnings returns a copy of the session warnings, most recent last.
func (s *Session) Warnings() []*Warning {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws := make([]*Warning, len(s.warnings))
	copy(ws, s.warnings)
	return ws
}

// ClearWarnings removes every warning from the session.
func (s *Session) ClearWarnings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = nil
}
