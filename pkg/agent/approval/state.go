package approval

import (
	"sort"
	"sync"
)

// Scope controls how long an approval grant stays valid.
type Scope string

const (
	// ScopeOnce approves only the call that asked. Nothing is recorded.
	ScopeOnce Scope = "once"

	// ScopeTurn approves the tool for the rest of the current agent turn.
	// Cleared when a new user message starts a turn, not on retry.
	ScopeTurn Scope = "turn"

	// ScopeSession approves the tool for the rest of the session.
	ScopeSession Scope = "session"
)

// Response is the user's answer to one approval request.
type Response struct {
	ApprovalID string `json:"approval_id"`
	Granted    bool   `json:"granted"`
	Scope      Scope  `json:"scope,omitempty"`

	// AllTools widens a turn or session grant to every dangerous tool
	// instead of just the one that asked.
	AllTools bool `json:"all_tools,omitempty"`
}

// IsGranted reports whether the user approved the call.
func (r *Response) IsGranted() bool {
	return r != nil && r.Granted
}

// State is the per-session grant memory, keyed by tool name. Safe for
// concurrent use; the engine goroutine grants while the UI thread reads.
type State struct {
	mu         sync.Mutex
	session    map[string]bool
	turn       map[string]bool
	sessionAll bool
	turnAll    bool
}

// NewState creates an empty grant memory.
func NewState() *State {
	return &State{
		session: make(map[string]bool),
		turn:    make(map[string]bool),
	}
}

// IsApproved reports whether the tool has a standing grant, either its own
// or a blanket one.
func (s *State) IsApproved(toolName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionAll || s.turnAll {
		return true
	}
	return s.session[toolName] || s.turn[toolName]
}

// Grant records a standing grant. ScopeOnce records nothing.
func (s *State) Grant(toolName string, scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch scope {
	case ScopeTurn:
		s.turn[toolName] = true
	case ScopeSession:
		s.session[toolName] = true
	}
}

// GrantAll records a blanket grant covering every tool at the given scope.
func (s *State) GrantAll(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch scope {
	case ScopeTurn:
		s.turnAll = true
	case ScopeSession:
		s.sessionAll = true
	}
}

// ClearTurn drops all turn-scoped grants, per-tool and blanket. Called when
// a fresh user message starts a turn; retries of an existing turn keep
// their grants.
func (s *State) ClearTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turn = make(map[string]bool)
	s.turnAll = false
}

// Clear drops every grant. Used when the session's messages are cleared.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = make(map[string]bool)
	s.turn = make(map[string]bool)
	s.sessionAll = false
	s.turnAll = false
}

// SessionGrants returns the session-scoped grants in sorted order, for
// persistence alongside the message log.
func (s *State) SessionGrants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	grants := make([]string, 0, len(s.session))
	for name := range s.session {
		grants = append(grants, name)
	}
	sort.Strings(grants)
	return grants
}

// RestoreSessionGrants reinstates persisted session grants. Turn grants are
// never persisted.
func (s *State) RestoreSessionGrants(grants []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range grants {
		s.session[name] = true
	}
}

// SessionAllGranted reports whether a blanket session grant is active.
func (s *State) SessionAllGranted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionAll
}

// RestoreSessionAll reinstates a persisted blanket session grant.
func (s *State) RestoreSessionAll(granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionAll = s.sessionAll || granted
}
