// Package session holds the conversation state: the message log that is the
// source of truth for both display and request assembly, per-session
// approval grants, and persistence of all sessions to disk.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tabpilot/tabpilot/pkg/agent/approval"
	"github.com/tabpilot/tabpilot/pkg/types"
)

// DefaultTitle is used until the first user message sets a real one.
const DefaultTitle = "New Chat"

// titleRuneLimit caps auto-derived session titles.
const titleRuneLimit = 25

// Session is one conversation. All methods are safe for concurrent use; the
// engine goroutine mutates the log mid-stream while the UI reads it.
type Session struct {
	id        string
	mu        sync.RWMutex
	title     string
	createdAt time.Time
	updatedAt time.Time
	messages  []*types.Message
	approvals *approval.State
}

// New creates an empty session.
func New() *Session {
	now := time.Now()
	return &Session{
		id:        uuid.New().String(),
		title:     DefaultTitle,
		createdAt: now,
		updatedAt: now,
		approvals: approval.NewState(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Title returns the current session title.
func (s *Session) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// UpdatedAt returns the last mutation time.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Approvals returns the session's grant memory.
func (s *Session) Approvals() *approval.State { return s.approvals }

// Append adds a message to the end of the log.
func (s *Session) Append(msg *types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.updatedAt = time.Now()
}

// UpdateMessage applies fn to the message with the given ID under the write
// lock. Used to grow the streaming assistant message in place.
func (s *Session) UpdateMessage(id string, fn func(*types.Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == id {
			fn(msg)
			s.updatedAt = time.Now()
			return true
		}
	}
	return false
}

// Messages returns a deep copy of the log. Readers never observe mid-stream
// mutation of the live messages.
func (s *Session) Messages() []*types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Message, len(s.messages))
	for i, msg := range s.messages {
		out[i] = msg.Clone()
	}
	return out
}

// Len returns the number of messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// LastMessage returns a copy of the final message, or nil on an empty log.
func (s *Session) LastMessage() *types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1].Clone()
}

// RemoveMessage deletes the message with the given ID.
func (s *Session) RemoveMessage(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.messages {
		if msg.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			s.updatedAt = time.Now()
			return true
		}
	}
	return false
}

// Replace swaps the entire message log, used when compaction folds old
// turns into a summary.
func (s *Session) Replace(messages []*types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = messages
	s.updatedAt = time.Now()
}

// Clear drops all messages and every approval grant.
func (s *Session) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.updatedAt = time.Now()
	s.mu.Unlock()
	s.approvals.Clear()
}

// MaybeSetTitle derives the title from the first user message of the
// session. Later user messages never change it.
func (s *Session) MaybeSetTitle(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userCount := 0
	for _, msg := range s.messages {
		if msg.Role == types.RoleUser {
			userCount++
		}
	}
	if userCount != 1 {
		return
	}

	title := text
	if runes := []rune(title); len(runes) > titleRuneLimit {
		title = string(runes[:titleRuneLimit])
	}
	if title == "" {
		title = DefaultTitle
	}
	s.title = title
	s.updatedAt = time.Now()
}

// DropDanglingToolCalls removes trailing assistant messages whose tool calls
// never received results. Left behind by cancellation or crash, they would
// make the endpoint reject the next request.
func (s *Session) DropDanglingToolCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropDanglingLocked()
}

func (s *Session) dropDanglingLocked() int {
	dropped := 0
	for len(s.messages) > 0 {
		last := s.messages[len(s.messages)-1]
		if !last.HasToolCalls() {
			break
		}
		s.messages = s.messages[:len(s.messages)-1]
		dropped++
	}
	if dropped > 0 {
		s.updatedAt = time.Now()
	}
	return dropped
}

// TruncateForRetry cuts the log so the turn containing the given message can
// be regenerated. An assistant target is removed along with everything after
// it; any other target is kept and only what follows is removed. Trailing
// assistant messages with unanswered tool calls are dropped afterwards.
func (s *Session) TruncateForRetry(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := -1
	for i, msg := range s.messages {
		if msg.ID == messageID {
			index = i
			break
		}
	}
	if index == -1 {
		return fmt.Errorf("message %s not found in session", messageID)
	}

	if s.messages[index].Role == types.RoleAssistant {
		s.messages = s.messages[:index]
	} else {
		s.messages = s.messages[:index+1]
	}
	s.dropDanglingLocked()
	s.updatedAt = time.Now()
	return nil
}

// ContextCards returns the permanent memory cards currently in the log.
func (s *Session) ContextCards() []*types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var cards []*types.Message
	for _, msg := range s.messages {
		if msg.Role == types.RoleContext {
			cards = append(cards, msg.Clone())
		}
	}
	return cards
}
