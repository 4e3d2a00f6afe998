package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tabpilot/tabpilot/pkg/agent/approval"
	"github.com/tabpilot/tabpilot/pkg/types"
)

// Store persists every session to a single JSON file, written atomically via
// temp file and rename.
type Store struct {
	path      string
	mu        sync.RWMutex
	sessions  map[string]*Session
	currentID string
}

// storeFile is the on-disk shape.
type storeFile struct {
	Version   string          `json:"version"`
	CurrentID string          `json:"current_id"`
	Sessions  []sessionRecord `json:"sessions"`
}

type sessionRecord struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	CreatedAt  int64            `json:"created_at"`
	UpdatedAt  int64            `json:"updated_at"`
	Messages   []*types.Message `json:"messages"`
	Granted    []string         `json:"granted,omitempty"`
	GrantedAll bool             `json:"granted_all,omitempty"`
}

// NewStore opens the session store at path, defaulting to
// ~/.tabpilot/sessions.json. A missing file yields an empty store with one
// fresh session.
func NewStore(path string) (*Store, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".tabpilot", "sessions.json")
	}

	store := &Store{
		path:     path,
		sessions: make(map[string]*Session),
	}

	if err := store.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load sessions from %s: %w", path, err)
	}
	if len(store.sessions) == 0 {
		store.Create()
	}

	return store, nil
}

// Load reads the store file from disk, replacing in-memory state.
func (st *Store) Load() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	file, err := os.Open(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			st.sessions = make(map[string]*Session)
			return nil
		}
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	var data storeFile
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode session file: %w", err)
	}

	st.sessions = make(map[string]*Session, len(data.Sessions))
	for _, rec := range data.Sessions {
		s := &Session{
			id:        rec.ID,
			title:     rec.Title,
			createdAt: time.UnixMilli(rec.CreatedAt),
			updatedAt: time.UnixMilli(rec.UpdatedAt),
			messages:  rec.Messages,
			approvals: approval.NewState(),
		}
		s.approvals.RestoreSessionGrants(rec.Granted)
		s.approvals.RestoreSessionAll(rec.GrantedAll)
		// Cancellation or a crash can leave unanswered tool calls at the
		// tail; repair before the session is used again.
		s.dropDanglingLocked()
		st.sessions[rec.ID] = s
	}

	st.currentID = data.CurrentID
	if _, ok := st.sessions[st.currentID]; !ok {
		st.currentID = ""
	}
	if st.currentID == "" && len(st.sessions) > 0 {
		st.currentID = st.mostRecentLocked()
	}
	return nil
}

// Save writes the store file atomically.
func (st *Store) Save() error {
	st.mu.RLock()
	data := storeFile{
		Version:   "1.0",
		CurrentID: st.currentID,
		Sessions:  make([]sessionRecord, 0, len(st.sessions)),
	}
	for _, s := range st.sessions {
		s.mu.RLock()
		rec := sessionRecord{
			ID:         s.id,
			Title:      s.title,
			CreatedAt:  s.createdAt.UnixMilli(),
			UpdatedAt:  s.updatedAt.UnixMilli(),
			Messages:   make([]*types.Message, len(s.messages)),
			Granted:    s.approvals.SessionGrants(),
			GrantedAll: s.approvals.SessionAllGranted(),
		}
		for i, msg := range s.messages {
			rec.Messages[i] = msg.Clone()
		}
		s.mu.RUnlock()
		data.Sessions = append(data.Sessions, rec)
	}
	st.mu.RUnlock()

	sort.Slice(data.Sessions, func(i, j int) bool {
		return data.Sessions[i].UpdatedAt > data.Sessions[j].UpdatedAt
	})

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tempPath := st.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode sessions: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempPath, st.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Create starts a fresh session and makes it current.
func (st *Store) Create() *Session {
	s := New()
	st.mu.Lock()
	st.sessions[s.id] = s
	st.currentID = s.id
	st.mu.Unlock()
	return s
}

// Current returns the active session.
func (st *Store) Current() *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[st.currentID]
}

// Switch makes the given session current.
func (st *Store) Switch(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("session %s not found", id)
	}
	st.currentID = id
	return nil
}

// Delete removes a session. When the current session is deleted, the most
// recently updated survivor becomes current; deleting the last session
// creates a fresh one.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	if _, ok := st.sessions[id]; !ok {
		st.mu.Unlock()
		return fmt.Errorf("session %s not found", id)
	}
	delete(st.sessions, id)

	if st.currentID == id {
		st.currentID = st.mostRecentLocked()
	}
	needFresh := len(st.sessions) == 0
	st.mu.Unlock()

	if needFresh {
		st.Create()
	}
	return nil
}

// Get returns a session by ID.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Sessions lists all sessions, most recently updated first.
func (st *Store) Sessions() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt().After(out[j].UpdatedAt())
	})
	return out
}

// Path returns the file path of the store.
func (st *Store) Path() string {
	return st.path
}

// mostRecentLocked returns the ID of the most recently updated session.
// Must be called with the store lock held.
func (st *Store) mostRecentLocked() string {
	var bestID string
	var bestTime time.Time
	for id, s := range st.sessions {
		if u := s.UpdatedAt(); bestID == "" || u.After(bestTime) {
			bestID = id
			bestTime = u
		}
	}
	return bestID
}
