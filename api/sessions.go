package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session tracks one background pipeline run started over the API
type Session struct {
	ID          string `json:"session_id"`
	Status      string `json:"status"` // running | completed | error
	Phase       string `json:"phase"`
	Progress    int    `json:"progress"`
	Message     string `json:"message"`
	Topic       string `json:"topic,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	VideoFile   string `json:"video_file,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SessionStore is an in-memory registry of pipeline sessions. Sessions live
// for the lifetime of the server process; run artifacts persist on disk.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create registers a new running session and returns a copy of it
func (s *SessionStore) Create(topic string) Session {
	sess := &Session{
		ID:        time.Now().Format("20060102_150405") + "_" + uuid.NewString()[:6],
		Status:    "running",
		Phase:     "initializing",
		Message:   "Starting pipeline...",
		Topic:     topic,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return *sess
}

// Get returns a copy of the session, if it exists
func (s *SessionStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Update applies fn to the session under the store lock
func (s *SessionStore) Update(id string, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		fn(sess)
	}
}

// List returns copies of all sessions, newest first
func (s *SessionStore) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	return out
}
