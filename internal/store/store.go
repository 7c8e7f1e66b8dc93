package store

import (
	"errors"
	"sync"
	"time"

	"murmur/agent/internal/types"
)

var ErrSessionExists = errors.New("session already exists")

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
	events   map[string][]types.Event
}

func New() *Store {
	return &Store{
		sessions: make(map[string]*types.Session),
		events:   make(map[string][]types.Event),
	}
}

func (s *Store) CreateSession(sess *types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return ErrSessionExists
	}
	s.sessions[sess.ID] = sess
	s.events[sess.ID] = []types.Event{}
	return nil
}

func (s *Store) GetSession(id string) *types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *Store) SetStatus(id, status string) {
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		sess.Status = status
	}
	s.mu.Unlock()
}

func (s *Store) SetLastUtterance(id, text string, at time.Time) {
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		sess.LastUtterance = text
		sess.LastUtteranceAt = &at
	}
	s.mu.Unlock()
}

func (s *Store) AppendEvent(sessionID, typ string, payload map[string]any) types.Event {
	evt := types.Event{Type: typ, Ts: time.Now().UTC(), Payload: payload}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[sessionID] = append(s.events[sessionID], evt)
	// Cap per-session events so long conversations don't grow without bound.
	const maxEvents = 200
	if l := len(s.events[sessionID]); l > maxEvents {
		keep := maxEvents - 1
		dropped := l - keep
		s.events[sessionID] = append([]types.Event(nil), s.events[sessionID][l-keep:]...)
		warn := types.Event{Type: "events_truncated", Ts: time.Now().UTC(), Payload: map[string]any{"dropped": dropped, "kept": keep}}
		s.events[sessionID] = append(s.events[sessionID], warn)
	}
	return evt
}

func (s *Store) ListEvents(sessionID string) []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.events[sessionID]
	out := make([]types.Event, len(src))
	copy(out, src)
	return out
}

func (s *Store) ListSessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	return out
}
