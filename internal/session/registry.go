package session

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one chat session's transient state.
type Session struct {
	ID        string
	CreatedAt time.Time
	*Accumulator

	turnMu sync.Mutex
	elem   *list.Element
}

// LockTurn serialises turn processing within the session. Call the returned
// function to release it.
func (s *Session) LockTurn() (unlock func()) {
	s.turnMu.Lock()
	return s.turnMu.Unlock
}

// Registry holds the in-memory sessions of this process. Sessions share no
// mutable state with each other. With a session cap, the least recently used
// session is dropped when a new one would exceed it.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	lru         *list.List // front is most recently used
	maxTurns    int
	maxSessions int
}

// NewRegistry creates a registry. maxTurns caps each session's trend and
// maxSessions caps live sessions; 0 leaves either unbounded.
func NewRegistry(maxTurns, maxSessions int) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		lru:         list.New(),
		maxTurns:    maxTurns,
		maxSessions: maxSessions,
	}
}

// Create starts a new session with a random id.
func (r *Registry) Create() *Session {
	return r.GetOrCreate(uuid.NewString())
}

// GetOrCreate returns the session for id, creating it empty on first use.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		r.lru.MoveToFront(s.elem)
		return s
	}
	s := &Session{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		Accumulator: NewAccumulator(r.maxTurns),
	}
	s.elem = r.lru.PushFront(s)
	r.sessions[id] = s
	r.evict()
	return s
}

// Get looks up an existing session and marks it as recently used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	r.lru.MoveToFront(s.elem)
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// evict must be called with mu held.
func (r *Registry) evict() {
	if r.maxSessions <= 0 {
		return
	}
	for len(r.sessions) > r.maxSessions {
		oldest := r.lru.Back()
		s := oldest.Value.(*Session)
		r.lru.Remove(oldest)
		delete(r.sessions, s.ID)
	}
}
