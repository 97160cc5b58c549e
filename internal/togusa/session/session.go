// Package session holds the per-session short-term state the interpretation
// core needs across turns: the single conversation context used to resolve
// follow-up references ("their assigned workbenches"), the bounded rolling
// history handed to the generative backend, and the per-session backend
// toggle.
//
// State is keyed strictly by session ID; sessions never see each other's
// context or history.
package session

import (
	"sync"
	"time"
)

// Kind classifies the conversation context left behind by a state-producing
// command. The set is closed: contextual pattern entries declare which kinds
// they are compatible with, and a mismatched kind is treated as absent.
type Kind string

const (
	KindAgentsListed      Kind = "agents listed"
	KindWorkbenchesListed Kind = "workbenches listed"
	KindAgentDetails      Kind = "agent details shown"
	KindWorkbenchRoles    Kind = "workbench roles shown"
)

// Context is the most recent meaningful result in a session. At most one
// exists per session; recording a new one overwrites the old, and contexts
// are never merged.
type Context struct {
	Kind      Kind
	Items     []string
	CreatedAt time.Time
}

// OneOf reports whether the context's kind is among the given kinds.
// A nil context matches nothing.
func (c *Context) OneOf(kinds ...Kind) bool {
	if c == nil {
		return false
	}
	for _, k := range kinds {
		if c.Kind == k {
			return true
		}
	}
	return false
}

// Turn is one entry of the rolling history window.
type Turn struct {
	// Role is "user" for incoming text and "assistant" for replies.
	Role string
	Text string
	At   time.Time
}

// DefaultMaxTurns bounds the rolling history handed to the generative
// backend when no explicit limit is configured.
const DefaultMaxTurns = 10

// Session is the mutable state of one conversation.
//
// The turn lock (Acquire/Release) serializes whole input lines: a new line
// for the same session is only processed after the current one is done.
// The field methods additionally lock internally, so reads from other
// goroutines (status reporting, tests) are safe at any time.
type Session struct {
	id string

	turnMu sync.Mutex

	mu             sync.Mutex
	context        *Context
	history        []Turn
	maxTurns       int
	backendEnabled bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Acquire blocks until the session's turn lock is held.
func (s *Session) Acquire() { s.turnMu.Lock() }

// Release gives up the turn lock.
func (s *Session) Release() { s.turnMu.Unlock() }

// RecordContext unconditionally replaces the session context — last write
// wins. The items slice is copied.
func (s *Session) RecordContext(kind Kind, items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = &Context{
		Kind:      kind,
		Items:     append([]string(nil), items...),
		CreatedAt: time.Now().UTC(),
	}
}

// Context returns a copy of the current context, or nil when none exists.
func (s *Session) Context() *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.context == nil {
		return nil
	}
	c := *s.context
	c.Items = append([]string(nil), s.context.Items...)
	return &c
}

// ClearContext drops the current context.
func (s *Session) ClearContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = nil
}

// AppendTurn adds an entry to the rolling history, dropping the oldest entry
// once the window is full.
func (s *Session) AppendTurn(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Turn{Role: role, Text: text, At: time.Now().UTC()})
	if len(s.history) > s.maxTurns {
		s.history = s.history[len(s.history)-s.maxTurns:]
	}
}

// History returns a copy of the rolling history, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.history...)
}

// ClearHistory empties the rolling history. The conversation context is not
// touched; it is governed solely by overwrite semantics.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// BackendEnabled reports whether the generative backend may be attempted for
// this session.
func (s *Session) BackendEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backendEnabled
}

// SetBackendEnabled toggles the generative backend for subsequent lines.
func (s *Session) SetBackendEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backendEnabled = on
}

// Config controls session defaults.
type Config struct {
	// MaxTurns bounds each session's rolling history. Zero or negative
	// values fall back to DefaultMaxTurns.
	MaxTurns int
	// BackendDefault is the initial backend toggle for new sessions.
	BackendDefault bool
}

// Store hands out sessions by ID, creating them on first use. It is safe for
// concurrent use; distinct sessions are fully independent.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
}

// NewStore creates an empty session store.
func NewStore(cfg Config) *Store {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	return &Store{
		sessions: make(map[string]*Session),
		cfg:      cfg,
	}
}

// Get returns the session for id, creating it if necessary.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s = &Session{
		id:             id,
		maxTurns:       st.cfg.MaxTurns,
		backendEnabled: st.cfg.BackendDefault,
	}
	st.sessions[id] = s
	return s
}

// Len returns the number of sessions seen so far.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
