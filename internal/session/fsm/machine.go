package fsm

import (
	"errors"
	"fmt"
	"sync"
)

// State describes which conversational session is live.
type State string

const (
	StateNone         State = "none"
	StateChat         State = "chat"
	StateComicPending State = "comic_pending"
	StateComicActive  State = "comic_active"
)

// Handle is an opaque conversation handle issued by the generation back end.
type Handle string

// ErrNoActiveComic is returned when a comic operation runs without a live comic.
var ErrNoActiveComic = errors.New("tidak ada sesi komik yang aktif")

// PendingComic is a story seed waiting for a visual style.
type PendingComic struct {
	Seed string
}

// Session is a snapshot of the live session.
type Session struct {
	State        State
	Conversation Handle
	PanelCount   int
}

// Machine is the deterministic session state machine.
// Exactly one of None, Chat or Comic is live; a pending comic request is
// tracked beside it and is consumed once.
type Machine struct {
	mu      sync.RWMutex
	session Session
	pending *PendingComic
}

// New creates a machine in StateNone.
func New() *Machine {
	return &Machine{session: Session{State: StateNone}}
}

// State returns the current state. A pending comic request reports
// StateComicPending unless a comic is already active.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session.State != StateComicActive && m.pending != nil {
		return StateComicPending
	}
	return m.session.State
}

// Snapshot returns a copy of the live session.
func (m *Machine) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// BreakContext drops the live session and any pending comic request.
// It reports whether an active comic was interrupted.
func (m *Machine) BreakContext() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	interrupted := m.session.State == StateComicActive
	m.session = Session{State: StateNone}
	m.pending = nil
	return interrupted
}

// Reset unconditionally returns to StateNone.
func (m *Machine) Reset() {
	m.BreakContext()
}

// ChatHandle returns the live chat conversation, if any.
func (m *Machine) ChatHandle() (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session.State != StateChat {
		return "", false
	}
	return m.session.Conversation, true
}

// StartChat makes h the live chat conversation. It fails while a comic is active.
func (m *Machine) StartChat(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.State == StateComicActive {
		return fmt.Errorf("start chat: comic session is active")
	}
	m.session = Session{State: StateChat, Conversation: h}
	return nil
}

// AwaitStyle records seed as the pending comic request.
func (m *Machine) AwaitStyle(seed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = &PendingComic{Seed: seed}
}

// TakePending consumes the pending comic request.
func (m *Machine) TakePending() (PendingComic, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return PendingComic{}, false
	}
	p := *m.pending
	m.pending = nil
	return p, true
}

// StartComic makes h the live comic conversation with one panel.
func (m *Machine) StartComic(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{State: StateComicActive, Conversation: h, PanelCount: 1}
	m.pending = nil
}

// ComicHandle returns the active comic conversation and its panel count.
func (m *Machine) ComicHandle() (Handle, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session.State != StateComicActive {
		return "", 0, ErrNoActiveComic
	}
	return m.session.Conversation, m.session.PanelCount, nil
}

// AdvanceComic increments the panel count and returns the new value.
func (m *Machine) AdvanceComic() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.State != StateComicActive {
		return 0, ErrNoActiveComic
	}
	m.session.PanelCount++
	return m.session.PanelCount, nil
}

// AbandonComic ends an active comic after a generation failure.
func (m *Machine) AbandonComic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.State == StateComicActive {
		m.session = Session{State: StateNone}
	}
}
