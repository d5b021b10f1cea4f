// Package progress delivers an ordered, best-effort push feed of one
// task's phase transitions to a single subscriber per session. There is no
// replay buffer: an observer subscribing after an event fired misses it,
// and ordering is preserved only among events the observer actually
// receives.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	yaoernie "github.com/longdream/yao-ernie"
)

const (
	// DefaultGrace bounds how long a producer waits for the subscriber to
	// show up before proceeding best-effort.
	DefaultGrace = 2 * time.Second

	// DefaultBuffer is the per-session event buffer; events beyond it are
	// dropped rather than blocking the producer.
	DefaultBuffer = 64
)

// ErrSessionClosed is returned by Subscribe for a session that already
// delivered its terminal event.
var ErrSessionClosed = goerr.New("session closed")

// Hub mints and tracks progress sessions by session id.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session

	grace  time.Duration
	buffer int
}

// Option configures a Hub.
type Option func(*Hub)

// WithGrace sets the subscription grace period applied before the first
// delivery of each session.
func WithGrace(d time.Duration) Option {
	return func(h *Hub) {
		h.grace = d
	}
}

// WithBuffer sets the per-session event buffer size.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		h.buffer = n
	}
}

// NewHub creates a session hub.
func NewHub(options ...Option) *Hub {
	h := &Hub{
		sessions: map[string]*Session{},
		grace:    DefaultGrace,
		buffer:   DefaultBuffer,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Open mints the session for the given id, or returns the existing one.
// An empty id mints a fresh one. Open the session before starting the task
// so the minted handle can be handed to both the engine and the observer.
func (h *Hub) Open(sessionID string) *Session {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.sessions[sessionID]; ok {
		return s
	}

	s := &Session{
		id:         sessionID,
		hub:        h,
		events:     make(chan Event, h.buffer),
		subscribed: make(chan struct{}),
		closed:     make(chan struct{}),
		grace:      h.grace,
	}
	h.sessions[sessionID] = s
	return s
}

// Subscribe attaches the single observer of a session and returns its
// event channel. The channel closes after the terminal event.
func (h *Hub) Subscribe(sessionID string) (<-chan Event, error) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	h.mu.Unlock()

	if !ok {
		return nil, goerr.Wrap(ErrSessionClosed, "unknown or finished session", goerr.V("session_id", sessionID))
	}
	return s.Subscribe(), nil
}

func (h *Hub) remove(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

// Session is one progress channel: single writer (the engine), single
// reader (one observer). It implements yaoernie.ProgressSink.
type Session struct {
	id  string
	hub *Hub

	events     chan Event
	subscribed chan struct{}
	closed     chan struct{}

	subOnce   sync.Once
	closeOnce sync.Once

	grace time.Duration
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Subscribe marks the observer as attached and returns the event channel.
func (s *Session) Subscribe() <-chan Event {
	s.subOnce.Do(func() {
		close(s.subscribed)
	})
	return s.events
}

// publish delivers one event best-effort. Before the subscriber is
// confirmed it waits at most the grace period, then proceeds anyway; a full
// buffer drops the event rather than blocking the engine.
func (s *Session) publish(event Event) {
	select {
	case <-s.closed:
		return
	default:
	}

	select {
	case <-s.subscribed:
	case <-s.closed:
		return
	case <-time.After(s.grace):
		// No subscriber showed up within the grace period. There is no
		// replay buffer, so the event is lost and the producer moves on.
		return
	}

	select {
	case s.events <- event:
	default:
		// Observer is not keeping up; at-least-once is not promised.
	}
}

// close tears the session down. Called once, after the terminal event.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		close(s.events)
		if s.hub != nil {
			s.hub.remove(s.id)
		}
	})
}

// PlanReady implements yaoernie.ProgressSink.
func (s *Session) PlanReady(steps []yaoernie.PlanStep) {
	s.publish(&PlanReady{Session: s.id, Steps: steps})
}

// StepStart implements yaoernie.ProgressSink.
func (s *Session) StepStart(stepID int, tool, description string) {
	s.publish(&StepStart{Session: s.id, StepID: stepID, Tool: tool, Description: description})
}

// StepDone implements yaoernie.ProgressSink.
func (s *Session) StepDone(stepID int, tool, description string) {
	s.publish(&StepDone{Session: s.id, StepID: stepID, Tool: tool, Description: description})
}

// StepError implements yaoernie.ProgressSink.
func (s *Session) StepError(stepID int, tool, errMsg string) {
	s.publish(&StepError{Session: s.id, StepID: stepID, Tool: tool, Error: errMsg})
}

// Status implements yaoernie.ProgressSink.
func (s *Session) Status(message string) {
	s.publish(&Status{Session: s.id, Message: message})
}

// Terminal implements yaoernie.ProgressSink. It delivers the terminal
// event and closes the channel; the session id is invalid afterwards.
func (s *Session) Terminal(outcome yaoernie.TerminalOutcome) {
	s.publish(&Terminal{Session: s.id, Outcome: outcome})
	s.close()
}
