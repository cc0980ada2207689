package databus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decoyd_sessions_total",
			Help: "Attack sessions opened, per protocol",
		},
		[]string{"protocol"},
	)

	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "decoyd_events_dropped_total",
			Help: "Session events dropped because the queue was full",
		},
	)
)

func init() {
	prometheus.MustRegister(sessionsTotal)
	prometheus.MustRegister(eventsDropped)
}

// eventQueueSize bounds the log queue; emitters never block on a slow
// or stopped log worker.
const eventQueueSize = 1024

// Event is one observation inside an attack session, drained by the
// log worker.
type Event struct {
	SessionID string
	Protocol  string
	Remote    string
	Kind      string
	Data      string
	Time      time.Time
}

/**
 * Attack session: one peer talking to one decoy protocol
 * @property {string} ID - Unique session id
 * @description Sessions are keyed by (protocol, source ip) so a
 * reconnecting peer keeps its session identity.
 */
type Session struct {
	ID       string
	Protocol string
	SourceIP string
	Remote   string
	Started  time.Time

	mgr *SessionManager
}

// Log records an event on the session. Never blocks; the event is
// dropped (and counted) when the queue is full.
func (s *Session) Log(kind, data string) {
	ev := Event{
		SessionID: s.ID,
		Protocol:  s.Protocol,
		Remote:    s.Remote,
		Kind:      kind,
		Data:      data,
		Time:      time.Now(),
	}
	s.mgr.mu.Lock()
	q := s.mgr.queue
	s.mgr.mu.Unlock()
	select {
	case q <- ev:
	default:
		eventsDropped.Inc()
	}
}

/**
 * SessionManager tracks attack sessions and owns the event queue
 * consumed by the log worker.
 */
type SessionManager struct {
	mu       sync.Mutex
	sessions []*Session
	queue    chan Event
}

func NewSessionManager() *SessionManager {
	return &SessionManager{queue: make(chan Event, eventQueueSize)}
}

func (sm *SessionManager) findSession(protocol, sourceIP string) *Session {
	for _, s := range sm.sessions {
		if s.Protocol == protocol && s.SourceIP == sourceIP {
			return s
		}
	}
	return nil
}

/**
 * Get or create the session for a peer
 * @param {string} protocol - Decoy protocol kind
 * @param {string} sourceIP - Peer address without port
 * @param {string} remote - Full remote address for event records
 * @returns {*Session} Existing session for the (protocol, source ip)
 * pair, or a fresh one with a new uuid
 */
func (sm *SessionManager) GetSession(protocol, sourceIP, remote string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s := sm.findSession(protocol, sourceIP); s != nil {
		return s
	}
	s := &Session{
		ID:       uuid.NewString(),
		Protocol: protocol,
		SourceIP: sourceIP,
		Remote:   remote,
		Started:  time.Now(),
		mgr:      sm,
	}
	sm.sessions = append(sm.sessions, s)
	sessionsTotal.WithLabelValues(protocol).Inc()
	return s
}

func (sm *SessionManager) DeleteSession(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i, s := range sm.sessions {
		if s.ID == id {
			sm.sessions = append(sm.sessions[:i], sm.sessions[i+1:]...)
			break
		}
	}
}

func (sm *SessionManager) SessionCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Events exposes the queue for the log worker.
func (sm *SessionManager) Events() <-chan Event {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.queue
}

// PurgeSessions drops all tracked sessions and replaces the event
// queue. Pending undrained events are discarded.
func (sm *SessionManager) PurgeSessions() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions = nil
	sm.queue = make(chan Event, eventQueueSize)
}
