package chat

import (
	"errors"
	"sync"

	"github.com/Skotchmaster/storefront/internal/models"
)

const DefaultQueueSize = 64

var ErrJoinMismatch = errors.New("cannot join as another user")

// SessionManager tracks every open session and groups joined sessions by
// user id.
type SessionManager struct {
	mu        sync.RWMutex
	nextID    uint64
	sessions  map[uint64]*Session
	groups    map[uint]map[uint64]*Session
	queueSize int
}

func NewSessionManager(queueSize int) *SessionManager {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &SessionManager{
		sessions:  make(map[uint64]*Session),
		groups:    make(map[uint]map[uint64]*Session),
		queueSize: queueSize,
	}
}

// Add registers a connection authenticated as userID. The session receives
// broadcasts right away and directed messages once joined.
func (m *SessionManager) Add(userID uint, conn Conn) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s := newSession(m.nextID, userID, conn, m.queueSize)
	m.sessions[s.ID] = s
	return s
}

func (m *SessionManager) Join(s *Session, userID uint) error {
	if userID != s.UserID {
		return ErrJoinMismatch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return errors.New("session is closed")
	}
	group, ok := m.groups[userID]
	if !ok {
		group = make(map[uint64]*Session)
		m.groups[userID] = group
	}
	group[s.ID] = s
	s.joined.Store(true)
	return nil
}

// Remove unregisters the session and closes it. Safe to call twice.
func (m *SessionManager) Remove(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	if group, ok := m.groups[s.UserID]; ok {
		delete(group, s.ID)
		if len(group) == 0 {
			delete(m.groups, s.UserID)
		}
	}
	m.mu.Unlock()
	s.Close()
}

// Broadcast queues data on every open session and returns how many accepted it.
func (m *SessionManager) Broadcast(data []byte) int {
	m.mu.RLock()
	targets := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		targets = append(targets, s)
	}
	m.mu.RUnlock()
	return enqueueAll(targets, data)
}

// SendTo queues data on the joined sessions of userID.
func (m *SessionManager) SendTo(userID uint, data []byte) int {
	m.mu.RLock()
	group := m.groups[userID]
	targets := make([]*Session, 0, len(group))
	for _, s := range group {
		targets = append(targets, s)
	}
	m.mu.RUnlock()
	return enqueueAll(targets, data)
}

// Deliver fans a persisted message out: directed messages go to the
// recipient's sessions only, everything else to all sessions.
func (m *SessionManager) Deliver(msg *models.Message) int {
	data := NewMessageEvent(msg)
	if msg.RecipientID != nil {
		return m.SendTo(*msg.RecipientID, data)
	}
	return m.Broadcast(data)
}

func enqueueAll(targets []*Session, data []byte) int {
	n := 0
	for _, s := range targets {
		if s.Enqueue(data) {
			n++
		}
	}
	return n
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[uint64]*Session)
	m.groups = make(map[uint]map[uint64]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
