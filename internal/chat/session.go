package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	pingPeriod = (PongWait * 9) / 10
)

// Conn is the write side of a websocket connection. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one live connection. Outbound frames go through a bounded
// queue drained by WritePump; a full queue drops the frame for this session
// only.
type Session struct {
	ID     uint64
	UserID uint

	conn      Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	joined    atomic.Bool
	dropped   atomic.Int64
}

func newSession(id uint64, userID uint, conn Conn, queueSize int) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, queueSize),
		done:   make(chan struct{}),
	}
}

func (s *Session) Joined() bool { return s.joined.Load() }

// Dropped is the number of frames discarded because the queue was full.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Enqueue never blocks. It reports whether the frame was queued.
func (s *Session) Enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// WritePump writes queued frames and keepalive pings until the session is
// closed or a write fails.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
