package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	failNext bool
	written  chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{written: make(chan struct{}, 100)}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return errors.New("broken pipe")
	}
	if messageType == websocket.TextMessage {
		f.frames = append(f.frames, data)
		f.written <- struct{}{}
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) Frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...)
}

func (f *fakeConn) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func decode(t *testing.T, data []byte) Outbound {
	t.Helper()
	var ev Outbound
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestJoin_MustMatchAuthenticatedUser(t *testing.T) {
	m := NewSessionManager(4)
	s := m.Add(1, newFakeConn())

	require.ErrorIs(t, m.Join(s, 2), ErrJoinMismatch)
	assert.False(t, s.Joined())
	assert.Zero(t, m.SendTo(2, []byte("x")))

	require.NoError(t, m.Join(s, 1))
	assert.True(t, s.Joined())
	assert.Equal(t, 1, m.SendTo(1, []byte("x")))
}

func TestDeliver_BroadcastAndDirected(t *testing.T) {
	m := NewSessionManager(4)
	a := m.Add(1, newFakeConn())
	b := m.Add(2, newFakeConn())
	b2 := m.Add(2, newFakeConn())
	require.NoError(t, m.Join(a, 1))
	require.NoError(t, m.Join(b, 2))
	require.NoError(t, m.Join(b2, 2))

	assert.Equal(t, 3, m.Deliver(&models.Message{ID: 1, UserID: 1, Content: "hi all"}))

	to := uint(2)
	assert.Equal(t, 2, m.Deliver(&models.Message{ID: 2, UserID: 1, RecipientID: &to, Content: "hi b"}))

	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 2)
	assert.Len(t, b2.send, 2)

	ev := decode(t, <-a.send)
	assert.Equal(t, EventNewMessage, ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hi all", ev.Message.Content)
}

func TestEnqueue_FullQueueDropsForThatSessionOnly(t *testing.T) {
	m := NewSessionManager(1)
	slow := m.Add(1, newFakeConn())
	fast := m.Add(2, newFakeConn())

	assert.Equal(t, 2, m.Broadcast([]byte("one")))
	<-fast.send

	assert.Equal(t, 1, m.Broadcast([]byte("two")))
	assert.EqualValues(t, 1, slow.Dropped())
	assert.EqualValues(t, 0, fast.Dropped())
	assert.Equal(t, []byte("two"), <-fast.send)
}

func TestWritePump_WritesQueuedFrames(t *testing.T) {
	m := NewSessionManager(4)
	conn := newFakeConn()
	s := m.Add(1, conn)
	go s.WritePump()

	require.True(t, s.Enqueue(JoinedEvent(1)))
	select {
	case <-conn.written:
	case <-time.After(2 * time.Second):
		t.Fatal("frame was not written")
	}

	frames := conn.Frames()
	require.Len(t, frames, 1)
	ev := decode(t, frames[0])
	assert.Equal(t, EventJoined, ev.Type)
	assert.Equal(t, uint(1), ev.UserID)

	m.Remove(s)
	assert.Eventually(t, conn.IsClosed, time.Second, 10*time.Millisecond)
	assert.False(t, s.Enqueue([]byte("late")))
	assert.Zero(t, m.Count())
}

func TestWritePump_StopsOnWriteError(t *testing.T) {
	m := NewSessionManager(4)
	conn := newFakeConn()
	conn.failNext = true
	s := m.Add(1, conn)

	done := make(chan struct{})
	go func() {
		s.WritePump()
		close(done)
	}()
	s.Enqueue([]byte("x"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop")
	}
	assert.True(t, conn.IsClosed())
	<-s.Done()
}

func TestRemoveAndCloseAll(t *testing.T) {
	m := NewSessionManager(4)
	c1, c2 := newFakeConn(), newFakeConn()
	s1 := m.Add(1, c1)
	s2 := m.Add(1, c2)
	require.NoError(t, m.Join(s1, 1))
	require.NoError(t, m.Join(s2, 1))
	assert.Equal(t, 2, m.Count())

	m.Remove(s1)
	m.Remove(s1)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 1, m.SendTo(1, []byte("x")))
	require.Error(t, m.Join(s1, 1))

	m.CloseAll()
	assert.Zero(t, m.Count())
	assert.True(t, c1.IsClosed())
	assert.True(t, c2.IsClosed())
	assert.Zero(t, m.Broadcast([]byte("x")))
}

func TestConcurrentBroadcastAndRemove(t *testing.T) {
	m := NewSessionManager(8)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(uid uint) {
			defer wg.Done()
			s := m.Add(uid, newFakeConn())
			_ = m.Join(s, uid)
			m.Broadcast([]byte("tick"))
			m.SendTo(uid, []byte("tock"))
			m.Remove(s)
		}(uint(i%3 + 1))
	}
	wg.Wait()
	assert.Zero(t, m.Count())
}

func TestSentEvent_IsDistinctFromFanOut(t *testing.T) {
	to := uint(2)
	msg := &models.Message{ID: 7, UserID: 1, RecipientID: &to, Content: "psst"}

	var ack, fan Outbound
	require.NoError(t, json.Unmarshal(SentEvent(msg), &ack))
	require.NoError(t, json.Unmarshal(NewMessageEvent(msg), &fan))

	assert.Equal(t, EventSent, ack.Type)
	assert.Equal(t, EventNewMessage, fan.Type)
	require.NotNil(t, ack.Message)
	assert.Equal(t, uint(7), ack.Message.ID)
}
