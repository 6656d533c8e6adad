package service

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/chat"
	"github.com/Skotchmaster/storefront/internal/events"
)

func TestPostMessage_Validation(t *testing.T) {
	env := newTestEnv(t)
	u := register(t, env, "a@x.io").User

	_, err := env.Chat.PostMessage(bg, u.ID, "   ", nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = env.Chat.PostMessage(bg, u.ID, strings.Repeat("я", MaxMessageLen+1), nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = env.Chat.PostMessage(bg, u.ID, "hi", ptr(uint(404)))
	require.ErrorIs(t, err, ErrNotFound)

	msg, err := env.Chat.PostMessage(bg, u.ID, "  "+strings.Repeat("я", MaxMessageLen)+"  ", nil)
	require.NoError(t, err)
	assert.Equal(t, MaxMessageLen, len([]rune(msg.Content)))
	require.NotNil(t, msg.User)
	assert.Equal(t, "a@x.io", msg.User.Email)
}

func decodeFrame(t *testing.T, data []byte) chat.Outbound {
	t.Helper()
	var ev chat.Outbound
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestPostMessage_BroadcastReachesEveryone(t *testing.T) {
	env := newTestEnv(t)
	a := register(t, env, "a@x.io").User
	b := register(t, env, "b@x.io").User
	ca := connect(t, env, a.ID)
	cb := connect(t, env, b.ID)

	msg, err := env.Chat.PostMessage(bg, a.ID, "hello", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return ca.count() == 1 && cb.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	ev := decodeFrame(t, cb.last())
	assert.Equal(t, chat.EventNewMessage, ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, msg.ID, ev.Message.ID)
	assert.Equal(t, "a@x.io", ev.Message.User.Email)

	assert.Equal(t, []string{"message_posted"}, env.Events.Types(events.TopicChat))
}

func TestPostMessage_DirectedReachesRecipientOnly(t *testing.T) {
	env := newTestEnv(t)
	a := register(t, env, "a@x.io").User
	b := register(t, env, "b@x.io").User
	c := register(t, env, "c@x.io").User
	ca := connect(t, env, a.ID)
	cb := connect(t, env, b.ID)
	cc := connect(t, env, c.ID)

	_, err := env.Chat.PostMessage(bg, a.ID, "for b", &b.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return cb.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, ca.count())
	assert.Zero(t, cc.count())
}

func TestListMessages_LimitAndVisibility(t *testing.T) {
	env := newTestEnv(t)
	a := register(t, env, "a@x.io").User
	b := register(t, env, "b@x.io").User
	c := register(t, env, "c@x.io").User

	for i := 0; i < 3; i++ {
		_, err := env.Chat.PostMessage(bg, a.ID, "broadcast", nil)
		require.NoError(t, err)
	}
	_, err := env.Chat.PostMessage(bg, a.ID, "secret", &b.ID)
	require.NoError(t, err)

	forC, err := env.Chat.ListMessages(bg, c.ID, 0)
	require.NoError(t, err)
	assert.Len(t, forC, 3)

	forB, err := env.Chat.ListMessages(bg, b.ID, 1000)
	require.NoError(t, err)
	require.Len(t, forB, 4)
	assert.Equal(t, "secret", forB[3].Content)

	last, err := env.Chat.ListMessages(bg, b.ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "secret", last[1].Content)
}
