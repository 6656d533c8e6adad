package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/chat"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
)

const maxFrameSize = 16 << 10

type ChatWS struct {
	Relay    *service.ChatRelay
	Sessions *chat.SessionManager
	Upgrader websocket.Upgrader
}

// Serve upgrades the request and runs the session's read loop. Frames from
// the client are only ever attributed to the authenticated user.
func (h *ChatWS) Serve(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.UserFromContext(c)
	l := logging.FromContext(ctx).With("handler", "chat.ws", "user_id", user.ID)

	conn, err := h.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		l.Warn("ws_upgrade_error", "error", err)
		return nil
	}

	s := h.Sessions.Add(user.ID, conn)
	defer h.Sessions.Remove(s)
	go s.WritePump()
	l.Info("ws_connected", "session_id", s.ID)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(chat.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chat.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warn("ws_read_error", "session_id", s.ID, "error", err)
			}
			l.Info("ws_disconnected", "session_id", s.ID, "dropped", s.Dropped())
			return nil
		}

		var in chat.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.Enqueue(chat.ErrorEvent("invalid frame"))
			continue
		}

		switch in.Type {
		case chat.EventJoin:
			if err := h.Sessions.Join(s, in.UserID); err != nil {
				l.Warn("ws_join_error", "session_id", s.ID, "requested", in.UserID, "error", err)
				s.Enqueue(chat.ErrorEvent(err.Error()))
				continue
			}
			s.Enqueue(chat.JoinedEvent(user.ID))

		case chat.EventSend:
			if !s.Joined() {
				s.Enqueue(chat.ErrorEvent("join first"))
				continue
			}
			msg, err := h.Relay.PostMessage(ctx, user.ID, in.Content, in.RecipientID)
			if err != nil {
				s.Enqueue(chat.ErrorEvent(sendErrorReason(err)))
				if !errors.Is(err, service.ErrValidation) && !errors.Is(err, service.ErrNotFound) {
					l.Error("ws_send_error", "session_id", s.ID, "error", err)
				}
				continue
			}
			// directed messages reach the recipient only; the author gets an ack
			if msg.RecipientID != nil && *msg.RecipientID != user.ID {
				s.Enqueue(chat.SentEvent(msg))
			}

		default:
			s.Enqueue(chat.ErrorEvent("unknown event type"))
		}
	}
}

func sendErrorReason(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		return "invalid message"
	case errors.Is(err, service.ErrNotFound):
		return "recipient not found"
	default:
		return "internal error"
	}
}

// checkOrigin allows the configured CORS origins; "*" allows any.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}
