package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

type MessageHTTP struct {
	Relay *service.ChatRelay
}

func (h *MessageHTTP) ListMessages(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "message.list")

	limit := util.ParseIntDefault(c.QueryParam("limit"), service.DefaultHistoryLimit)
	msgs, err := h.Relay.ListMessages(ctx, auth.UserID(c), limit)
	if err != nil {
		return fail(l, "list_messages_error", err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *MessageHTTP) PostMessage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "message.post")

	var req transport.PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "post_message_error", err)
	}

	msg, err := h.Relay.PostMessage(ctx, auth.UserID(c), req.Content, req.RecipientID)
	if err != nil {
		return fail(l, "post_message_error", err)
	}

	l.Info("post_message_success", "message_id", msg.ID)
	return c.JSON(http.StatusCreated, msg)
}
