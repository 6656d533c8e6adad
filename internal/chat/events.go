package chat

import (
	"encoding/json"

	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	EventJoin       = "join"
	EventSend       = "send"
	EventJoined     = "joined"
	EventNewMessage = "new_message"
	EventSent       = "sent"
	EventError      = "error"
)

// Inbound is a client frame.
type Inbound struct {
	Type        string `json:"type"`
	UserID      uint   `json:"user_id,omitempty"`
	Content     string `json:"content,omitempty"`
	RecipientID *uint  `json:"recipient_id,omitempty"`
}

// Outbound is a server frame.
type Outbound struct {
	Type    string          `json:"type"`
	UserID  uint            `json:"user_id,omitempty"`
	Message *models.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func Encode(ev Outbound) []byte {
	// Outbound holds only plain values, so marshalling cannot fail.
	data, _ := json.Marshal(ev)
	return data
}

func NewMessageEvent(msg *models.Message) []byte {
	return Encode(Outbound{Type: EventNewMessage, Message: msg})
}

// SentEvent acknowledges a directed message to its author.
func SentEvent(msg *models.Message) []byte {
	return Encode(Outbound{Type: EventSent, Message: msg})
}

func ErrorEvent(reason string) []byte {
	return Encode(Outbound{Type: EventError, Error: reason})
}

func JoinedEvent(userID uint) []byte {
	return Encode(Outbound{Type: EventJoined, UserID: userID})
}
