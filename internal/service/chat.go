package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/chat"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

const (
	MaxMessageLen       = 2000
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// ChatRelay persists chat messages and fans them out to live sessions.
type ChatRelay struct {
	Repo     *repo.GormRepo
	Sessions *chat.SessionManager
	Events   events.Publisher
}

func (s *ChatRelay) PostMessage(ctx context.Context, authorID uint, content string, recipientID *uint) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content is empty: %w", ErrValidation)
	}
	if utf8.RuneCountInString(content) > MaxMessageLen {
		return nil, fmt.Errorf("content longer than %d characters: %w", MaxMessageLen, ErrValidation)
	}

	if recipientID != nil {
		if _, err := s.Repo.GetUserByID(ctx, *recipientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("recipient %d: %w", *recipientID, ErrNotFound)
			}
			return nil, err
		}
	}

	msg := models.Message{UserID: authorID, RecipientID: recipientID, Content: content}
	if err := s.Repo.CreateMessage(ctx, &msg); err != nil {
		return nil, err
	}

	if s.Sessions != nil {
		n := s.Sessions.Deliver(&msg)
		logging.FromContext(ctx).Debug("chat_message_delivered", "message_id", msg.ID, "sessions", n)
	}

	event := map[string]any{
		"type":      "message_posted",
		"messageID": msg.ID,
		"userID":    authorID,
	}
	if recipientID != nil {
		event["recipientID"] = *recipientID
	}
	events.Emit(ctx, s.Events, events.TopicChat, userKey(authorID), event)
	return &msg, nil
}

func (s *ChatRelay) ListMessages(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.Repo.ListMessages(ctx, userID, limit)
}
