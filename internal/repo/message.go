package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	db := r.DB.WithContext(ctx)
	if err := db.Omit("User").Create(m).Error; err != nil {
		return err
	}
	return db.Preload("User").First(m, m.ID).Error
}

// ListMessages returns the newest limit messages visible to userID, oldest
// first. Broadcasts are visible to everyone; directed messages only to their
// author and recipient.
func (r *GormRepo) ListMessages(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	msgs := make([]models.Message, 0, limit)
	if err := r.DB.WithContext(ctx).
		Preload("User").
		Where("recipient_id IS NULL OR user_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
