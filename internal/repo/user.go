package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExist
		}
		return err
	}
	return nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// EnsureAdmin creates the user with the admin flag, or raises the flag on an
// existing account. The stored password of an existing account is kept.
func (r *GormRepo) EnsureAdmin(ctx context.Context, email, passwordHash string) (*models.User, bool, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: email, Name: "admin", PasswordHash: passwordHash, IsAdmin: true}
		if err := r.CreateUser(ctx, &user); err != nil {
			return nil, false, err
		}
		return &user, true, nil
	case err != nil:
		return nil, false, err
	}

	if !user.IsAdmin {
		if err := r.DB.WithContext(ctx).Model(&user).Update("is_admin", true).Error; err != nil {
			return nil, false, err
		}
	}
	return &user, false, nil
}
