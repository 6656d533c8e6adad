package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const minPasswordLen = 6

type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	Events        events.Publisher
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	User         *models.User
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, ErrValidation)
	}
	if len(pw) > hash.MaxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes: %w", hash.MaxPasswordBytes, ErrValidation)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email := normalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("email must contain @: %w", ErrValidation)
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: pwHash,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, fmt.Errorf("email %s: %w", email, ErrConflict)
		}
		return nil, err
	}

	res, err := s.issueTokens(ctx, &user)
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicUser, strconv.FormatUint(uint64(user.ID), 10), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", ErrValidation)
	}

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	res, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicUser, strconv.FormatUint(uint64(user.ID), 10), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
	})
	return res, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Reusing a rotated token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user is gone: %w", ErrUnauthorized)
		}
		return nil, err
	}

	now := time.Now()
	access, err := tokens.SignAccess(user.ID, s.JWTSecret, now)
	if err != nil {
		return nil, err
	}
	refresh, jti, refreshExp, err := tokens.SignRefresh(user.ID, s.RefreshSecret, now)
	if err != nil {
		return nil, err
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		Token:     tokens.Sha256Hex(refresh),
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, &record); err != nil {
		if errors.Is(err, repo.ErrRefreshInvalid) {
			return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
		}
		return nil, err
	}

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    now.Add(tokens.AccessTTL),
		RefreshExp:   refreshExp,
		User:         user,
	}, nil
}

// LogOut revokes the refresh token. Unknown or empty tokens are ignored.
func (s *AuthService) LogOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, tokens.Sha256Hex(refreshToken))
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// Authenticate resolves an access token to the stored user, so the admin
// flag always comes from the database rather than from token claims.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := tokens.AccessClaimsFromToken(accessToken, s.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.ensure_admin")

	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return fmt.Errorf("bootstrap admin email: %w", ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	user, created, err := s.Repo.EnsureAdmin(ctx, email, pwHash)
	if err != nil {
		return err
	}
	l.Info("admin_ensured", "user_id", user.ID, "created", created)
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*AuthResult, error) {
	now := time.Now()
	access, err := tokens.SignAccess(user.ID, s.JWTSecret, now)
	if err != nil {
		return nil, err
	}
	refresh, jti, refreshExp, err := tokens.SignRefresh(user.ID, s.RefreshSecret, now)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.AddRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     tokens.Sha256Hex(refresh),
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}); err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    now.Add(tokens.AccessTTL),
		RefreshExp:   refreshExp,
		User:         user,
	}, nil
}
