package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type AdminService struct {
	Repo *repo.GormRepo
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Repo.ListUsers(ctx)
}

func (s *AdminService) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.Repo.ListAllOrders(ctx)
}

func (s *AdminService) Stats(ctx context.Context) (*repo.Stats, error) {
	return s.Repo.Stats(ctx)
}
