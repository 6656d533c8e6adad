package repo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type Stats struct {
	Users    int64                        `json:"users"`
	Products int64                        `json:"products"`
	Orders   int64                        `json:"orders"`
	Revenue  decimal.Decimal              `json:"revenue"`
	ByStatus map[models.OrderStatus]int64 `json:"orders_by_status"`
}

func (r *GormRepo) Stats(ctx context.Context) (*Stats, error) {
	db := r.DB.WithContext(ctx)
	st := Stats{Revenue: decimal.Zero, ByStatus: make(map[models.OrderStatus]int64, len(models.OrderStatuses))}

	if err := db.Model(&models.User{}).Count(&st.Users).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).Count(&st.Products).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Order{}).Count(&st.Orders).Error; err != nil {
		return nil, err
	}

	// summed here rather than with SUM() so an empty set is zero, not NULL
	var totals []decimal.Decimal
	if err := db.Model(&models.Order{}).
		Where("status <> ?", models.OrderCancelled).
		Pluck("total", &totals).Error; err != nil {
		return nil, err
	}
	for _, t := range totals {
		st.Revenue = st.Revenue.Add(t)
	}

	for _, s := range models.OrderStatuses {
		st.ByStatus[s] = 0
	}
	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		st.ByStatus[row.Status] = row.Count
	}

	return &st, nil
}
