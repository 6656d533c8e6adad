// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/models"
)

// NewDB opens a migrated in-memory sqlite database. A single connection is
// used so every query sees the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func CreateUser(t *testing.T, gdb *gorm.DB, email string, admin bool) models.User {
	t.Helper()
	u := models.User{Email: email, Name: email, PasswordHash: "x", IsAdmin: admin}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func CreateProduct(t *testing.T, gdb *gorm.DB, name, price string) models.Product {
	t.Helper()
	p := models.Product{Name: name, Description: name + " description", Price: decimal.RequireFromString(price), Stock: 10}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

type Event struct {
	Topic string
	Key   string
	Data  map[string]any
}

// EventRecorder is an in-memory events.Publisher.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *EventRecorder) Publish(_ context.Context, topic, key string, event map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Topic: topic, Key: key, Data: event})
	return nil
}

func (r *EventRecorder) Close() error { return nil }

func (r *EventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the "type" field of every recorded event on topic.
func (r *EventRecorder) Types(topic string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Topic == topic {
			if s, ok := e.Data["type"].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
