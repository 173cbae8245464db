package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A pooled in-memory SQLite handle is a database per connection.
	// Pin the pool to one connection so every goroutine sees the same
	// data and writes serialize instead of failing busy.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Business{},
		&models.Product{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.UsageMetric{},
		&models.Ticket{},
	))
	return db
}

// usageRecorder captures metering calls so tests can assert on read and
// write counts without touching the usage table.
type usageRecorder struct {
	mu    sync.Mutex
	total models.UsageDelta
	calls int
}

func (r *usageRecorder) Record(businessID string, delta models.UsageDelta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total.Tokens += delta.Tokens
	r.total.Reads += delta.Reads
	r.total.Writes += delta.Writes
	r.calls++
}

func (r *usageRecorder) snapshot() models.UsageDelta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

func (r *usageRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = models.UsageDelta{}
	r.calls = 0
}

func (r *usageRecorder) Aggregate(ctx context.Context, businessID string) (models.UsageTotals, error) {
	return models.UsageTotals{}, nil
}

func (r *usageRecorder) Daily(ctx context.Context, businessID string, days int) ([]models.UsageMetric, error) {
	return nil, nil
}

func (r *usageRecorder) Prune(ctx context.Context, olderThanDays int) (int64, error) {
	return 0, nil
}
