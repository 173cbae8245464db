package repositories

import (
	"context"
	"time"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/chatfront/chatfront-backend/internal/shared/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AggregateWindowDays is the trailing window for dashboard usage
// aggregation. Buckets older than the window contribute nothing.
const AggregateWindowDays = 30

type UsageRepo interface {
	// Record increments today's counters for the business. It never
	// returns an error: metering is a side effect and must not block
	// the user-facing action that triggered it. Failures are logged.
	Record(businessID string, delta models.UsageDelta)

	// Aggregate sums all day buckets inside the trailing 30-day window.
	Aggregate(ctx context.Context, businessID string) (models.UsageTotals, error)

	// Daily returns per-day buckets for the last `days` days, oldest
	// first. Days with no activity have no row.
	Daily(ctx context.Context, businessID string, days int) ([]models.UsageMetric, error)

	// Prune deletes buckets older than `olderThanDays`.
	Prune(ctx context.Context, olderThanDays int) (int64, error)
}

type usageRepo struct {
	db *gorm.DB
}

func NewUsageRepo(db *gorm.DB) UsageRepo {
	return &usageRepo{db: db}
}

func (r *usageRepo) Record(businessID string, delta models.UsageDelta) {
	if businessID == "" {
		utils.LogWarn("usage record called without business id", nil)
		return
	}
	if delta.Tokens == 0 && delta.Reads == 0 && delta.Writes == 0 {
		return
	}

	bucket := models.UsageMetric{
		BusinessID:   businessID,
		Day:          models.DayKey(time.Now()),
		GeminiTokens: delta.Tokens,
		StoreReads:   delta.Reads,
		StoreWrites:  delta.Writes,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "business_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"gemini_tokens": gorm.Expr("usage_metrics.gemini_tokens + ?", delta.Tokens),
			"store_reads":   gorm.Expr("usage_metrics.store_reads + ?", delta.Reads),
			"store_writes":  gorm.Expr("usage_metrics.store_writes + ?", delta.Writes),
		}),
	}).Create(&bucket).Error
	if err != nil {
		utils.LogWarn("failed to record usage", map[string]interface{}{
			"business_id": businessID,
			"error":       err.Error(),
		})
	}
}

func (r *usageRepo) Aggregate(ctx context.Context, businessID string) (models.UsageTotals, error) {
	start := models.DayKey(time.Now().AddDate(0, 0, -AggregateWindowDays))

	var totals models.UsageTotals
	err := r.db.WithContext(ctx).Model(&models.UsageMetric{}).
		Select(
			"COALESCE(SUM(gemini_tokens), 0) AS gemini_tokens, "+
				"COALESCE(SUM(store_reads), 0) AS store_reads, "+
				"COALESCE(SUM(store_writes), 0) AS store_writes",
		).
		Where("business_id = ? AND day >= ?", businessID, start).
		Scan(&totals).Error

	return totals, err
}

func (r *usageRepo) Daily(ctx context.Context, businessID string, days int) ([]models.UsageMetric, error) {
	start := models.DayKey(time.Now().AddDate(0, 0, -days))

	var buckets []models.UsageMetric
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND day >= ?", businessID, start).
		Order("day ASC").
		Find(&buckets).Error

	return buckets, err
}

func (r *usageRepo) Prune(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := models.DayKey(time.Now().AddDate(0, 0, -olderThanDays))

	res := r.db.WithContext(ctx).
		Where("day < ?", cutoff).
		Delete(&models.UsageMetric{})

	return res.RowsAffected, res.Error
}
