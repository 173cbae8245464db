package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DayKeyFormat is the bucket key layout. String comparison over keys in
// this format matches chronological order.
const DayKeyFormat = "2006-01-02"

// UsageMetric is one per-business, per-calendar-day counter bucket.
// Counters only ever go up; the trailing window is enforced at query
// time and by the retention sweep.
type UsageMetric struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"-"`
	BusinessID string    `gorm:"type:text;not null;uniqueIndex:idx_usage_business_day" json:"business_id"`
	Day        string    `gorm:"type:text;not null;uniqueIndex:idx_usage_business_day" json:"day"`

	GeminiTokens int64 `gorm:"not null;default:0" json:"gemini_tokens"`
	StoreReads   int64 `gorm:"not null;default:0" json:"store_reads"`
	StoreWrites  int64 `gorm:"not null;default:0" json:"store_writes"`
}

func (UsageMetric) TableName() string {
	return "usage_metrics"
}

// BeforeCreate sets UUID before creating
func (m *UsageMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// UsageDelta is a single metering event.
type UsageDelta struct {
	Tokens int64
	Reads  int64
	Writes int64
}

// UsageTotals is the trailing-window aggregate surfaced on dashboards.
// Token figures are character-length estimates, not provider-reported
// counts; they are not billing-grade.
type UsageTotals struct {
	GeminiTokens int64 `json:"gemini_tokens"`
	StoreReads   int64 `json:"store_reads"`
	StoreWrites  int64 `json:"store_writes"`
}

// DayKey formats t as a bucket key in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyFormat)
}
