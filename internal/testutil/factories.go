package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"goldwarehouse/internal/model"
	"goldwarehouse/internal/repository"
)

// PriceBuilder provides a fluent interface for creating test price rows.
//
// Example usage:
//
//	// Simple creation with defaults
//	testutil.NewPrice().BuildCanonical(t, db)
//
//	// Customized price
//	testutil.NewPrice().
//	    WithGoldType("SJC 1L").
//	    WithBuyPrice(73500000).
//	    WithSellPrice(74300000).
//	    BuildStaging(t, db)
type PriceBuilder struct {
	GoldType   string
	BuyPrice   float64
	SellPrice  float64
	UpdateTime time.Time
}

// NewPrice creates a PriceBuilder with sensible defaults.
func NewPrice() *PriceBuilder {
	return &PriceBuilder{
		GoldType:   "SJC 1L",
		BuyPrice:   73500000,
		SellPrice:  74300000,
		UpdateTime: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
	}
}

// WithGoldType sets the gold type.
func (b *PriceBuilder) WithGoldType(goldType string) *PriceBuilder {
	b.GoldType = goldType
	return b
}

// WithBuyPrice sets the buy price.
func (b *PriceBuilder) WithBuyPrice(price float64) *PriceBuilder {
	b.BuyPrice = price
	return b
}

// WithSellPrice sets the sell price.
func (b *PriceBuilder) WithSellPrice(price float64) *PriceBuilder {
	b.SellPrice = price
	return b
}

// WithUpdateTime sets the update timestamp.
func (b *PriceBuilder) WithUpdateTime(updateTime time.Time) *PriceBuilder {
	b.UpdateTime = updateTime
	return b
}

// Record returns the builder's current state as a CleanPriceRecord without
// touching the database.
func (b *PriceBuilder) Record() model.CleanPriceRecord {
	return model.CleanPriceRecord{
		GoldType:   b.GoldType,
		BuyPrice:   b.BuyPrice,
		SellPrice:  b.SellPrice,
		UpdateTime: b.UpdateTime,
	}
}

// BuildStaging inserts the price into GoldPrices_temp.
func (b *PriceBuilder) BuildStaging(t *testing.T, db *sql.DB) model.CleanPriceRecord {
	t.Helper()
	return b.insert(t, db, "GoldPrices_temp")
}

// BuildCanonical inserts the price into GoldPrices.
func (b *PriceBuilder) BuildCanonical(t *testing.T, db *sql.DB) model.CleanPriceRecord {
	t.Helper()
	return b.insert(t, db, "GoldPrices")
}

func (b *PriceBuilder) insert(t *testing.T, db *sql.DB, table string) model.CleanPriceRecord {
	t.Helper()

	query := "INSERT INTO " + table + " (GoldType, BuyPrice, SellPrice, UpdateTime) VALUES (?, ?, ?, ?)"
	_, err := db.Exec(query, b.GoldType, b.BuyPrice, b.SellPrice, repository.FormatTime(b.UpdateTime))
	if err != nil {
		t.Fatalf("Failed to insert test price into %s: %v", table, err)
	}

	return b.Record()
}

// InsertNotificationConfig adds a notification recipient for a job.
func InsertNotificationConfig(t *testing.T, db *sql.DB, jobID, recipient string, onSuccess, onFailure bool) {
	t.Helper()

	query := `
        INSERT INTO Notification_Config (id, job_id, notification_type, email_recipient, notify_on_success, notify_on_failure)
        VALUES (?, ?, 'EMAIL', ?, ?, ?)
    `
	if _, err := db.Exec(query, uuid.New().String(), jobID, recipient, onSuccess, onFailure); err != nil {
		t.Fatalf("Failed to insert notification config: %v", err)
	}
}

// InsertJobSchedule adds an active time-of-day schedule for a job.
func InsertJobSchedule(t *testing.T, db *sql.DB, jobID, scheduleType, scheduleTime string) {
	t.Helper()

	query := `
        INSERT INTO Job_Schedule (job_id, schedule_type, schedule_time, is_active)
        VALUES (?, ?, ?, 1)
    `
	if _, err := db.Exec(query, jobID, scheduleType, scheduleTime); err != nil {
		t.Fatalf("Failed to insert job schedule: %v", err)
	}
}
