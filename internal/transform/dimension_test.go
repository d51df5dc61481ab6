package transform_test

import (
	"testing"
	"time"

	"goldwarehouse/internal/model"
	"goldwarehouse/internal/transform"
)

func record(goldType string, buy, sell float64, updateTime time.Time) model.CleanPriceRecord {
	return model.CleanPriceRecord{
		GoldType:   goldType,
		BuyPrice:   buy,
		SellPrice:  sell,
		UpdateTime: updateTime,
	}
}

func TestDateKey(t *testing.T) {
	got := transform.DateKey(time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC))
	if got != 20240115 {
		t.Errorf("Expected DateKey 20240115, got %d", got)
	}
}

// TestBuildDateDimension tests date dimension derivation.
//
// WHY: Aggregates join through DimDate, so each calendar date must appear
// exactly once with correct Year/Month/Day/Quarter components regardless of
// how many observations share it.
func TestBuildDateDimension(t *testing.T) {
	t.Run("deduplicates dates and sorts by key", func(t *testing.T) {
		jan := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
		janLater := time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC)
		nov := time.Date(2023, 11, 2, 9, 0, 0, 0, time.UTC)

		rows := transform.BuildDateDimension([]model.CleanPriceRecord{
			record("SJC 1L", 100, 200, jan),
			record("PNJ", 100, 200, janLater),
			record("DOJI", 100, 200, nov),
		})

		if len(rows) != 2 {
			t.Fatalf("Expected 2 dimension rows, got %d", len(rows))
		}
		if rows[0].DateKey != 20231102 || rows[1].DateKey != 20240115 {
			t.Errorf("Expected sorted keys [20231102 20240115], got [%d %d]", rows[0].DateKey, rows[1].DateKey)
		}
	})

	t.Run("derives calendar components", func(t *testing.T) {
		rows := transform.BuildDateDimension([]model.CleanPriceRecord{
			record("SJC 1L", 100, 200, time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC)),
		})

		row := rows[0]
		if row.Year != 2024 || row.Month != 11 || row.Day != 2 {
			t.Errorf("Expected 2024-11-02, got %d-%d-%d", row.Year, row.Month, row.Day)
		}
		if row.Quarter != 4 {
			t.Errorf("Expected quarter 4, got %d", row.Quarter)
		}
	})
}

// TestBuildGoldTypeDimension tests batch-local key assignment.
//
// WHY: Keys are assigned in first-seen order and remapped to persisted
// surrogate keys at load time; the ordering here must be deterministic for
// the remap to be testable at all.
func TestBuildGoldTypeDimension(t *testing.T) {
	createdAt := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	rows := transform.BuildGoldTypeDimension([]model.CleanPriceRecord{
		record("SJC 1L", 100, 200, now),
		record("PNJ", 100, 200, now),
		record("SJC 1L", 110, 210, now),
		record("DOJI", 100, 200, now),
	}, createdAt)

	if len(rows) != 3 {
		t.Fatalf("Expected 3 dimension rows, got %d", len(rows))
	}

	expected := []struct {
		key      int64
		goldType string
	}{
		{1, "SJC 1L"},
		{2, "PNJ"},
		{3, "DOJI"},
	}
	for i, want := range expected {
		if rows[i].GoldTypeKey != want.key || rows[i].GoldType != want.goldType {
			t.Errorf("Row %d: expected (%d, %s), got (%d, %s)", i, want.key, want.goldType, rows[i].GoldTypeKey, rows[i].GoldType)
		}
		if !rows[i].CreatedAt.Equal(createdAt) {
			t.Errorf("Row %d: expected CreatedAt %v, got %v", i, createdAt, rows[i].CreatedAt)
		}
	}
}
