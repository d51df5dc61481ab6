package transform_test

import (
	"testing"
	"time"

	"goldwarehouse/internal/model"
	"goldwarehouse/internal/transform"
)

// TestBuildFacts tests derived metric computation.
//
// WHY: PriceDifference and its percentage are the point of the fact table.
// The percentage must survive a zero buy price without dividing by zero,
// and both metrics round to 2 decimals.
func TestBuildFacts(t *testing.T) {
	updateTime := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

	t.Run("computes difference and percentage", func(t *testing.T) {
		records := []model.CleanPriceRecord{
			record("SJC 1L", 73500000, 74300000, updateTime),
		}
		dim := transform.BuildGoldTypeDimension(records, updateTime)

		facts := transform.BuildFacts(records, dim)
		if len(facts) != 1 {
			t.Fatalf("Expected 1 fact row, got %d", len(facts))
		}

		f := facts[0]
		if f.PriceDifference != 800000 {
			t.Errorf("Expected difference 800000, got %v", f.PriceDifference)
		}
		if f.PriceDifferencePercentage != 1.09 {
			t.Errorf("Expected percentage 1.09, got %v", f.PriceDifferencePercentage)
		}
		if f.DateKey != 20240115 {
			t.Errorf("Expected DateKey 20240115, got %d", f.DateKey)
		}
		if f.GoldTypeKey != 1 {
			t.Errorf("Expected GoldTypeKey 1, got %d", f.GoldTypeKey)
		}
	})

	t.Run("zero buy price yields zero percentage", func(t *testing.T) {
		records := []model.CleanPriceRecord{
			record("SJC 1L", 0, 500, updateTime),
		}
		dim := transform.BuildGoldTypeDimension(records, updateTime)

		facts := transform.BuildFacts(records, dim)
		if facts[0].PriceDifference != 500 {
			t.Errorf("Expected difference 500, got %v", facts[0].PriceDifference)
		}
		if facts[0].PriceDifferencePercentage != 0 {
			t.Errorf("Expected percentage 0 for zero buy price, got %v", facts[0].PriceDifferencePercentage)
		}
	})

	t.Run("negative difference is preserved", func(t *testing.T) {
		records := []model.CleanPriceRecord{
			record("SJC 1L", 200, 100, updateTime),
		}
		dim := transform.BuildGoldTypeDimension(records, updateTime)

		facts := transform.BuildFacts(records, dim)
		if facts[0].PriceDifference != -100 {
			t.Errorf("Expected difference -100, got %v", facts[0].PriceDifference)
		}
		if facts[0].PriceDifferencePercentage != -50 {
			t.Errorf("Expected percentage -50, got %v", facts[0].PriceDifferencePercentage)
		}
	})

	t.Run("record without dimension entry fails the row only", func(t *testing.T) {
		records := []model.CleanPriceRecord{
			record("SJC 1L", 100, 200, updateTime),
			record("Unknown", 100, 200, updateTime),
		}
		dim := transform.BuildGoldTypeDimension(records[:1], updateTime)

		facts := transform.BuildFacts(records, dim)
		if len(facts) != 1 {
			t.Fatalf("Expected 1 fact row, got %d", len(facts))
		}
		if facts[0].GoldTypeKey != 1 {
			t.Errorf("Expected surviving row keyed 1, got %d", facts[0].GoldTypeKey)
		}
	})
}
