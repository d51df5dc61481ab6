package repository_test

import (
	"context"
	"testing"
	"time"

	"goldwarehouse/internal/model"
	"goldwarehouse/internal/repository"
	"goldwarehouse/internal/testutil"
)

// TestWarehouseRepository_UpsertGoldType tests surrogate key stability.
//
// WHY: A gold type keeps the key it was first assigned for as long as the
// warehouse lives; re-upserting must look the key up, never mint a new
// one.
func TestWarehouseRepository_UpsertGoldType(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewWarehouseRepository(db)

	createdAt := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	first, err := repo.UpsertGoldType(ctx, "SJC 1L", createdAt)
	if err != nil {
		t.Fatalf("UpsertGoldType() returned unexpected error: %v", err)
	}

	other, err := repo.UpsertGoldType(ctx, "PNJ", createdAt)
	if err != nil {
		t.Fatalf("UpsertGoldType() returned unexpected error: %v", err)
	}
	if other == first {
		t.Errorf("Expected distinct keys for distinct types, both got %d", first)
	}

	again, err := repo.UpsertGoldType(ctx, "SJC 1L", createdAt.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("UpsertGoldType() returned unexpected error: %v", err)
	}
	if again != first {
		t.Errorf("Expected stable key %d for re-upsert, got %d", first, again)
	}

	testutil.AssertRowCount(t, db, "DimGoldType", 2)
}

// TestWarehouseRepository_UpsertDateRow tests date dimension idempotence.
func TestWarehouseRepository_UpsertDateRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewWarehouseRepository(db)

	row := model.DateDimensionRow{
		DateKey: 20240115,
		Date:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Year:    2024,
		Month:   1,
		Day:     15,
		Quarter: 1,
	}

	if err := repo.UpsertDateRow(ctx, row); err != nil {
		t.Fatalf("UpsertDateRow() returned unexpected error: %v", err)
	}
	if err := repo.UpsertDateRow(ctx, row); err != nil {
		t.Fatalf("repeated UpsertDateRow() returned unexpected error: %v", err)
	}

	testutil.AssertRowCount(t, db, "DimDate", 1)
}

// TestWarehouseRepository_Facts tests fact persistence and rebuild.
func TestWarehouseRepository_Facts(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewWarehouseRepository(db)

	createdAt := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	key, err := repo.UpsertGoldType(ctx, "SJC 1L", createdAt)
	if err != nil {
		t.Fatalf("UpsertGoldType() returned unexpected error: %v", err)
	}
	if err := repo.UpsertDateRow(ctx, model.DateDimensionRow{
		DateKey: 20240115,
		Date:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Year:    2024, Month: 1, Day: 15, Quarter: 1,
	}); err != nil {
		t.Fatalf("UpsertDateRow() returned unexpected error: %v", err)
	}

	facts := []model.FactRow{
		{
			GoldTypeKey:               key,
			DateKey:                   20240115,
			BuyPrice:                  73500000,
			SellPrice:                 74300000,
			PriceDifference:           800000,
			PriceDifferencePercentage: 1.09,
		},
	}

	if err := repo.InsertFacts(ctx, facts); err != nil {
		t.Fatalf("InsertFacts() returned unexpected error: %v", err)
	}

	got, err := repo.GetFacts(ctx)
	if err != nil {
		t.Fatalf("GetFacts() returned unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 fact, got %d", len(got))
	}
	if got[0].PriceDifference != 800000 || got[0].PriceDifferencePercentage != 1.09 {
		t.Errorf("Unexpected fact metrics: %+v", got[0])
	}

	if err := repo.ClearFacts(ctx); err != nil {
		t.Fatalf("ClearFacts() returned unexpected error: %v", err)
	}
	testutil.AssertRowCount(t, db, "FactGoldPrices", 0)
}

// TestWarehouseRepository_ReplaceAggregates tests full mart replacement.
func TestWarehouseRepository_ReplaceAggregates(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewWarehouseRepository(db)

	daily := []model.DailyAggregateRow{
		{DateKey: 20240115, AvgBuyPrice: 100, MinBuyPrice: 90, MaxBuyPrice: 110, AvgSellPrice: 105, MinSellPrice: 95, MaxSellPrice: 115, AvgPriceDifference: 5},
	}
	if err := repo.ReplaceDailyAggregates(ctx, daily); err != nil {
		t.Fatalf("ReplaceDailyAggregates() returned unexpected error: %v", err)
	}

	// A second replacement discards the first mart entirely.
	daily[0].DateKey = 20240116
	if err := repo.ReplaceDailyAggregates(ctx, daily); err != nil {
		t.Fatalf("second ReplaceDailyAggregates() returned unexpected error: %v", err)
	}

	got, err := repo.GetDailyAggregates(ctx)
	if err != nil {
		t.Fatalf("GetDailyAggregates() returned unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].DateKey != 20240116 {
		t.Errorf("Expected only the replacement row, got %+v", got)
	}

	monthly := []model.MonthlyAggregateRow{
		{Year: 2024, Month: 1, AvgBuyPrice: 100, MinBuyPrice: 90, MaxBuyPrice: 110, AvgSellPrice: 105, MinSellPrice: 95, MaxSellPrice: 115, AvgPriceDifference: 5},
	}
	if err := repo.ReplaceMonthlyAggregates(ctx, monthly); err != nil {
		t.Fatalf("ReplaceMonthlyAggregates() returned unexpected error: %v", err)
	}

	gotMonthly, err := repo.GetMonthlyAggregates(ctx)
	if err != nil {
		t.Fatalf("GetMonthlyAggregates() returned unexpected error: %v", err)
	}
	if len(gotMonthly) != 1 || gotMonthly[0].Year != 2024 || gotMonthly[0].Month != 1 {
		t.Errorf("Unexpected monthly mart content: %+v", gotMonthly)
	}
}
