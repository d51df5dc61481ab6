package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"goldwarehouse/internal/model"
)

// WarehouseRepository provides data access for the star schema: DimDate,
// DimGoldType, FactGoldPrices, and the aggregate mart tables. Dimension
// writes follow a lookup-or-insert discipline so surrogate keys stay stable
// across merge cycles.
type WarehouseRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewWarehouseRepository creates a new WarehouseRepository with the provided
// database connection.
func NewWarehouseRepository(db *sql.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

func (r *WarehouseRepository) WithTx(tx *sql.Tx) *WarehouseRepository {
	return &WarehouseRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *WarehouseRepository) getQuerier() interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// UpsertDateRow inserts a date dimension row unless its DateKey already
// exists. Date rows are immutable once created.
func (r *WarehouseRepository) UpsertDateRow(ctx context.Context, row model.DateDimensionRow) error {
	query := `
        INSERT INTO DimDate (DateKey, Date, Year, Month, Day, Quarter)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(DateKey) DO NOTHING
    `

	_, err := r.getQuerier().ExecContext(ctx, query,
		row.DateKey,
		row.Date.Format("2006-01-02"),
		row.Year,
		row.Month,
		row.Day,
		row.Quarter,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert DimDate row %d: %w", row.DateKey, err)
	}

	return nil
}

// UpsertGoldType returns the persisted surrogate key for a gold type,
// inserting a new dimension row on first sight. The key is assigned once
// per distinct value and never renumbered.
func (r *WarehouseRepository) UpsertGoldType(ctx context.Context, goldType string, createdAt time.Time) (int64, error) {
	q := r.getQuerier()

	var key int64
	err := q.QueryRowContext(ctx, "SELECT GoldTypeKey FROM DimGoldType WHERE GoldType = ?", goldType).Scan(&key)
	if err == nil {
		return key, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up gold type %q: %w", goldType, err)
	}

	result, err := q.ExecContext(ctx,
		"INSERT INTO DimGoldType (GoldType, Created_at) VALUES (?, ?)",
		goldType,
		FormatTime(createdAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert gold type %q: %w", goldType, err)
	}

	key, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted GoldTypeKey: %w", err)
	}

	return key, nil
}

// GetGoldTypes retrieves the full gold type dimension, ordered by key.
func (r *WarehouseRepository) GetGoldTypes(ctx context.Context) ([]model.GoldTypeDimensionRow, error) {
	query := `
        SELECT GoldTypeKey, GoldType, Created_at
        FROM DimGoldType
        ORDER BY GoldTypeKey ASC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query DimGoldType: %w", err)
	}
	defer rows.Close()

	dims := []model.GoldTypeDimensionRow{}

	for rows.Next() {
		var d model.GoldTypeDimensionRow
		var createdAtStr string

		if err := rows.Scan(&d.GoldTypeKey, &d.GoldType, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan DimGoldType row: %w", err)
		}

		d.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Created_at: %w", err)
		}

		dims = append(dims, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating DimGoldType: %w", err)
	}

	return dims, nil
}

// InsertFacts appends fact rows. Keys must already be resolved to persisted
// dimension keys; the foreign key constraints reject orphans.
func (r *WarehouseRepository) InsertFacts(ctx context.Context, facts []model.FactRow) error {
	query := `
        INSERT INTO FactGoldPrices
        (GoldTypeKey, DateKey, BuyPrice, SellPrice, PriceDifference, PriceDifferencePercentage)
        VALUES (?, ?, ?, ?, ?, ?)
    `

	q := r.getQuerier()
	for _, f := range facts {
		_, err := q.ExecContext(ctx, query,
			f.GoldTypeKey,
			f.DateKey,
			f.BuyPrice,
			f.SellPrice,
			f.PriceDifference,
			f.PriceDifferencePercentage,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fact row (gold type key %d, date key %d): %w", f.GoldTypeKey, f.DateKey, err)
		}
	}

	return nil
}

// GetFacts retrieves all fact rows.
func (r *WarehouseRepository) GetFacts(ctx context.Context) ([]model.FactRow, error) {
	query := `
        SELECT GoldTypeKey, DateKey, BuyPrice, SellPrice, PriceDifference, PriceDifferencePercentage
        FROM FactGoldPrices
        ORDER BY fact_id ASC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query FactGoldPrices: %w", err)
	}
	defer rows.Close()

	facts := []model.FactRow{}

	for rows.Next() {
		var f model.FactRow
		err := rows.Scan(
			&f.GoldTypeKey,
			&f.DateKey,
			&f.BuyPrice,
			&f.SellPrice,
			&f.PriceDifference,
			&f.PriceDifferencePercentage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fact row: %w", err)
		}
		facts = append(facts, f)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating FactGoldPrices: %w", err)
	}

	return facts, nil
}

// ClearFacts removes all fact rows. The warehouse load rebuilds the fact
// table from the canonical table in the same transaction.
func (r *WarehouseRepository) ClearFacts(ctx context.Context) error {
	if _, err := r.getQuerier().ExecContext(ctx, "DELETE FROM FactGoldPrices"); err != nil {
		return fmt.Errorf("failed to clear FactGoldPrices: %w", err)
	}
	return nil
}

// GetDateDimension retrieves the full date dimension, ordered by DateKey.
func (r *WarehouseRepository) GetDateDimension(ctx context.Context) ([]model.DateDimensionRow, error) {
	query := `
        SELECT DateKey, Date, Year, Month, Day, Quarter
        FROM DimDate
        ORDER BY DateKey ASC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query DimDate: %w", err)
	}
	defer rows.Close()

	dims := []model.DateDimensionRow{}

	for rows.Next() {
		var d model.DateDimensionRow
		var dateStr string

		if err := rows.Scan(&d.DateKey, &dateStr, &d.Year, &d.Month, &d.Day, &d.Quarter); err != nil {
			return nil, fmt.Errorf("failed to scan DimDate row: %w", err)
		}

		d.Date, err = ParseTime(dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DimDate date: %w", err)
		}

		dims = append(dims, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating DimDate: %w", err)
	}

	return dims, nil
}

// ReplaceDailyAggregates rebuilds AggDailyGoldPrices from scratch.
// Aggregates are recomputed totally, never incrementally patched.
func (r *WarehouseRepository) ReplaceDailyAggregates(ctx context.Context, rows []model.DailyAggregateRow) error {
	q := r.getQuerier()

	if _, err := q.ExecContext(ctx, "DELETE FROM AggDailyGoldPrices"); err != nil {
		return fmt.Errorf("failed to clear AggDailyGoldPrices: %w", err)
	}

	query := `
        INSERT INTO AggDailyGoldPrices
        (DateKey, AvgBuyPrice, MinBuyPrice, MaxBuyPrice, AvgSellPrice, MinSellPrice, MaxSellPrice, AvgPriceDifference)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `

	for _, a := range rows {
		_, err := q.ExecContext(ctx, query,
			a.DateKey,
			a.AvgBuyPrice, a.MinBuyPrice, a.MaxBuyPrice,
			a.AvgSellPrice, a.MinSellPrice, a.MaxSellPrice,
			a.AvgPriceDifference,
		)
		if err != nil {
			return fmt.Errorf("failed to insert daily aggregate for %d: %w", a.DateKey, err)
		}
	}

	return nil
}

// ReplaceMonthlyAggregates rebuilds AggMonthlyGoldPrices from scratch.
func (r *WarehouseRepository) ReplaceMonthlyAggregates(ctx context.Context, rows []model.MonthlyAggregateRow) error {
	q := r.getQuerier()

	if _, err := q.ExecContext(ctx, "DELETE FROM AggMonthlyGoldPrices"); err != nil {
		return fmt.Errorf("failed to clear AggMonthlyGoldPrices: %w", err)
	}

	query := `
        INSERT INTO AggMonthlyGoldPrices
        (Year, Month, AvgBuyPrice, MinBuyPrice, MaxBuyPrice, AvgSellPrice, MinSellPrice, MaxSellPrice, AvgPriceDifference)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	for _, a := range rows {
		_, err := q.ExecContext(ctx, query,
			a.Year, a.Month,
			a.AvgBuyPrice, a.MinBuyPrice, a.MaxBuyPrice,
			a.AvgSellPrice, a.MinSellPrice, a.MaxSellPrice,
			a.AvgPriceDifference,
		)
		if err != nil {
			return fmt.Errorf("failed to insert monthly aggregate for %d-%02d: %w", a.Year, a.Month, err)
		}
	}

	return nil
}

// GetDailyAggregates retrieves the daily mart, ordered by DateKey.
func (r *WarehouseRepository) GetDailyAggregates(ctx context.Context) ([]model.DailyAggregateRow, error) {
	query := `
        SELECT DateKey, AvgBuyPrice, MinBuyPrice, MaxBuyPrice, AvgSellPrice, MinSellPrice, MaxSellPrice, AvgPriceDifference
        FROM AggDailyGoldPrices
        ORDER BY DateKey ASC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query AggDailyGoldPrices: %w", err)
	}
	defer rows.Close()

	aggs := []model.DailyAggregateRow{}

	for rows.Next() {
		var a model.DailyAggregateRow
		err := rows.Scan(
			&a.DateKey,
			&a.AvgBuyPrice, &a.MinBuyPrice, &a.MaxBuyPrice,
			&a.AvgSellPrice, &a.MinSellPrice, &a.MaxSellPrice,
			&a.AvgPriceDifference,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating AggDailyGoldPrices: %w", err)
	}

	return aggs, nil
}

// GetMonthlyAggregates retrieves the monthly mart, ordered by year and month.
func (r *WarehouseRepository) GetMonthlyAggregates(ctx context.Context) ([]model.MonthlyAggregateRow, error) {
	query := `
        SELECT Year, Month, AvgBuyPrice, MinBuyPrice, MaxBuyPrice, AvgSellPrice, MinSellPrice, MaxSellPrice, AvgPriceDifference
        FROM AggMonthlyGoldPrices
        ORDER BY Year ASC, Month ASC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query AggMonthlyGoldPrices: %w", err)
	}
	defer rows.Close()

	aggs := []model.MonthlyAggregateRow{}

	for rows.Next() {
		var a model.MonthlyAggregateRow
		err := rows.Scan(
			&a.Year, &a.Month,
			&a.AvgBuyPrice, &a.MinBuyPrice, &a.MaxBuyPrice,
			&a.AvgSellPrice, &a.MinSellPrice, &a.MaxSellPrice,
			&a.AvgPriceDifference,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating AggMonthlyGoldPrices: %w", err)
	}

	return aggs, nil
}
