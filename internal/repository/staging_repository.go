package repository

import (
	"context"
	"database/sql"
	"fmt"

	"goldwarehouse/internal/model"
)

// StagingRepository provides data access for the GoldPrices_temp staging
// buffer and the canonical GoldPrices table it is merged into.
type StagingRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewStagingRepository creates a new StagingRepository with the provided
// database connection.
func NewStagingRepository(db *sql.DB) *StagingRepository {
	return &StagingRepository{db: db}
}

func (r *StagingRepository) WithTx(tx *sql.Tx) *StagingRepository {
	return &StagingRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *StagingRepository) getQuerier() interface {
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

// ReplaceStaging clears the staging buffer and inserts the given batch.
// Returns the number of rows staged.
func (r *StagingRepository) ReplaceStaging(ctx context.Context, records []model.CleanPriceRecord) (int, error) {
	q := r.getQuerier()

	if _, err := q.ExecContext(ctx, "DELETE FROM GoldPrices_temp"); err != nil {
		return 0, fmt.Errorf("failed to clear staging table: %w", err)
	}

	query := `
        INSERT INTO GoldPrices_temp (GoldType, BuyPrice, SellPrice, UpdateTime)
        VALUES (?, ?, ?, ?)
    `

	for _, record := range records {
		_, err := q.ExecContext(ctx, query,
			record.GoldType,
			record.BuyPrice,
			record.SellPrice,
			FormatTime(record.UpdateTime),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert staging row: %w", err)
		}
	}

	return len(records), nil
}

// GetStaging retrieves all rows currently held in the staging buffer.
func (r *StagingRepository) GetStaging(ctx context.Context) ([]model.StagedPrice, error) {
	query := `
        SELECT gold_id, GoldType, BuyPrice, SellPrice, UpdateTime
        FROM GoldPrices_temp
        ORDER BY gold_id ASC
    `

	return r.scanPrices(ctx, query)
}

// GetCanonical retrieves all non-deleted rows from the canonical table.
func (r *StagingRepository) GetCanonical(ctx context.Context) ([]model.StagedPrice, error) {
	query := `
        SELECT gold_id, GoldType, BuyPrice, SellPrice, UpdateTime
        FROM GoldPrices
        WHERE Is_deleted = 0
        ORDER BY gold_id ASC
    `

	return r.scanPrices(ctx, query)
}

func (r *StagingRepository) scanPrices(ctx context.Context, query string) ([]model.StagedPrice, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query price table: %w", err)
	}
	defer rows.Close()

	prices := []model.StagedPrice{}

	for rows.Next() {
		var p model.StagedPrice
		var updateTimeStr string

		err := rows.Scan(
			&p.ID,
			&p.GoldType,
			&p.BuyPrice,
			&p.SellPrice,
			&updateTimeStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}

		p.UpdateTime, err = ParseTime(updateTimeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse UpdateTime: %w", err)
		}

		prices = append(prices, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price table: %w", err)
	}

	return prices, nil
}

// CountNewRows counts staging rows with no matching (GoldType, BuyPrice,
// SellPrice) tuple in the canonical table. UpdateTime is deliberately
// ignored: re-observing identical prices at a later time counts as "no
// change" and the earlier observation is kept.
func (r *StagingRepository) CountNewRows(ctx context.Context) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM GoldPrices_temp t
        LEFT JOIN GoldPrices p
            ON t.GoldType = p.GoldType
            AND t.BuyPrice = p.BuyPrice
            AND t.SellPrice = p.SellPrice
        WHERE p.GoldType IS NULL
    `

	var count int
	if err := r.getQuerier().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count new staging rows: %w", err)
	}

	return count, nil
}

// CountStaging returns the number of rows in the staging buffer.
func (r *StagingRepository) CountStaging(ctx context.Context) (int, error) {
	return r.countTable(ctx, "SELECT COUNT(*) FROM GoldPrices_temp")
}

// CountCanonical returns the number of rows in the canonical table.
func (r *StagingRepository) CountCanonical(ctx context.Context) (int, error) {
	return r.countTable(ctx, "SELECT COUNT(*) FROM GoldPrices")
}

func (r *StagingRepository) countTable(ctx context.Context, query string) (int, error) {
	var count int
	if err := r.getQuerier().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// Backup snapshots the canonical table into a timestamped backup table and
// returns its name. The suffix must be a caller-generated timestamp; table
// names cannot be bound as parameters.
func (r *StagingRepository) Backup(ctx context.Context, suffix string) (string, error) {
	name := "GoldPrices_backup_" + suffix

	//#nosec G202 -- Safe: suffix is a generated timestamp, not user input
	query := "CREATE TABLE " + name + " AS SELECT * FROM GoldPrices"

	if _, err := r.getQuerier().ExecContext(ctx, query); err != nil {
		return "", fmt.Errorf("failed to back up canonical table: %w", err)
	}

	return name, nil
}

// SwapFromStaging replaces the canonical table's contents with the staging
// buffer's and reports the number of rows installed. Call inside the merge
// transaction, after Backup.
func (r *StagingRepository) SwapFromStaging(ctx context.Context) (int, error) {
	q := r.getQuerier()

	if _, err := q.ExecContext(ctx, "DELETE FROM GoldPrices"); err != nil {
		return 0, fmt.Errorf("failed to clear canonical table: %w", err)
	}

	result, err := q.ExecContext(ctx, `
        INSERT INTO GoldPrices (GoldType, BuyPrice, SellPrice, UpdateTime, Is_deleted)
        SELECT GoldType, BuyPrice, SellPrice, UpdateTime, 0 FROM GoldPrices_temp
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to reinsert from staging: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(inserted), nil
}

// TruncateStaging empties the staging buffer.
func (r *StagingRepository) TruncateStaging(ctx context.Context) error {
	if _, err := r.getQuerier().ExecContext(ctx, "DELETE FROM GoldPrices_temp"); err != nil {
		return fmt.Errorf("failed to truncate staging table: %w", err)
	}
	return nil
}

// ListBackups returns the names of all backup tables, newest first.
func (r *StagingRepository) ListBackups(ctx context.Context) ([]string, error) {
	query := `
        SELECT name FROM sqlite_master
        WHERE type = 'table' AND name LIKE 'GoldPrices_backup_%'
        ORDER BY name DESC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup tables: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan backup table name: %w", err)
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backup tables: %w", err)
	}

	return names, nil
}
