package extract

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"goldwarehouse/internal/model"
)

// FileCollector scans a directory for price files (CSV, JSON, XLSX) and
// concatenates their records into one batch. Unreadable files are logged
// and skipped so one bad drop does not poison the rest of the directory.
type FileCollector struct {
	dir string
}

// NewFileCollector creates a collector over the given directory.
func NewFileCollector(dir string) *FileCollector {
	return &FileCollector{dir: dir}
}

func (c *FileCollector) Name() string { return "extract-file" }

func (c *FileCollector) Collect(ctx context.Context) ([]model.RawPriceRecord, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", c.dir, err)
	}

	records := []model.RawPriceRecord{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(c.dir, entry.Name())

		var batch []model.RawPriceRecord
		var readErr error

		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv":
			batch, readErr = ReadCSV(path)
		case ".json":
			batch, readErr = ReadJSON(path)
		case ".xlsx":
			batch, readErr = ReadExcel(path)
		default:
			continue
		}

		if readErr != nil {
			log.Printf("WARNING: skipping %s: %v", path, readErr)
			continue
		}

		records = append(records, batch...)
	}

	return records, nil
}

// ReadCSV reads a price file with a header row, producing one raw record
// per data row keyed by the header names.
func ReadCSV(path string) ([]model.RawPriceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	records := make([]model.RawPriceRecord, 0, len(rows)-1)

	for _, row := range rows[1:] {
		record := model.RawPriceRecord{}
		for i, name := range header {
			if i < len(row) {
				record[strings.TrimSpace(name)] = row[i]
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// ReadJSON reads a price file holding either a bare array of records or a
// known envelope ("DGPlist" / "IGPList") wrapping one.
func ReadJSON(path string) ([]model.RawPriceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	return DecodeRecords(data)
}

// DecodeRecords decodes a JSON document into raw records, unwrapping the
// source envelopes some feeds use.
func DecodeRecords(data []byte) ([]model.RawPriceRecord, error) {
	var records []model.RawPriceRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode JSON records: %w", err)
	}

	for _, key := range []string{"DGPlist", "IGPList"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("failed to decode %s records: %w", key, err)
		}
		return records, nil
	}

	return nil, fmt.Errorf("JSON document is neither a record array nor a known envelope")
}

// ReadExcel reads the first sheet of a spreadsheet with a header row.
func ReadExcel(path string) ([]model.RawPriceRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	records := make([]model.RawPriceRecord, 0, len(rows)-1)

	for _, row := range rows[1:] {
		record := model.RawPriceRecord{}
		for i, name := range header {
			if i < len(row) {
				record[strings.TrimSpace(name)] = row[i]
			}
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}

	return records, nil
}
