package transform

import (
	"sort"
	"time"

	"goldwarehouse/internal/model"
)

// DateKey truncates a timestamp to its day and formats it as an 8-digit
// YYYYMMDD integer.
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// BuildDateDimension derives one DateDimensionRow per distinct calendar
// date in the batch, sorted by DateKey.
func BuildDateDimension(records []model.CleanPriceRecord) []model.DateDimensionRow {
	byKey := make(map[int]model.DateDimensionRow)

	for _, r := range records {
		key := DateKey(r.UpdateTime)
		if _, exists := byKey[key]; exists {
			continue
		}

		day := time.Date(r.UpdateTime.Year(), r.UpdateTime.Month(), r.UpdateTime.Day(), 0, 0, 0, 0, r.UpdateTime.Location())
		byKey[key] = model.DateDimensionRow{
			DateKey: key,
			Date:    day,
			Year:    day.Year(),
			Month:   int(day.Month()),
			Day:     day.Day(),
			Quarter: (int(day.Month())-1)/3 + 1,
		}
	}

	rows := make([]model.DateDimensionRow, 0, len(byKey))
	for _, row := range byKey {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DateKey < rows[j].DateKey })

	return rows
}

// BuildGoldTypeDimension assigns a 1-based ordinal key to each distinct
// gold type in first-seen order. These keys are batch-local: the warehouse
// loader must remap them to persisted surrogate keys before any fact row is
// inserted.
func BuildGoldTypeDimension(records []model.CleanPriceRecord, createdAt time.Time) []model.GoldTypeDimensionRow {
	seen := make(map[string]bool)
	rows := []model.GoldTypeDimensionRow{}

	for _, r := range records {
		if seen[r.GoldType] {
			continue
		}
		seen[r.GoldType] = true
		rows = append(rows, model.GoldTypeDimensionRow{
			GoldTypeKey: int64(len(rows) + 1),
			GoldType:    r.GoldType,
			CreatedAt:   createdAt,
		})
	}

	return rows
}
