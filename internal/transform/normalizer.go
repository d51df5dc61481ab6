package transform

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"goldwarehouse/internal/apperrors"
	"goldwarehouse/internal/model"
)

// Field-name aliases across sources, consulted once at ingestion. Keys are
// compared case-insensitively after trimming; downstream components only
// ever see the canonical names.
var fieldAliases = map[string]string{
	"goldtype":   "GoldType",
	"type":       "GoldType",
	"name":       "GoldType",
	"buyprice":   "BuyPrice",
	"buy":        "BuyPrice",
	"sellprice":  "SellPrice",
	"sell":       "SellPrice",
	"updatetime": "UpdateTime",
	"update":     "UpdateTime",
	"datetime":   "UpdateTime",
	"time":       "UpdateTime",
}

// Timestamp formats tried in order. Day-first formats come before ISO so
// "02/01/2024 09:30:00" resolves to January 2nd, matching the sources.
var timeLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	model.TimeLayout,
	"2006-01-02",
}

// Normalizer cleans and validates raw records into the canonical shape.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer using the wall clock for timestamp
// fallback.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock creates a Normalizer with an injected clock.
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize resolves field aliases and parses one raw record. A missing or
// empty gold type, or a negative or unparsable price, rejects the record.
// An unparsable timestamp is not a rejection: it falls back to processing
// time.
func (n *Normalizer) Normalize(raw model.RawPriceRecord) (model.CleanPriceRecord, error) {
	resolved := resolveAliases(raw)

	goldType := strings.TrimSpace(toString(resolved["GoldType"]))
	if goldType == "" {
		return model.CleanPriceRecord{}, apperrors.ErrMissingGoldType
	}

	buyPrice, err := parsePrice(resolved["BuyPrice"])
	if err != nil {
		return model.CleanPriceRecord{}, fmt.Errorf("buy price: %w", err)
	}

	sellPrice, err := parsePrice(resolved["SellPrice"])
	if err != nil {
		return model.CleanPriceRecord{}, fmt.Errorf("sell price: %w", err)
	}

	updateTime, ok := parseTimestamp(resolved["UpdateTime"])
	if !ok {
		updateTime = n.now()
	}

	return model.CleanPriceRecord{
		GoldType:   goldType,
		BuyPrice:   buyPrice,
		SellPrice:  sellPrice,
		UpdateTime: updateTime.Truncate(time.Second),
	}, nil
}

// NormalizeBatch normalizes a whole batch. Rejected rows are logged and
// dropped without aborting the batch; the count of rejections is returned.
// A required column absent from every row is a schema error and fails the
// batch without retry. A batch yielding zero accepted records fails with
// ErrNoValidData.
func (n *Normalizer) NormalizeBatch(raws []model.RawPriceRecord) ([]model.CleanPriceRecord, int, error) {
	if len(raws) == 0 {
		return nil, 0, apperrors.ErrEmptyBatch
	}

	if missing := missingColumns(raws); len(missing) > 0 {
		return nil, 0, fmt.Errorf("%w: %s", apperrors.ErrSchemaMissingColumns, strings.Join(missing, ", "))
	}

	records := make([]model.CleanPriceRecord, 0, len(raws))
	rejected := 0

	for i, raw := range raws {
		record, err := n.Normalize(raw)
		if err != nil {
			rejected++
			log.Printf("WARNING: dropping record %d: %v", i, err)
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, rejected, fmt.Errorf("%w: all %d records rejected", apperrors.ErrNoValidData, rejected)
	}

	return records, rejected, nil
}

// resolveAliases maps source-specific field names onto the canonical ones.
// Canonical names win over aliases when a row carries both.
func resolveAliases(raw model.RawPriceRecord) map[string]any {
	resolved := make(map[string]any, 4)
	for key, value := range raw {
		canonical, ok := fieldAliases[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		if _, exists := resolved[canonical]; exists && !isCanonicalKey(key) {
			continue
		}
		resolved[canonical] = value
	}
	return resolved
}

func isCanonicalKey(key string) bool {
	switch strings.TrimSpace(key) {
	case "GoldType", "BuyPrice", "SellPrice", "UpdateTime":
		return true
	}
	return false
}

// missingColumns reports canonical columns (timestamp excluded, it has a
// fallback) that no row in the batch carries under any alias.
func missingColumns(raws []model.RawPriceRecord) []string {
	seen := map[string]bool{}
	for _, raw := range raws {
		for key := range resolveAliases(raw) {
			seen[key] = true
		}
	}

	var missing []string
	for _, required := range []string{"GoldType", "BuyPrice", "SellPrice"} {
		if !seen[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

// parsePrice accepts numeric values or strings with thousands separators.
// Negative prices are invalid.
func parsePrice(value any) (float64, error) {
	var price float64

	switch v := value.(type) {
	case nil:
		return 0, apperrors.ErrInvalidPrice
	case float64:
		price = v
	case float32:
		price = float64(v)
	case int:
		price = float64(v)
	case int64:
		price = float64(v)
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if cleaned == "" {
			return 0, apperrors.ErrInvalidPrice
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidPrice, v)
		}
		price = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", apperrors.ErrInvalidPrice, value)
	}

	if price < 0 {
		return 0, fmt.Errorf("%w: negative value %v", apperrors.ErrInvalidPrice, price)
	}

	return price, nil
}

// parseTimestamp tries the known layouts in order. The second return value
// is false when no layout matched and the caller should fall back.
func parseTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		str := strings.TrimSpace(v)
		if str == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, str); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func toString(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
