package model

import "time"

// RawPriceRecord is one observation as produced by a collector. Field names
// vary across sources (e.g. "type"/"buy"/"sell"/"update" vs
// "GoldType"/"BuyPrice"/...), so it stays a loose key/value bag until the
// normalizer resolves it into a CleanPriceRecord.
type RawPriceRecord map[string]any

// CleanPriceRecord is the canonical shape every downstream component works
// with: both prices parsed as non-negative floats, UpdateTime resolved to a
// concrete timestamp.
type CleanPriceRecord struct {
	GoldType   string
	BuyPrice   float64
	SellPrice  float64
	UpdateTime time.Time
}

// StagedPrice is a CleanPriceRecord persisted in the GoldPrices /
// GoldPrices_temp tables.
type StagedPrice struct {
	ID         int64
	GoldType   string
	BuyPrice   float64
	SellPrice  float64
	UpdateTime time.Time
}

// TimeLayout is the canonical timestamp format used in the price tables.
const TimeLayout = "2006-01-02 15:04:05"
