package model

import "time"

// DateDimensionRow is one row of DimDate. DateKey doubles as surrogate and
// natural key in YYYYMMDD form; rows are immutable once created.
type DateDimensionRow struct {
	DateKey int
	Date    time.Time
	Year    int
	Month   int
	Day     int
	Quarter int
}

// GoldTypeDimensionRow is one row of DimGoldType. The surrogate key is
// assigned once per distinct GoldType string and never renumbered.
// Keys produced by the transform engine are batch-local ordinals; only the
// warehouse loader hands out persisted keys.
type GoldTypeDimensionRow struct {
	GoldTypeKey int64
	GoldType    string
	CreatedAt   time.Time
}
