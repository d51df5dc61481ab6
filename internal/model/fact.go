package model

// FactRow is one row of FactGoldPrices. GoldTypeKey references DimGoldType
// and DateKey references DimDate; fact rows are never orphaned.
type FactRow struct {
	GoldTypeKey               int64
	DateKey                   int
	BuyPrice                  float64
	SellPrice                 float64
	PriceDifference           float64
	PriceDifferencePercentage float64
}

// DailyAggregateRow is one row of AggDailyGoldPrices, fully recomputed from
// the fact rows sharing its DateKey.
type DailyAggregateRow struct {
	DateKey            int
	AvgBuyPrice        float64
	MinBuyPrice        float64
	MaxBuyPrice        float64
	AvgSellPrice       float64
	MinSellPrice       float64
	MaxSellPrice       float64
	AvgPriceDifference float64
}

// MonthlyAggregateRow is one row of AggMonthlyGoldPrices at (Year, Month)
// grain.
type MonthlyAggregateRow struct {
	Year               int
	Month              int
	AvgBuyPrice        float64
	MinBuyPrice        float64
	MaxBuyPrice        float64
	AvgSellPrice       float64
	MinSellPrice       float64
	MaxSellPrice       float64
	AvgPriceDifference float64
}
