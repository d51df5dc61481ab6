package transform

import (
	"sort"

	"goldwarehouse/internal/model"
)

type priceStats struct {
	count                     int
	sumBuy, minBuy, maxBuy    float64
	sumSell, minSell, maxSell float64
	sumDifference             float64
}

func (s *priceStats) add(f model.FactRow) {
	if s.count == 0 {
		s.minBuy, s.maxBuy = f.BuyPrice, f.BuyPrice
		s.minSell, s.maxSell = f.SellPrice, f.SellPrice
	} else {
		s.minBuy = min(s.minBuy, f.BuyPrice)
		s.maxBuy = max(s.maxBuy, f.BuyPrice)
		s.minSell = min(s.minSell, f.SellPrice)
		s.maxSell = max(s.maxSell, f.SellPrice)
	}
	s.count++
	s.sumBuy += f.BuyPrice
	s.sumSell += f.SellPrice
	s.sumDifference += f.PriceDifference
}

// BuildDailyAggregates fully recomputes the daily rollup from the fact set:
// mean/min/max buy and sell prices and mean price difference per DateKey,
// rounded to 2 decimals. Results are sorted by DateKey.
func BuildDailyAggregates(facts []model.FactRow) []model.DailyAggregateRow {
	byDate := make(map[int]*priceStats)

	for _, f := range facts {
		stats, ok := byDate[f.DateKey]
		if !ok {
			stats = &priceStats{}
			byDate[f.DateKey] = stats
		}
		stats.add(f)
	}

	rows := make([]model.DailyAggregateRow, 0, len(byDate))
	for dateKey, s := range byDate {
		n := float64(s.count)
		rows = append(rows, model.DailyAggregateRow{
			DateKey:            dateKey,
			AvgBuyPrice:        round2(s.sumBuy / n),
			MinBuyPrice:        round2(s.minBuy),
			MaxBuyPrice:        round2(s.maxBuy),
			AvgSellPrice:       round2(s.sumSell / n),
			MinSellPrice:       round2(s.minSell),
			MaxSellPrice:       round2(s.maxSell),
			AvgPriceDifference: round2(s.sumDifference / n),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DateKey < rows[j].DateKey })

	return rows
}

// BuildMonthlyAggregates fully recomputes the monthly rollup, joining facts
// to the date dimension to resolve (Year, Month). Facts whose DateKey has
// no dimension row are skipped.
func BuildMonthlyAggregates(facts []model.FactRow, dateDim []model.DateDimensionRow) []model.MonthlyAggregateRow {
	type yearMonth struct{ year, month int }

	grainByDate := make(map[int]yearMonth, len(dateDim))
	for _, d := range dateDim {
		grainByDate[d.DateKey] = yearMonth{d.Year, d.Month}
	}

	byGrain := make(map[yearMonth]*priceStats)
	for _, f := range facts {
		grain, ok := grainByDate[f.DateKey]
		if !ok {
			continue
		}
		stats, ok := byGrain[grain]
		if !ok {
			stats = &priceStats{}
			byGrain[grain] = stats
		}
		stats.add(f)
	}

	rows := make([]model.MonthlyAggregateRow, 0, len(byGrain))
	for grain, s := range byGrain {
		n := float64(s.count)
		rows = append(rows, model.MonthlyAggregateRow{
			Year:               grain.year,
			Month:              grain.month,
			AvgBuyPrice:        round2(s.sumBuy / n),
			MinBuyPrice:        round2(s.minBuy),
			MaxBuyPrice:        round2(s.maxBuy),
			AvgSellPrice:       round2(s.sumSell / n),
			MinSellPrice:       round2(s.minSell),
			MaxSellPrice:       round2(s.maxSell),
			AvgPriceDifference: round2(s.sumDifference / n),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Month < rows[j].Month
	})

	return rows
}
