package transform

import (
	"log"
	"math"

	"goldwarehouse/internal/model"
)

// round2 rounds to 2 decimals, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BuildFacts joins the batch against its dimensions and computes the
// derived price metrics. A record whose gold type is missing from the
// dimension fails that row only, never the batch; this should not occur
// when the dimensions were built from the same batch.
func BuildFacts(records []model.CleanPriceRecord, goldTypeDim []model.GoldTypeDimensionRow) []model.FactRow {
	keyByType := make(map[string]int64, len(goldTypeDim))
	for _, row := range goldTypeDim {
		keyByType[row.GoldType] = row.GoldTypeKey
	}

	facts := make([]model.FactRow, 0, len(records))

	for _, r := range records {
		goldTypeKey, ok := keyByType[r.GoldType]
		if !ok {
			log.Printf("WARNING: no dimension entry for gold type %q, dropping fact row", r.GoldType)
			continue
		}

		difference := r.SellPrice - r.BuyPrice
		percentage := 0.0
		if r.BuyPrice != 0 {
			percentage = difference / r.BuyPrice * 100
		}

		facts = append(facts, model.FactRow{
			GoldTypeKey:               goldTypeKey,
			DateKey:                   DateKey(r.UpdateTime),
			BuyPrice:                  round2(r.BuyPrice),
			SellPrice:                 round2(r.SellPrice),
			PriceDifference:           round2(difference),
			PriceDifferencePercentage: round2(percentage),
		})
	}

	return facts
}
