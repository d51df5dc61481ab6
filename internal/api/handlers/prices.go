package handlers

import (
	"net/http"
	"time"

	"goldwarehouse/internal/api/response"
	"goldwarehouse/internal/model"
	"goldwarehouse/internal/repository"
)

// PricesHandler serves the warehouse read endpoints: canonical prices,
// aggregate marts, and merge backups.
type PricesHandler struct {
	stagingRepo   *repository.StagingRepository
	warehouseRepo *repository.WarehouseRepository
}

// NewPricesHandler creates a new PricesHandler
func NewPricesHandler(stagingRepo *repository.StagingRepository, warehouseRepo *repository.WarehouseRepository) *PricesHandler {
	return &PricesHandler{
		stagingRepo:   stagingRepo,
		warehouseRepo: warehouseRepo,
	}
}

// PriceResponse represents one canonical price row
type PriceResponse struct {
	GoldType   string    `json:"gold_type"`
	BuyPrice   float64   `json:"buy_price"`
	SellPrice  float64   `json:"sell_price"`
	UpdateTime time.Time `json:"update_time"`
}

// DailyAggregateResponse represents one row of the daily mart
type DailyAggregateResponse struct {
	DateKey            int     `json:"date_key"`
	AvgBuyPrice        float64 `json:"avg_buy_price"`
	MinBuyPrice        float64 `json:"min_buy_price"`
	MaxBuyPrice        float64 `json:"max_buy_price"`
	AvgSellPrice       float64 `json:"avg_sell_price"`
	MinSellPrice       float64 `json:"min_sell_price"`
	MaxSellPrice       float64 `json:"max_sell_price"`
	AvgPriceDifference float64 `json:"avg_price_difference"`
}

// MonthlyAggregateResponse represents one row of the monthly mart
type MonthlyAggregateResponse struct {
	Year               int     `json:"year"`
	Month              int     `json:"month"`
	AvgBuyPrice        float64 `json:"avg_buy_price"`
	MinBuyPrice        float64 `json:"min_buy_price"`
	MaxBuyPrice        float64 `json:"max_buy_price"`
	AvgSellPrice       float64 `json:"avg_sell_price"`
	MinSellPrice       float64 `json:"min_sell_price"`
	MaxSellPrice       float64 `json:"max_sell_price"`
	AvgPriceDifference float64 `json:"avg_price_difference"`
}

// Latest returns the canonical price table.
//
// Endpoint: GET /api/prices/latest
func (h *PricesHandler) Latest(w http.ResponseWriter, r *http.Request) {
	prices, err := h.stagingRepo.GetCanonical(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to get prices", err.Error())
		return
	}

	out := make([]PriceResponse, len(prices))
	for i, p := range prices {
		out[i] = PriceResponse{
			GoldType:   p.GoldType,
			BuyPrice:   p.BuyPrice,
			SellPrice:  p.SellPrice,
			UpdateTime: p.UpdateTime,
		}
	}
	response.RespondJSON(w, http.StatusOK, out)
}

// DailyMart returns the daily aggregate mart.
//
// Endpoint: GET /api/marts/daily
func (h *PricesHandler) DailyMart(w http.ResponseWriter, r *http.Request) {
	rows, err := h.warehouseRepo.GetDailyAggregates(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to get daily mart", err.Error())
		return
	}

	out := make([]DailyAggregateResponse, len(rows))
	for i, row := range rows {
		out[i] = toDailyResponse(row)
	}
	response.RespondJSON(w, http.StatusOK, out)
}

// MonthlyMart returns the monthly aggregate mart.
//
// Endpoint: GET /api/marts/monthly
func (h *PricesHandler) MonthlyMart(w http.ResponseWriter, r *http.Request) {
	rows, err := h.warehouseRepo.GetMonthlyAggregates(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to get monthly mart", err.Error())
		return
	}

	out := make([]MonthlyAggregateResponse, len(rows))
	for i, row := range rows {
		out[i] = MonthlyAggregateResponse{
			Year:               row.Year,
			Month:              row.Month,
			AvgBuyPrice:        row.AvgBuyPrice,
			MinBuyPrice:        row.MinBuyPrice,
			MaxBuyPrice:        row.MaxBuyPrice,
			AvgSellPrice:       row.AvgSellPrice,
			MinSellPrice:       row.MinSellPrice,
			MaxSellPrice:       row.MaxSellPrice,
			AvgPriceDifference: row.AvgPriceDifference,
		}
	}
	response.RespondJSON(w, http.StatusOK, out)
}

// Backups lists the timestamped backup tables created by the merge.
//
// Endpoint: GET /api/backups
func (h *PricesHandler) Backups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.stagingRepo.ListBackups(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to list backups", err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, backups)
}

func toDailyResponse(row model.DailyAggregateRow) DailyAggregateResponse {
	return DailyAggregateResponse{
		DateKey:            row.DateKey,
		AvgBuyPrice:        row.AvgBuyPrice,
		MinBuyPrice:        row.MinBuyPrice,
		MaxBuyPrice:        row.MaxBuyPrice,
		AvgSellPrice:       row.AvgSellPrice,
		MinSellPrice:       row.MinSellPrice,
		MaxSellPrice:       row.MaxSellPrice,
		AvgPriceDifference: row.AvgPriceDifference,
	}
}
