package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"pumpscanner/src/model"
	"pumpscanner/src/repository"
)

type tradeSearcher interface {
	FindLatest(ctx context.Context, limit int) ([]model.RealizedTradeRecord, error)
	FindBySymbol(ctx context.Context, symbol string) ([]model.RealizedTradeRecord, error)
}

// LatestTradesHandler lists the newest realized trades.
func LatestTradesHandler(repo tradeSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		records, err := repo.FindLatest(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to fetch latest trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			logger.WithError(err).Error("failed to encode trade response")
		}
	}
}

// TradesBySymbolHandler lists every realized trade of one instrument.
func TradesBySymbolHandler(repo tradeSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := chi.URLParam(r, "symbol")
		if symbol == "" {
			http.Error(w, "missing symbol", http.StatusBadRequest)
			return
		}

		records, err := repo.FindBySymbol(r.Context(), symbol)
		if err != nil {
			logger.WithError(err).Error("failed to fetch trades by symbol")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			logger.WithError(err).Error("failed to encode trade response")
		}
	}
}

// DefaultLatestTradesHandler wires the handler to the production repository.
func DefaultLatestTradesHandler() http.HandlerFunc {
	return LatestTradesHandler(repository.NewTradeRepository())
}

// DefaultTradesBySymbolHandler wires the handler to the production repository.
func DefaultTradesBySymbolHandler() http.HandlerFunc {
	return TradesBySymbolHandler(repository.NewTradeRepository())
}
