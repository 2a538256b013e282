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

type scanSearcher interface {
	FindLatest(ctx context.Context, limit int) ([]model.ScanVerdictRecord, error)
	FindByRunID(ctx context.Context, runID string) ([]model.ScanVerdictRecord, error)
}

// LatestScansHandler returns the newest persisted verdict rows. Supports a
// `limit` query parameter.
func LatestScansHandler(repo scanSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
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
			logger.WithError(err).Error("failed to fetch latest scans")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, records)
	}
}

// ScanByRunIDHandler returns the full audit trail of one scan run.
func ScanByRunIDHandler(repo scanSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runId")
		if runID == "" {
			http.Error(w, "missing runId", http.StatusBadRequest)
			return
		}

		records, err := repo.FindByRunID(r.Context(), runID)
		if err != nil {
			logger.WithError(err).Error("failed to fetch scan run")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if len(records) == 0 {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		writeJSON(w, records)
	}
}

// DefaultLatestScansHandler wires the handler to the production repository.
func DefaultLatestScansHandler() http.HandlerFunc {
	return LatestScansHandler(repository.NewScanRepository())
}

// DefaultScanByRunIDHandler wires the handler to the production repository.
func DefaultScanByRunIDHandler() http.HandlerFunc {
	return ScanByRunIDHandler(repository.NewScanRepository())
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}
