package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"pumpscanner/src/model"
)

type mockScanSearcher struct {
	records     []model.ScanVerdictRecord
	err         error
	limit       int
	runID       string
	calledCount int
}

func (m *mockScanSearcher) FindLatest(ctx context.Context, limit int) ([]model.ScanVerdictRecord, error) {
	m.calledCount++
	m.limit = limit
	return m.records, m.err
}

func (m *mockScanSearcher) FindByRunID(ctx context.Context, runID string) ([]model.ScanVerdictRecord, error) {
	m.calledCount++
	m.runID = runID
	return m.records, m.err
}

func withRunID(req *http.Request, runID string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("runId", runID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestLatestScansHandler_DefaultLimit(t *testing.T) {
	mockRepo := &mockScanSearcher{records: []model.ScanVerdictRecord{{ID: 1, Symbol: "KRW-BTC"}}}
	handler := LatestScansHandler(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/scans", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	if mockRepo.limit != 100 {
		t.Fatalf("expected default limit 100, got %d", mockRepo.limit)
	}

	if rr.Body.String() == "" {
		t.Fatalf("expected response body to be set")
	}
}

func TestLatestScansHandler_InvalidLimit(t *testing.T) {
	handler := LatestScansHandler(&mockScanSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/scans?limit=abc", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestLatestScansHandler_RepoError(t *testing.T) {
	mockRepo := &mockScanSearcher{err: assert.AnError}
	handler := LatestScansHandler(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/scans?limit=10", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}

	if mockRepo.limit != 10 {
		t.Fatalf("expected limit 10, got %d", mockRepo.limit)
	}
}

func TestScanByRunIDHandler_Success(t *testing.T) {
	mockRepo := &mockScanSearcher{records: []model.ScanVerdictRecord{{ID: 1, RunID: "run-1"}}}
	handler := ScanByRunIDHandler(mockRepo)

	req := withRunID(httptest.NewRequest(http.MethodGet, "/scans/run-1", nil), "run-1")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	if mockRepo.runID != "run-1" {
		t.Fatalf("expected run id run-1, got %q", mockRepo.runID)
	}
}

func TestScanByRunIDHandler_NotFound(t *testing.T) {
	handler := ScanByRunIDHandler(&mockScanSearcher{})

	req := withRunID(httptest.NewRequest(http.MethodGet, "/scans/run-404", nil), "run-404")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestScanByRunIDHandler_MissingParam(t *testing.T) {
	handler := ScanByRunIDHandler(&mockScanSearcher{})

	req := withRunID(httptest.NewRequest(http.MethodGet, "/scans/", nil), "")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
