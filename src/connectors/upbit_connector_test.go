package connectors

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		UpbitBaseURL:      server.URL,
		UpbitAccessKey:    "access",
		UpbitSecretKey:    "secret",
		RequestTimeoutSec: 5,
	})
}

func TestTickersJoinsMarkets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ticker", r.URL.Path)
		assert.Equal(t, "KRW-BTC,KRW-ETH", r.URL.Query().Get("markets"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"market":"KRW-BTC","trade_price":50000000},{"market":"KRW-ETH","trade_price":3000000}]`))
	})

	tickers, err := client.Tickers([]string{"KRW-BTC", "KRW-ETH"})
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, "KRW-BTC", tickers[0].Market)
}

func TestTickersEmptyInputSkipsCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})

	tickers, err := client.Tickers(nil)
	require.NoError(t, err)
	assert.Nil(t, tickers)
}

func TestDecodeErrorMapsToAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"name":"under_min_total_bid","message":"주문 금액이 부족합니다."}}`))
	})

	_, err := client.BuyMarket("KRW-BTC", decimal.RequireFromString("100"))
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	assert.Equal(t, "under_min_total_bid", apiErr.Name)
}

func TestBuyMarketSignsAndEncodesForm(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "bid", r.PostForm.Get("side"))
		assert.Equal(t, "price", r.PostForm.Get("ord_type"))
		assert.Equal(t, "125000", r.PostForm.Get("price"))
		assert.NotEmpty(t, r.PostForm.Get("identifier"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"uuid":"order-1","market":"KRW-BTC","state":"wait"}`))
	})

	order, err := client.BuyMarket("KRW-BTC", decimal.RequireFromString("125000"))
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.UUID)
}

func TestGetOrderSendsUUIDInQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/order", r.URL.Path)
		assert.Equal(t, "order-1", r.URL.Query().Get("uuid"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"uuid":"order-1","state":"done"}`))
	})

	order, err := client.GetOrder("order-1")
	require.NoError(t, err)
	assert.Equal(t, "done", order.State)
}

func TestMarketRetriesServerErrors(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"market":"KRW-BTC"}]`))
	})

	markets, err := client.Markets()
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, 2, calls)
}
