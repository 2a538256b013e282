// REST client for the Upbit spot API, resty only with internal retry on the
// market-data side. Private order calls are never retried; a failed placement
// surfaces immediately and the caller decides what to skip.
package connectors

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"pumpscanner/src/externalmodel"
)

const (
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second

	candleTimeLayout = "2006-01-02T15:04:05Z"
)

type Client struct {
	accessKey string
	secretKey string
	baseURL   string
	market    *resty.Client
	trading   *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.UpbitBaseURL
	if baseURL == "" {
		baseURL = "https://api.upbit.com"
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second

	marketClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	// Order placement must not be replayed on timeouts.
	tradingClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &Client{
		accessKey: cfg.UpbitAccessKey,
		secretKey: cfg.UpbitSecretKey,
		baseURL:   baseURL,
		market:    marketClient,
		trading:   tradingClient,
	}
}

func decodeError(resp *resty.Response) error {
	var envelope externalmodel.UpbitAPIError
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil || envelope.Error.Name == "" {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return &APIError{
		HTTPStatus: resp.StatusCode(),
		Name:       envelope.Error.Name,
		Message:    envelope.Error.Message,
	}
}

func (c *Client) doPublic(path string, query url.Values, out interface{}) error {
	req := c.market.R()
	if len(query) > 0 {
		req = req.SetQueryString(query.Encode())
	}

	resp, err := req.Get(path)
	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return decodeError(resp)
	}

	return json.Unmarshal(resp.Body(), out)
}

// doPrivate signs the call with a JWT whose query_hash covers the encoded
// params. POST bodies go out form-encoded so the hash matches what the
// exchange sees.
func (c *Client) doPrivate(httpClient *resty.Client, method, path string, params url.Values, out interface{}) error {
	encoded := params.Encode()

	token, err := authToken(c.accessKey, c.secretKey, encoded)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	req := httpClient.R().SetHeader("Authorization", "Bearer "+token)

	switch method {
	case resty.MethodPost:
		req = req.
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(encoded)
	default:
		if encoded != "" {
			req = req.SetQueryString(encoded)
		}
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}

// Markets lists every tradable market on the exchange.
func (c *Client) Markets() ([]externalmodel.UpbitMarket, error) {
	var markets []externalmodel.UpbitMarket

	query := url.Values{}
	query.Set("isDetails", "false")

	if err := c.doPublic("/v1/market/all", query, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// Tickers fetches 24h stats for up to 100 markets in one call. Chunking is
// the caller's job.
func (c *Client) Tickers(markets []string) ([]externalmodel.UpbitTicker, error) {
	if len(markets) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("markets", strings.Join(markets, ","))

	var tickers []externalmodel.UpbitTicker
	if err := c.doPublic("/v1/ticker", query, &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

func (c *Client) Orderbook(market string) (*externalmodel.UpbitOrderbook, error) {
	query := url.Values{}
	query.Set("markets", market)

	var books []externalmodel.UpbitOrderbook
	if err := c.doPublic("/v1/orderbook", query, &books); err != nil {
		return nil, err
	}

	if len(books) == 0 {
		return nil, fmt.Errorf("no orderbook returned for %s", market)
	}
	return &books[0], nil
}

// MinuteCandles returns one-minute candles ending at `to` (exclusive),
// newest first, the exchange's native order.
func (c *Client) MinuteCandles(market string, to time.Time, count int) ([]externalmodel.UpbitCandle, error) {
	query := url.Values{}
	query.Set("market", market)
	query.Set("count", strconv.Itoa(count))
	if !to.IsZero() {
		query.Set("to", to.UTC().Format(candleTimeLayout))
	}

	var candles []externalmodel.UpbitCandle
	if err := c.doPublic("/v1/candles/minutes/1", query, &candles); err != nil {
		return nil, err
	}
	return candles, nil
}

func (c *Client) DayCandles(market string, count int) ([]externalmodel.UpbitCandle, error) {
	query := url.Values{}
	query.Set("market", market)
	query.Set("count", strconv.Itoa(count))

	var candles []externalmodel.UpbitCandle
	if err := c.doPublic("/v1/candles/days", query, &candles); err != nil {
		return nil, err
	}
	return candles, nil
}

func (c *Client) Accounts() ([]externalmodel.UpbitAccount, error) {
	var accounts []externalmodel.UpbitAccount
	if err := c.doPrivate(c.market, resty.MethodGet, "/v1/accounts", url.Values{}, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// BuyMarket spends `notional` quote units at market (ord_type "price").
func (c *Client) BuyMarket(market string, notional decimal.Decimal) (*externalmodel.UpbitOrder, error) {
	params := url.Values{}
	params.Set("market", market)
	params.Set("side", "bid")
	params.Set("ord_type", "price")
	params.Set("price", notional.String())
	params.Set("identifier", uuid.NewString())

	var order externalmodel.UpbitOrder
	if err := c.doPrivate(c.trading, resty.MethodPost, "/v1/orders", params, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SellMarket sells `volume` base units at market.
func (c *Client) SellMarket(market string, volume decimal.Decimal) (*externalmodel.UpbitOrder, error) {
	params := url.Values{}
	params.Set("market", market)
	params.Set("side", "ask")
	params.Set("ord_type", "market")
	params.Set("volume", volume.String())
	params.Set("identifier", uuid.NewString())

	var order externalmodel.UpbitOrder
	if err := c.doPrivate(c.trading, resty.MethodPost, "/v1/orders", params, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SellLimit places a limit ask for `volume` at `price`.
func (c *Client) SellLimit(market string, volume, price decimal.Decimal) (*externalmodel.UpbitOrder, error) {
	params := url.Values{}
	params.Set("market", market)
	params.Set("side", "ask")
	params.Set("ord_type", "limit")
	params.Set("volume", volume.String())
	params.Set("price", price.String())
	params.Set("identifier", uuid.NewString())

	var order externalmodel.UpbitOrder
	if err := c.doPrivate(c.trading, resty.MethodPost, "/v1/orders", params, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches one order with its trade detail.
func (c *Client) GetOrder(orderID string) (*externalmodel.UpbitOrder, error) {
	params := url.Values{}
	params.Set("uuid", orderID)

	var order externalmodel.UpbitOrder
	if err := c.doPrivate(c.market, resty.MethodGet, "/v1/order", params, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CancelOrder(orderID string) error {
	params := url.Values{}
	params.Set("uuid", orderID)

	return c.doPrivate(c.trading, resty.MethodDelete, "/v1/order", params, nil)
}
