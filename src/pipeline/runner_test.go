package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpscanner/src/model"
)

type fakeMarket struct {
	symbols     []string
	symbolsErr  error
	instruments map[string]model.Instrument
	pairs       map[string]model.CandlePair
	pairErrs    map[string]error
	books       map[string]*model.OrderBookQuote
	dayCandles  map[string][]model.Candle
	dayErrs     map[string]error

	tickerCalls int
}

func (f *fakeMarket) Symbols(exclude []string) ([]string, error) {
	if f.symbolsErr != nil {
		return nil, f.symbolsErr
	}
	excluded := make(map[string]bool, len(exclude))
	for _, s := range exclude {
		excluded[s] = true
	}
	var out []string
	for _, s := range f.symbols {
		if !excluded[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeMarket) Instruments(symbols []string) ([]model.Instrument, error) {
	f.tickerCalls++
	var out []model.Instrument
	for _, s := range symbols {
		out = append(out, f.instruments[s])
	}
	return out, nil
}

func (f *fakeMarket) BoundaryCandles(symbol string, boundary time.Time) (model.CandlePair, error) {
	if err, ok := f.pairErrs[symbol]; ok {
		return model.CandlePair{}, err
	}
	return f.pairs[symbol], nil
}

func (f *fakeMarket) Orderbook(symbol string) (*model.OrderBookQuote, error) {
	return f.books[symbol], nil
}

func (f *fakeMarket) DayCandles(symbol string, count int) ([]model.Candle, error) {
	if err, ok := f.dayErrs[symbol]; ok {
		return nil, err
	}
	return f.dayCandles[symbol], nil
}

func newTestPipeline(market MarketData) *Pipeline {
	nullLogger, _ := logrustest.NewNullLogger()
	p := New(market, logrus.NewEntry(nullLogger))
	p.sleep = func(time.Duration) {}
	return p
}

func risingPair(symbol string) model.CandlePair {
	return model.CandlePair{
		Symbol: symbol,
		Before: &model.Candle{Close: decimal.RequireFromString("100"), Volume: decimal.RequireFromString("100")},
		At:     &model.Candle{Close: decimal.RequireFromString("101"), Volume: decimal.RequireFromString("500")},
	}
}

func deepBook(symbol string) *model.OrderBookQuote {
	return &model.OrderBookQuote{
		Symbol: symbol,
		Bids:   []model.OrderBookLevel{level("1000", "1000000")},
		Asks:   []model.OrderBookLevel{level("1001", "1000000")},
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	boundary := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	market := &fakeMarket{
		symbols: []string{"KRW-BTC", "KRW-ETH", "KRW-XRP"},
		instruments: map[string]model.Instrument{
			"KRW-BTC": {Symbol: "KRW-BTC", LastPrice: decimal.RequireFromString("1001"), Turnover24h: decimal.RequireFromString("5000000000")},
			"KRW-ETH": {Symbol: "KRW-ETH", LastPrice: decimal.RequireFromString("1001"), Turnover24h: decimal.RequireFromString("5000000000")},
			"KRW-XRP": {Symbol: "KRW-XRP", LastPrice: decimal.RequireFromString("1001"), Turnover24h: decimal.RequireFromString("100")},
		},
		pairs: map[string]model.CandlePair{
			"KRW-BTC": risingPair("KRW-BTC"),
			"KRW-XRP": risingPair("KRW-XRP"),
		},
		pairErrs: map[string]error{
			"KRW-ETH": errors.New("candle fetch failed"),
		},
		books: map[string]*model.OrderBookQuote{
			"KRW-BTC": deepBook("KRW-BTC"),
		},
		dayCandles: map[string][]model.Candle{
			"KRW-BTC": dayCandles(5, 5),
		},
	}

	pipe := newTestPipeline(market)

	result, err := pipe.Run(context.Background(), boundary, Params{
		Thresholds:       testThresholds(),
		DayCandleEnabled: true,
		MinBullishRatio:  decimal.RequireFromString("0.4"),
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)

	// ETH is terminal with CANDLE_MISSING, XRP dies on turnover, BTC goes
	// the distance and carries a day-candle tag.
	require.Len(t, result.Survivors, 1)
	survivor := result.Survivors[0]
	assert.Equal(t, "KRW-BTC", survivor.Symbol)
	require.NotNil(t, survivor.DayCandlePass)
	assert.True(t, *survivor.DayCandlePass)

	var ethVerdict, xrpVerdict *model.FilterVerdict
	for i := range result.Verdicts {
		v := &result.Verdicts[i]
		if v.Symbol == "KRW-ETH" && v.Stage == model.StageCandleCompare {
			ethVerdict = v
		}
		if v.Symbol == "KRW-XRP" && v.Stage == model.StageTurnover {
			xrpVerdict = v
		}
	}
	require.NotNil(t, ethVerdict)
	assert.True(t, ethVerdict.HasReason(model.FailCandleMissing))
	require.NotNil(t, xrpVerdict)
	assert.True(t, xrpVerdict.HasReason(model.FailTurnoverBelowMin))
}

func TestPipelineRunSymbolListFailureIsFatal(t *testing.T) {
	market := &fakeMarket{symbolsErr: errors.New("markets endpoint down")}
	pipe := newTestPipeline(market)

	result, err := pipe.Run(context.Background(), time.Now(), Params{Thresholds: testThresholds()})

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestPipelineRunAbandonsOnCancel(t *testing.T) {
	market := &fakeMarket{
		symbols: []string{"KRW-BTC"},
		instruments: map[string]model.Instrument{
			"KRW-BTC": {Symbol: "KRW-BTC", Turnover24h: decimal.RequireFromString("5000000000")},
		},
		pairs: map[string]model.CandlePair{"KRW-BTC": risingPair("KRW-BTC")},
		books: map[string]*model.OrderBookQuote{"KRW-BTC": deepBook("KRW-BTC")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipe := newTestPipeline(market)
	result, err := pipe.Run(ctx, time.Now(), Params{Thresholds: testThresholds()})

	// Partial results are discarded, never returned.
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestPipelineFetchSnapshotsChunks(t *testing.T) {
	symbols := make([]string, 0, 230)
	instruments := make(map[string]model.Instrument, 230)
	for i := 0; i < 230; i++ {
		s := "KRW-" + string(rune('A'+i%26)) + string(rune('A'+i/26))
		symbols = append(symbols, s)
		instruments[s] = model.Instrument{Symbol: s}
	}

	market := &fakeMarket{symbols: symbols, instruments: instruments}
	pipe := newTestPipeline(market)

	got, err := pipe.fetchSnapshots(context.Background(), symbols, Params{BatchSize: 100})

	require.NoError(t, err)
	assert.Len(t, got, 230)
	assert.Equal(t, 3, market.tickerCalls)
}

func TestChunkSymbols(t *testing.T) {
	chunks := chunkSymbols([]string{"a", "b", "c", "d", "e"}, 2)

	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"e"}, chunks[2])
}
