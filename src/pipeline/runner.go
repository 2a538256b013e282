package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pumpscanner/src/model"
)

// MarketData is what the pipeline needs from the exchange. Implemented by
// connectors.UpbitExchange; tests supply fakes.
type MarketData interface {
	Symbols(exclude []string) ([]string, error)
	Instruments(symbols []string) ([]model.Instrument, error)
	BoundaryCandles(symbol string, boundary time.Time) (model.CandlePair, error)
	Orderbook(symbol string) (*model.OrderBookQuote, error)
	DayCandles(symbol string, count int) ([]model.Candle, error)
}

type Params struct {
	Thresholds       Thresholds
	ExcludeSymbols   []string
	BatchSize        int
	BatchDelay       time.Duration
	FetchDelay       time.Duration
	DayCandleEnabled bool
	DayCandleCount   int
	MinBullishRatio  decimal.Decimal
}

func (p *Params) normalize() {
	if p.BatchSize <= 0 || p.BatchSize > 100 {
		p.BatchSize = 100
	}
	if p.DayCandleCount <= 0 {
		p.DayCandleCount = 10
	}
}

// Result is one full pipeline run. Verdicts hold the complete audit trail,
// one entry per instrument per stage it reached.
type Result struct {
	RunID     string
	Boundary  time.Time
	Survivors []model.RankedCandidate
	Verdicts  []model.FilterVerdict
}

type Pipeline struct {
	market MarketData
	log    *logrus.Entry
	sleep  func(time.Duration)
	now    func() time.Time
}

func New(market MarketData, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{market: market, log: log, sleep: time.Sleep, now: time.Now}
}

func chunkSymbols(symbols []string, size int) [][]string {
	var chunks [][]string
	for len(symbols) > size {
		chunks = append(chunks, symbols[:size])
		symbols = symbols[size:]
	}
	if len(symbols) > 0 {
		chunks = append(chunks, symbols)
	}
	return chunks
}

func (c candidate) ranked() model.RankedCandidate {
	rc := model.RankedCandidate{
		Symbol:          c.instrument.Symbol,
		LastPrice:       c.instrument.LastPrice,
		Turnover24h:     c.instrument.Turnover24h,
		PriceChangePct:  c.comparison.PriceChangePct,
		VolumeChangePct: c.comparison.VolumeChangePct,
		ValueChangePct:  c.comparison.ValueChangePct,
		SpreadPct:       c.spreadPct,
	}
	if c.fill != nil {
		rc.Fill = *c.fill
	}
	return rc
}

// Run executes the full chain for one hour boundary. Cancellation is
// cooperative: the context is checked between batches and between stages,
// and on cancellation partial results are discarded, never returned.
func (p *Pipeline) Run(ctx context.Context, boundary time.Time, params Params) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	params.normalize()

	runID := uuid.NewString()
	log := p.log.WithField("run_id", runID)

	symbols, err := p.market.Symbols(params.ExcludeSymbols)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}

	log.WithFields(logrus.Fields{
		"symbols":  len(symbols),
		"boundary": boundary,
	}).Info("Pipeline run started")

	instruments, err := p.fetchSnapshots(ctx, symbols, params)
	if err != nil {
		return nil, err
	}

	verdicts := make([]model.FilterVerdict, 0, len(instruments)*2)

	cands, compareVerdicts, err := p.compareStage(ctx, instruments, boundary, params)
	if err != nil {
		return nil, err
	}
	verdicts = append(verdicts, compareVerdicts...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands, stageVerdicts := turnoverStage(cands, params.Thresholds, p.now())
	verdicts = append(verdicts, stageVerdicts...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands, stageVerdicts = deltaStage(cands, params.Thresholds, p.now())
	verdicts = append(verdicts, stageVerdicts...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands, stageVerdicts = p.feasibilityStage(cands, params)
	verdicts = append(verdicts, stageVerdicts...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands, stageVerdicts = slippageStage(cands, params.Thresholds, p.now())
	verdicts = append(verdicts, stageVerdicts...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	survivors, stageVerdicts := p.dayCandleStage(cands, params)
	verdicts = append(verdicts, stageVerdicts...)

	log.WithFields(logrus.Fields{
		"survivors": len(survivors),
		"verdicts":  len(verdicts),
	}).Info("Pipeline run completed")

	return &Result{
		RunID:     runID,
		Boundary:  boundary,
		Survivors: survivors,
		Verdicts:  verdicts,
	}, nil
}

// fetchSnapshots pulls 24h tickers in rate-limit sized chunks with a fixed
// inter-batch sleep.
func (p *Pipeline) fetchSnapshots(ctx context.Context, symbols []string, params Params) ([]model.Instrument, error) {
	chunks := chunkSymbols(symbols, params.BatchSize)
	instruments := make([]model.Instrument, 0, len(symbols))

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := p.market.Instruments(chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch ticker batch %d: %w", i, err)
		}
		instruments = append(instruments, batch...)

		if i < len(chunks)-1 {
			p.sleep(params.BatchDelay)
		}
	}

	return instruments, nil
}

// compareStage fetches each instrument's boundary pair and applies the
// rising check. A failed candle fetch counts as CANDLE_MISSING, terminal for
// that instrument in this run.
func (p *Pipeline) compareStage(ctx context.Context, instruments []model.Instrument, boundary time.Time, params Params) ([]candidate, []model.FilterVerdict, error) {
	cands := make([]candidate, 0, len(instruments))
	verdicts := make([]model.FilterVerdict, 0, len(instruments))

	for i, inst := range instruments {
		if i%params.BatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		pair, err := p.market.BoundaryCandles(inst.Symbol, boundary)
		if err != nil {
			p.log.WithField("symbol", inst.Symbol).WithError(err).
				Warn("Failed to fetch boundary candles")
			pair = model.CandlePair{Symbol: inst.Symbol}
		}

		cmp, verdict := CompareCandles(pair, p.now())
		verdict.Metrics.LastPrice = inst.LastPrice
		verdict.Metrics.Turnover24h = inst.Turnover24h
		verdicts = append(verdicts, verdict)

		if verdict.Passed {
			cands = append(cands, candidate{instrument: inst, comparison: cmp})
		}

		p.sleep(params.FetchDelay)
	}

	return cands, verdicts, nil
}

func (p *Pipeline) feasibilityStage(cands []candidate, params Params) ([]candidate, []model.FilterVerdict) {
	survivors := make([]candidate, 0, len(cands))
	verdicts := make([]model.FilterVerdict, 0, len(cands))

	for i := range cands {
		c := cands[i]

		book, err := p.market.Orderbook(c.instrument.Symbol)
		if err != nil {
			p.log.WithField("symbol", c.instrument.Symbol).WithError(err).
				Warn("Failed to fetch orderbook")
			book = nil
		}

		verdict := feasibilityStage(&c, book, params.Thresholds, p.now())
		verdicts = append(verdicts, verdict)
		if verdict.Passed {
			survivors = append(survivors, c)
		}

		p.sleep(params.FetchDelay)
	}

	return survivors, verdicts
}

// dayCandleStage tags survivors instead of dropping them; the selector is
// responsible for honoring the tag when the screen is enabled.
func (p *Pipeline) dayCandleStage(cands []candidate, params Params) ([]model.RankedCandidate, []model.FilterVerdict) {
	survivors := make([]model.RankedCandidate, 0, len(cands))
	var verdicts []model.FilterVerdict

	for _, c := range cands {
		rc := c.ranked()

		if params.DayCandleEnabled {
			candles, err := p.market.DayCandles(c.instrument.Symbol, params.DayCandleCount)
			if err != nil {
				p.log.WithField("symbol", c.instrument.Symbol).WithError(err).
					Warn("Failed to fetch day candles")
			}

			pass, verdict := dayCandleScreen(candles, err, params.MinBullishRatio, c.baseVerdict(model.StageDayCandle, p.now()))
			rc.DayCandlePass = &pass
			verdicts = append(verdicts, verdict)

			p.sleep(params.FetchDelay)
		}

		survivors = append(survivors, rc)
	}

	return survivors, verdicts
}
