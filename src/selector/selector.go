package selector

import (
	"sort"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"pumpscanner/src/model"
)

// SelectionConfig drives ranking, truncation and equal-weight sizing.
// ExcludeDayCandleFails follows the day-candle screen: when the screen runs,
// its fail tag keeps an instrument out of sizing and order placement even
// though the tag alone never removed it from the scan output.
type SelectionConfig struct {
	MaxCoins              int
	InvestmentRatioPct    decimal.Decimal
	MinOrderNotional      decimal.Decimal
	ExcludeDayCandleFails bool
}

// DefaultSelectionConfig matches the exchange's 5,000 KRW minimum order.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		InvestmentRatioPct: decimal.NewFromInt(100),
		MinOrderNotional:   decimal.NewFromInt(5000),
	}
}

// Rank sorts a copy of the candidates by the selection key: price_diff_pct
// ascending, then spread_pct ascending, then volume_change_pct descending,
// then price_change_pct descending.
func Rank(cands []model.RankedCandidate) []model.RankedCandidate {
	ranked := make([]model.RankedCandidate, len(cands))
	copy(ranked, cands)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]

		if !a.Fill.PriceDiffPct.Equal(b.Fill.PriceDiffPct) {
			return a.Fill.PriceDiffPct.LessThan(b.Fill.PriceDiffPct)
		}
		if !a.SpreadPct.Equal(b.SpreadPct) {
			return a.SpreadPct.LessThan(b.SpreadPct)
		}
		if !a.VolumeChangePct.Equal(b.VolumeChangePct) {
			return a.VolumeChangePct.GreaterThan(b.VolumeChangePct)
		}
		return a.PriceChangePct.GreaterThan(b.PriceChangePct)
	})

	return ranked
}

// Select ranks, truncates and sizes the survivors. Truncation to MaxCoins
// happens after the sort so a cap always keeps the best-ranked candidates.
// The equal-weight split divides by the post-truncation count; instruments
// whose slice falls under the minimum notional are skipped individually,
// never redistributed.
func Select(cands []model.RankedCandidate, balance decimal.Decimal, cfg SelectionConfig) ([]model.RankedCandidate, []model.Allocation) {
	eligible := cands
	if cfg.ExcludeDayCandleFails {
		eligible = make([]model.RankedCandidate, 0, len(cands))
		for _, c := range cands {
			if c.DayCandlePass != nil && !*c.DayCandlePass {
				logger.WithField("symbol", c.Symbol).
					Info("Excluding day-candle tagged candidate from sizing")
				continue
			}
			eligible = append(eligible, c)
		}
	}

	picked := Rank(eligible)
	if cfg.MaxCoins > 0 && len(picked) > cfg.MaxCoins {
		picked = picked[:cfg.MaxCoins]
	}

	if len(picked) == 0 {
		return picked, nil
	}

	available := balance.Mul(cfg.InvestmentRatioPct).Div(decimal.NewFromInt(100))
	perInstrument := available.Div(decimal.NewFromInt(int64(len(picked))))

	allocations := make([]model.Allocation, 0, len(picked))
	for _, c := range picked {
		alloc := model.Allocation{Symbol: c.Symbol, Notional: perInstrument}

		if perInstrument.LessThan(cfg.MinOrderNotional) {
			alloc.Skipped = true
			alloc.SkipReason = model.ErrCodeOrderMinNotional
			logger.WithFields(logger.Fields{
				"symbol":   c.Symbol,
				"notional": perInstrument,
				"minimum":  cfg.MinOrderNotional,
			}).Warn("Allocation below exchange minimum, skipping instrument")
		}

		allocations = append(allocations, alloc)
	}

	return picked, allocations
}
