// Flat-file exports of scan runs and realized trades. File names encode a
// timestamp so an operator can pick a run chronologically.
package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pumpscanner/src/model"
)

func VerdictFileName(at time.Time) string {
	return fmt.Sprintf("scan_%s.csv", at.Format("20060102_150405"))
}

func TradeFileName(at time.Time) string {
	return fmt.Sprintf("profit_%s.csv", at.Format("20060102"))
}

var verdictHeader = []string{
	"symbol", "stage", "passed", "fail_reasons",
	"last_price", "turnover_24h", "price_change_pct", "volume_change_pct",
	"spread_pct", "price_diff_pct",
}

// WriteVerdicts renders the audit trail, one row per instrument per stage.
func WriteVerdicts(w io.Writer, verdicts []model.FilterVerdict) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(verdictHeader); err != nil {
		return err
	}

	for _, v := range verdicts {
		reasons := make([]string, 0, len(v.FailReasons))
		for _, r := range v.FailReasons {
			reasons = append(reasons, string(r))
		}

		priceDiff := decimal.Zero
		if v.Metrics.Fill != nil {
			priceDiff = v.Metrics.Fill.PriceDiffPct
		}

		row := []string{
			v.Symbol,
			string(v.Stage),
			strconv.FormatBool(v.Passed),
			strings.Join(reasons, "|"),
			v.Metrics.LastPrice.String(),
			v.Metrics.Turnover24h.String(),
			v.Metrics.PriceChangePct.String(),
			v.Metrics.VolumeChangePct.String(),
			v.Metrics.SpreadPct.String(),
			priceDiff.String(),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadVerdicts reparses an exported audit trail. Pass/fail/reasons survive
// the round trip exactly; metrics come back as written.
func ReadVerdicts(r io.Reader) ([]model.FilterVerdict, error) {
	reader := csv.NewReader(r)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	verdicts := make([]model.FilterVerdict, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(verdictHeader) {
			return nil, fmt.Errorf("malformed verdict row, got %d columns", len(row))
		}

		passed, err := strconv.ParseBool(row[2])
		if err != nil {
			return nil, fmt.Errorf("malformed passed column %q: %w", row[2], err)
		}

		v := model.FilterVerdict{
			Symbol: row[0],
			Stage:  model.Stage(row[1]),
			Passed: passed,
		}

		if row[3] != "" {
			for _, reason := range strings.Split(row[3], "|") {
				v.FailReasons = append(v.FailReasons, model.FailReason(reason))
			}
		}

		cols := []*decimal.Decimal{
			&v.Metrics.LastPrice,
			&v.Metrics.Turnover24h,
			&v.Metrics.PriceChangePct,
			&v.Metrics.VolumeChangePct,
			&v.Metrics.SpreadPct,
		}
		for i, dst := range cols {
			val, err := decimal.NewFromString(row[4+i])
			if err != nil {
				return nil, fmt.Errorf("malformed numeric column %d: %w", 4+i, err)
			}
			*dst = val
		}

		priceDiff, err := decimal.NewFromString(row[9])
		if err != nil {
			return nil, fmt.Errorf("malformed price_diff_pct column: %w", err)
		}
		if !priceDiff.IsZero() {
			v.Metrics.Fill = &model.FillSimulation{PriceDiffPct: priceDiff}
		}

		verdicts = append(verdicts, v)
	}

	return verdicts, nil
}

var tradeHeader = []string{
	"symbol", "entry_price", "total_buy_notional", "total_sell_notional",
	"profit_amount", "profit_pct", "sub_trades", "closed_at",
}

// WriteTrades renders realized trades, one row per closed position.
func WriteTrades(w io.Writer, trades []model.RealizedTrade) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(tradeHeader); err != nil {
		return err
	}

	for _, t := range trades {
		kinds := make([]string, 0, len(t.SubTrades))
		for _, sub := range t.SubTrades {
			kinds = append(kinds, sub.Kind)
		}

		row := []string{
			t.Symbol,
			t.EntryPrice.String(),
			t.TotalBuyNotional.String(),
			t.TotalSellNotional.String(),
			t.ProfitAmount.String(),
			t.ProfitPct.String(),
			strings.Join(kinds, "|"),
			t.ClosedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveVerdicts writes the audit trail to a timestamped file under dir.
func SaveVerdicts(dir string, at time.Time, verdicts []model.FilterVerdict) (string, error) {
	path := filepath.Join(dir, VerdictFileName(at))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteVerdicts(f, verdicts); err != nil {
		return "", err
	}
	return path, nil
}

// SaveTrades writes realized trades to a dated file under dir.
func SaveTrades(dir string, at time.Time, trades []model.RealizedTrade) (string, error) {
	path := filepath.Join(dir, TradeFileName(at))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteTrades(f, trades); err != nil {
		return "", err
	}
	return path, nil
}
