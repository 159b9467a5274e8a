package report

import (
	"encoding/csv"
	"io"
	"sma-crossover/internal/dto"
	"strconv"
	"time"
)

// csvWriter emits the row-shaped part of each result: the ledger, the ranking,
// the comparison rows and the series list.
type csvWriter struct {
	loc *time.Location
}

func (c *csvWriter) Backtest(w io.Writer, result *dto.BacktestResult) error {
	rows := [][]string{{
		"number", "symbol", "entry_time", "entry_price", "entry_reason", "shares",
		"exit_time", "exit_price", "exit_reason", "profit_loss", "profit_loss_pct", "holding_days",
	}}
	for _, t := range result.Trades {
		rows = append(rows, []string{
			strconv.Itoa(t.Number),
			t.Symbol,
			c.timestamp(t.EntryTime),
			formatFloat(t.EntryPrice),
			t.EntryReason,
			formatFloat(t.Shares),
			c.optionalTime(t.ExitTime),
			optionalFloat(t.ExitPrice),
			optionalString(t.ExitReason),
			optionalFloat(t.ProfitLoss),
			optionalFloat(t.ProfitLossPct),
			strconv.Itoa(t.HoldingPeriod),
		})
	}
	return writeAll(w, rows)
}

func (c *csvWriter) Grid(w io.Writer, result *dto.GridSearchResult) error {
	rows := [][]string{{
		"rank", "sma_window", "fixed_stop_pct", "trailing_stop_pct", "timing",
		"total_trades", "win_rate", "total_return_pct", "excess_return_pct", "max_drawdown", "profit_factor",
	}}
	for _, e := range result.Results {
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			strconv.Itoa(e.Params.SMAWindow),
			formatFloat(e.Params.FixedStopPct),
			formatFloat(e.Params.TrailingStopPct),
			e.Params.Timing,
			strconv.Itoa(e.TotalTrades),
			formatFloat(e.WinRate),
			formatFloat(e.TotalReturnPct),
			optionalFloat(e.ExcessReturnPct),
			formatFloat(e.MaxDrawdown),
			formatFloat(e.ProfitFactor),
		})
	}
	return writeAll(w, rows)
}

func (c *csvWriter) Compare(w io.Writer, result *dto.CompareResult) error {
	rows := [][]string{{"number", "entry_date", "ref_entry_date", "profit_loss", "ref_profit_loss", "match"}}
	for _, r := range result.Rows {
		rows = append(rows, []string{
			strconv.Itoa(r.Number),
			optionalDate(r.EntryDate),
			optionalDate(r.RefEntryDate),
			optionalFloat(r.ProfitLoss),
			optionalFloat(r.RefProfitLoss),
			r.Match,
		})
	}
	return writeAll(w, rows)
}

func (c *csvWriter) Pairs(w io.Writer, result *dto.PairSweepResult) error {
	rows := [][]string{{
		"rank", "signal_symbol", "trade_symbol", "observations", "total_trades", "win_rate",
		"total_return_pct", "buy_and_hold_return_pct", "excess_return_pct", "max_drawdown", "profit_factor",
	}}
	for _, p := range result.Results {
		rows = append(rows, []string{
			strconv.Itoa(p.Rank),
			p.SignalSymbol,
			p.TradeSymbol,
			strconv.Itoa(p.Observations),
			strconv.Itoa(p.TotalTrades),
			formatFloat(p.WinRate),
			formatFloat(p.TotalReturnPct),
			optionalFloat(p.BuyAndHoldReturnPct),
			optionalFloat(p.ExcessReturnPct),
			formatFloat(p.MaxDrawdown),
			formatFloat(p.ProfitFactor),
		})
	}
	return writeAll(w, rows)
}

func (c *csvWriter) Series(w io.Writer, series []dto.SeriesInfo) error {
	rows := [][]string{{"symbol", "timeframe", "bars", "first", "last"}}
	for _, s := range series {
		rows = append(rows, []string{s.Symbol, s.Timeframe, strconv.Itoa(s.Bars), c.timestamp(s.First), c.timestamp(s.Last)})
	}
	return writeAll(w, rows)
}

func (c *csvWriter) timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(c.loc).Format(time.RFC3339)
}

func (c *csvWriter) optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return c.timestamp(*t)
}

func writeAll(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	return writer.WriteAll(rows)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optionalDate(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(dto.DateLayout)
}
