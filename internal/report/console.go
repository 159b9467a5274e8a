package report

import (
	"fmt"
	"io"
	"sma-crossover/internal/dto"
	"sma-crossover/internal/strategy"
	"sma-crossover/pkg/utils"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primaryColor = lipgloss.Color("#0077cc")
	mutedColor   = lipgloss.Color("#999999")
	gainColor    = lipgloss.Color("#33cc33")
	lossColor    = lipgloss.Color("#cc3300")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(primaryColor).Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginTop(1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
)

type consoleWriter struct {
	loc *time.Location
}

func (c *consoleWriter) Backtest(w io.Writer, r *dto.BacktestResult) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s signal / %s trades", r.SignalSymbol, r.TradeSymbol)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("run %s  %s to %s  %d bars  SMA %d  stops %.1f%% fixed / %.1f%% trailing  %s timing  cooldown %s",
		r.RunID, r.StartDate.Format(dto.DateLayout), r.EndDate.Format(dto.DateLayout), r.Observations,
		r.Params.SMAWindow, r.Params.FixedStopPct*100, r.Params.TrailingStopPct*100, r.Params.Timing, r.Params.Cooldown)))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Trades"))
	b.WriteString("\n")
	if len(r.Trades) == 0 {
		b.WriteString(mutedStyle.Render("no trades"))
		b.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(r.Trades))
		for _, t := range r.Trades {
			rows = append(rows, []string{
				strconv.Itoa(t.Number),
				t.EntryTime.In(c.loc).Format(dto.DateTimeLayout),
				t.EntryReason,
				utils.FormatPrice(t.EntryPrice),
				c.optionalTime(t.ExitTime),
				optionalPrice(t.ExitPrice),
				optionalString(t.ExitReason),
				optionalMoney(t.ProfitLoss),
				optionalPercent(t.ProfitLossPct),
				strconv.Itoa(t.HoldingPeriod),
			})
		}
		b.WriteString(renderTable(
			[]string{"#", "Entry", "Reason", "Price", "Exit", "Price", "Reason", "P&L", "P&L %", "Days"},
			rows, 7))
		b.WriteString("\n")
	}

	s := r.Summary
	b.WriteString(sectionStyle.Render("Summary"))
	b.WriteString("\n")
	summaryRows := [][]string{
		{"Trades", fmt.Sprintf("%d (%d wins / %d losses)", s.TotalTrades, s.WinningTrades, s.LosingTrades)},
		{"Win rate", fmt.Sprintf("%.1f%%", s.WinRate)},
		{"Avg win / loss", fmt.Sprintf("%s / %s", utils.FormatPercentage(s.AvgWinPct), utils.FormatPercentage(s.AvgLossPct))},
		{"Exits", formatExitReasons(s.ExitReasons)},
		{"Start capital", utils.FormatPrice(s.StartCapital)},
		{"Final capital", utils.FormatPrice(s.FinalCapital)},
		{"Total P&L", utils.FormatMoney(s.TotalProfitLoss)},
		{"Total return", utils.FormatPercentage(s.TotalReturnPct)},
		{"Profit factor", fmt.Sprintf("%.2f", s.ProfitFactor)},
		{"Max drawdown", fmt.Sprintf("%.1f%%", s.MaxDrawdown)},
		{"Avg holding", fmt.Sprintf("%.1f days", s.AvgHoldingPeriod)},
		{"Slippage / commission", fmt.Sprintf("%s / %s", utils.FormatPrice(s.SlippageCost), utils.FormatPrice(s.CommissionCost))},
	}
	if s.BuyAndHoldReturnPct != nil && s.ExcessReturnPct != nil {
		summaryRows = append(summaryRows,
			[]string{fmt.Sprintf("Buy & hold %s", r.SignalSymbol), utils.FormatPercentage(*s.BuyAndHoldReturnPct)},
			[]string{"Excess return", utils.FormatPercentage(*s.ExcessReturnPct)},
		)
	} else {
		summaryRows = append(summaryRows, []string{fmt.Sprintf("Buy & hold %s", r.SignalSymbol), "n/a"})
	}
	b.WriteString(renderTable(nil, summaryRows, -1))
	b.WriteString("\n")

	if len(s.Years) > 0 {
		b.WriteString(sectionStyle.Render("By year"))
		b.WriteString("\n")
		rows := make([][]string, 0, len(s.Years))
		for _, y := range s.Years {
			rows = append(rows, []string{
				strconv.Itoa(y.Year),
				utils.FormatPrice(y.BeginBalance),
				utils.FormatPrice(y.EndBalance),
				utils.FormatMoney(y.ProfitLoss),
				utils.FormatPercentage(y.ReturnPct),
				strconv.Itoa(y.Trades),
				fmt.Sprintf("%.0f%%", y.WinRate),
				strconv.Itoa(y.Stops),
			})
		}
		b.WriteString(renderTable(
			[]string{"Year", "Begin", "End", "P&L", "Return", "Trades", "Win rate", "Stops"},
			rows, 3))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (c *consoleWriter) Grid(w io.Writer, r *dto.GridSearchResult) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Grid search"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("run %s  %d evaluated  %d skipped", r.RunID, r.Evaluated, r.Skipped)))
	b.WriteString("\n")

	rows := make([][]string, 0, len(r.Results))
	for _, e := range r.Results {
		excess := "n/a"
		if e.ExcessReturnPct != nil {
			excess = utils.FormatPercentage(*e.ExcessReturnPct)
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			strconv.Itoa(e.Params.SMAWindow),
			fmt.Sprintf("%.1f%%", e.Params.FixedStopPct*100),
			fmt.Sprintf("%.1f%%", e.Params.TrailingStopPct*100),
			e.Params.Timing,
			strconv.Itoa(e.TotalTrades),
			fmt.Sprintf("%.0f%%", e.WinRate),
			utils.FormatPercentage(e.TotalReturnPct),
			excess,
			fmt.Sprintf("%.1f%%", e.MaxDrawdown),
			fmt.Sprintf("%.2f", e.ProfitFactor),
		})
	}
	b.WriteString(renderTable(
		[]string{"#", "SMA", "Fixed", "Trailing", "Timing", "Trades", "Win rate", "Return", "Excess", "Max DD", "PF"},
		rows, 7))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (c *consoleWriter) Compare(w io.Writer, r *dto.CompareResult) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Reference comparison"))
	b.WriteString("\n")

	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, []string{
			strconv.Itoa(row.Number),
			optionalDate(row.EntryDate),
			optionalDate(row.RefEntryDate),
			optionalMoney(row.ProfitLoss),
			optionalMoney(row.RefProfitLoss),
			matchSymbol(row.Match),
		})
	}
	b.WriteString(renderTable([]string{"#", "Entry", "Ref entry", "P&L", "Ref P&L", "Match"}, rows, 3))
	b.WriteString("\n")

	b.WriteString(renderTable(nil, [][]string{
		{"Trades", fmt.Sprintf("%d vs %d", r.Trades, r.ReferenceTrades)},
		{"Wins", fmt.Sprintf("%d vs %d", r.Wins, r.ReferenceWins)},
		{"Total P&L", fmt.Sprintf("%s vs %s", utils.FormatMoney(r.TotalPnL), utils.FormatMoney(r.ReferencePnL))},
		{"Full matches", fmt.Sprintf("%d/%d", r.FullMatches, r.Compared)},
		{"Entry matches", fmt.Sprintf("%d/%d", r.EntryMatches, r.Compared)},
	}, -1))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (c *consoleWriter) Pairs(w io.Writer, r *dto.PairSweepResult) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ETF pair sweep"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("run %s  %d evaluated  %d failed", r.RunID, len(r.Results), len(r.Failures))))
	b.WriteString("\n")

	rows := make([][]string, 0, len(r.Results))
	for _, p := range r.Results {
		rows = append(rows, []string{
			strconv.Itoa(p.Rank),
			p.SignalSymbol + " -> " + p.TradeSymbol,
			strconv.Itoa(p.TotalTrades),
			fmt.Sprintf("%.0f%%", p.WinRate),
			utils.FormatPercentage(p.TotalReturnPct),
			optionalPercent(p.BuyAndHoldReturnPct),
			optionalPercent(p.ExcessReturnPct),
			fmt.Sprintf("%.1f%%", p.MaxDrawdown),
			fmt.Sprintf("%.2f", p.ProfitFactor),
		})
	}
	b.WriteString(renderTable(
		[]string{"#", "Pair", "Trades", "Win rate", "Return", "Buy & hold", "Excess", "Max DD", "PF"},
		rows, 4))
	b.WriteString("\n")

	for _, f := range r.Failures {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%s -> %s failed: %s", f.SignalSymbol, f.TradeSymbol, f.Error)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (c *consoleWriter) Series(w io.Writer, series []dto.SeriesInfo) error {
	rows := make([][]string, 0, len(series))
	for _, s := range series {
		rows = append(rows, []string{
			s.Symbol,
			s.Timeframe,
			strconv.Itoa(s.Bars),
			s.First.In(c.loc).Format(dto.DateTimeLayout),
			s.Last.In(c.loc).Format(dto.DateTimeLayout),
		})
	}
	_, err := io.WriteString(w, renderTable([]string{"Symbol", "Timeframe", "Bars", "First", "Last"}, rows, -1)+"\n")
	return err
}

func (c *consoleWriter) optionalTime(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.In(c.loc).Format(dto.DateTimeLayout)
}

// renderTable draws rows with a rounded border. Cells in pnlCol are coloured by sign.
func renderTable(headers []string, rows [][]string, pnlCol int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == pnlCol && row >= 0 && row < len(rows) && col < len(rows[row]) {
				switch {
				case strings.HasPrefix(rows[row][col], "+"):
					return cellStyle.Foreground(gainColor)
				case strings.HasPrefix(rows[row][col], "-"):
					return cellStyle.Foreground(lossColor)
				}
			}
			return cellStyle
		})
	if len(headers) > 0 {
		t = t.Headers(headers...)
	}
	return t.String()
}

func formatExitReasons(reasons map[string]int) string {
	parts := make([]string, 0, len(reasons))
	for _, reason := range strategy.ExitReasons() {
		parts = append(parts, fmt.Sprintf("%s %d", reason, reasons[string(reason)]))
	}
	return strings.Join(parts, ", ")
}

func matchSymbol(match string) string {
	switch match {
	case dto.MatchFull:
		return "✓"
	case dto.MatchEntry:
		return "~"
	case dto.MatchNone:
		return "✗"
	default:
		return "-"
	}
}

func optionalPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return utils.FormatPrice(*v)
}

func optionalMoney(v *float64) string {
	if v == nil {
		return "-"
	}
	return utils.FormatMoney(*v)
}

func optionalPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return utils.FormatPercentage(*v)
}
