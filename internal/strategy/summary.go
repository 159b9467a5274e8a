package strategy

import "sort"

// Benchmark is the buy-and-hold return of the signal instrument over the same window.
type Benchmark struct {
	ReturnPct float64
	Available bool
}

// Summary aggregates the closed trades of one simulation. Percent fields are
// already multiplied by 100.
type Summary struct {
	TradeCount  int
	Wins        int
	Losses      int
	WinRate     float64
	AvgWinPct   float64
	AvgLossPct  float64
	ExitReasons map[ExitReason]int

	StartCapital        float64
	FinalCapital        float64
	TotalPnL            float64
	TotalReturnPct      float64
	BuyAndHoldReturnPct float64
	BuyAndHoldAvailable bool
	ExcessReturnPct     float64

	GrossProfit    float64
	GrossLoss      float64
	ProfitFactor   float64
	MaxDrawdownPct float64
	AvgHoldingDays float64
	SlippageCost   float64
	CommissionCost float64

	Years []YearSummary
}

// YearSummary groups closed trades by the calendar year of their exit.
type YearSummary struct {
	Year         int
	BeginBalance float64
	EndBalance   float64
	PnL          float64
	PnLPct       float64
	Trades       int
	Wins         int
	WinRate      float64
	Stops        int
}

// Summarize computes trade statistics for res against the given benchmark.
func Summarize(res *Result, benchmark Benchmark) Summary {
	s := Summary{
		ExitReasons:         make(map[ExitReason]int, len(ExitReasons())),
		StartCapital:        res.Params.Capital,
		FinalCapital:        res.FinalCapital,
		BuyAndHoldReturnPct: benchmark.ReturnPct,
		BuyAndHoldAvailable: benchmark.Available,
		SlippageCost:        res.FinalState.SlippageCost,
		CommissionCost:      res.FinalState.CommissionCost,
	}
	for _, reason := range ExitReasons() {
		s.ExitReasons[reason] = 0
	}

	s.TotalPnL = s.FinalCapital - s.StartCapital
	if s.StartCapital > 0 {
		s.TotalReturnPct = s.TotalPnL / s.StartCapital * 100
	}
	if benchmark.Available {
		s.ExcessReturnPct = s.TotalReturnPct - benchmark.ReturnPct
	}

	var sumWinPct, sumLossPct float64
	var holdingDays int
	equity, peak := s.StartCapital, s.StartCapital
	years := make(map[int]*YearSummary)

	for _, t := range res.Trades {
		if t.IsOpen() {
			continue
		}
		pnl, pnlPct, reason := *t.PnL, *t.PnLPct, *t.ExitReason

		s.TradeCount++
		s.ExitReasons[reason]++
		holdingDays += t.HoldingDays()
		if pnl > 0 {
			s.Wins++
			s.GrossProfit += pnl
			sumWinPct += pnlPct
		} else {
			s.Losses++
			s.GrossLoss += pnl
			sumLossPct += pnlPct
		}

		year := t.ExitDate.Year()
		y, ok := years[year]
		if !ok {
			y = &YearSummary{Year: year, BeginBalance: equity}
			years[year] = y
		}

		equity += pnl
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak * 100; dd > s.MaxDrawdownPct {
				s.MaxDrawdownPct = dd
			}
		}

		y.Trades++
		y.PnL += pnl
		y.EndBalance = equity
		if pnl > 0 {
			y.Wins++
		}
		if reason.IsStop() {
			y.Stops++
		}
	}

	if s.TradeCount > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TradeCount) * 100
		s.AvgHoldingDays = float64(holdingDays) / float64(s.TradeCount)
	}
	if s.Wins > 0 {
		s.AvgWinPct = sumWinPct / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossPct = sumLossPct / float64(s.Losses)
	}
	if s.GrossLoss != 0 {
		s.ProfitFactor = s.GrossProfit / -s.GrossLoss
	}

	s.Years = make([]YearSummary, 0, len(years))
	for _, y := range years {
		if y.BeginBalance != 0 {
			y.PnLPct = y.PnL / y.BeginBalance * 100
		}
		if y.Trades > 0 {
			y.WinRate = float64(y.Wins) / float64(y.Trades) * 100
		}
		s.Years = append(s.Years, *y)
	}
	sort.Slice(s.Years, func(i, j int) bool {
		return s.Years[i].Year < s.Years[j].Year
	})

	return s
}
