package strategy

import "time"

// Trade is one round trip. Exit fields stay nil while the trade is open.
type Trade struct {
	EntryTime   time.Time
	EntryDate   time.Time
	EntryPrice  float64
	Shares      float64
	Capital     float64
	EntryReason EntryReason

	ExitTime   *time.Time
	ExitDate   *time.Time
	ExitPrice  *float64
	ExitReason *ExitReason
	PnL        *float64
	PnLPct     *float64
}

func (t Trade) IsOpen() bool {
	return t.ExitTime == nil
}

// HoldingDays counts calendar days between entry and exit dates. Open trades report 0.
func (t Trade) HoldingDays() int {
	if t.ExitDate == nil {
		return 0
	}
	return int(t.ExitDate.Sub(t.EntryDate).Hours() / 24)
}

// Ledger is the append-only trade log of one simulation.
type Ledger struct {
	trades []Trade
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Open records a new trade. It does nothing while another trade is still open.
func (l *Ledger) Open(ev TradeEvent) {
	if _, open := l.OpenTrade(); open {
		return
	}
	l.trades = append(l.trades, Trade{
		EntryTime:   ev.Time,
		EntryDate:   ev.Date,
		EntryPrice:  ev.Price,
		Shares:      ev.Shares,
		Capital:     ev.Capital,
		EntryReason: ev.EntryReason,
	})
}

// Close completes the most recent open trade. It does nothing when flat.
func (l *Ledger) Close(ev TradeEvent) {
	if len(l.trades) == 0 || !l.trades[len(l.trades)-1].IsOpen() {
		return
	}
	t := &l.trades[len(l.trades)-1]
	exitTime, exitDate := ev.Time, ev.Date
	price, reason, pnl, pnlPct := ev.Price, ev.ExitReason, ev.PnL, ev.PnLPct
	t.ExitTime = &exitTime
	t.ExitDate = &exitDate
	t.ExitPrice = &price
	t.ExitReason = &reason
	t.PnL = &pnl
	t.PnLPct = &pnlPct
}

// Apply routes a step event to Open or Close. A nil event is ignored.
func (l *Ledger) Apply(ev *TradeEvent) {
	if ev == nil {
		return
	}
	switch ev.Kind {
	case EventEntry:
		l.Open(*ev)
	case EventExit:
		l.Close(*ev)
	}
}

// OpenTrade returns the trade currently open, if any.
func (l *Ledger) OpenTrade() (Trade, bool) {
	if len(l.trades) == 0 || !l.trades[len(l.trades)-1].IsOpen() {
		return Trade{}, false
	}
	return l.trades[len(l.trades)-1], true
}

// Trades returns a copy of every recorded trade in entry order.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}
