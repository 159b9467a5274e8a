package strategy

// Step advances the simulation by one observation. At most one entry or exit
// fires per bar, in this order:
//
//  1. a pending end-of-day action on the session's first bar
//  2. when OPEN: hybrid stop, then a bearish signal cross
//  3. when FLAT: a bullish signal cross outside the cooldown date
//
// On the session's last bar the end-of-day check may then latch an action for
// the next session. Observations without a ready moving average leave the state untouched.
func Step(p Params, s SimulationState, o Observation) (SimulationState, *TradeEvent) {
	intraday := p.Timing != TimingEndOfDay

	above := s.Above
	if intraday {
		if !o.PriorSMAReady {
			return s, nil
		}
		above = o.IntradayAbove()
		if !s.SignalReady {
			s.SignalReady = true
			s.Above = above
			return s, nil
		}
	}

	var event *TradeEvent
	switch {
	case s.Pending != PendingNone && o.FirstOfSession:
		s, event = executePending(p, s, o, above)
	case s.Status == StatusOpen:
		s, event = checkExit(p, s, o, above)
	case intraday && !s.Above && above && !s.InCooldown(o.Date):
		s, event = enter(p, s, o, EntryCross, false)
	}

	if intraday {
		s.Above = above
		if event != nil && event.Kind == EventExit && event.Deferred {
			// the end-of-day exit leaves the signal bearish; a bullish open is a fresh cross on the next bar
			s.Above = false
		}
	}
	if o.LastOfSession {
		s = endOfDay(p, s, o)
	}
	return s, event
}

// Finish force-closes an open position at the final observation's close.
func Finish(p Params, s SimulationState, last Observation) (SimulationState, *TradeEvent) {
	s.Pending = PendingNone
	s.PendingReason = ""
	if s.Status != StatusOpen {
		return s, nil
	}
	return exit(p, s, last, ExitEndOfData, last.Bar.Close, false, 0)
}

func executePending(p Params, s SimulationState, o Observation, above bool) (SimulationState, *TradeEvent) {
	action, reason := s.Pending, s.PendingReason
	s.Pending = PendingNone
	s.PendingReason = ""

	switch action {
	case PendingExit:
		if s.Status == StatusOpen {
			return exit(p, s, o, ExitSignal, o.Bar.Close, true, 0)
		}
	case PendingEntry:
		if s.Status != StatusFlat || s.InCooldown(o.Date) {
			return s, nil
		}
		// a remembered signal must still hold at the open
		if reason == EntrySignalMemory && !above {
			return s, nil
		}
		return enter(p, s, o, reason, true)
	}
	return s, nil
}

func checkExit(p Params, s SimulationState, o Observation, above bool) (SimulationState, *TradeEvent) {
	if o.Bar.High > s.Position.HighSinceEntry {
		s.Position.HighSinceEntry = o.Bar.High
	}

	stop := NewHybridStop(s.Position.EntryPrice, s.Position.HighSinceEntry, p.FixedStopPct, p.TrailingStopPct)
	level := stop.Level()
	if o.Bar.Low <= level {
		fill := level
		if o.Bar.High < level {
			// gapped through: the stop was never traded inside this bar
			fill = o.Bar.Close
		}
		return exit(p, s, o, stop.Reason(), fill, false, level)
	}

	if p.Timing == TimingEndOfDay || !s.Above || above {
		return s, nil
	}
	if p.Timing == TimingHybrid && o.LastOfSession {
		return s, nil
	}
	return exit(p, s, o, ExitSignal, o.Bar.Close, false, 0)
}

func endOfDay(p Params, s SimulationState, o Observation) SimulationState {
	armed := s.MemoryArmed
	s.MemoryArmed = false
	if !o.DayReady {
		return s
	}
	eodAbove := o.EndOfDayAbove()

	switch p.Timing {
	case TimingHybrid:
		switch {
		case s.Status == StatusOpen && !eodAbove:
			s.Pending = PendingExit
		case s.Status == StatusFlat && eodAbove && !s.Above && !s.InCooldown(o.Date):
			s.Pending, s.PendingReason = PendingEntry, EntryEndOfDayCross
		}
		s.Above = eodAbove
	case TimingEndOfDay:
		if !s.SignalReady {
			s.SignalReady = true
			s.Above = eodAbove
			return s
		}
		switch {
		case s.Status == StatusOpen && s.Above && !eodAbove:
			s.Pending = PendingExit
		case s.Status == StatusFlat && !s.Above && eodAbove && !s.InCooldown(o.Date):
			s.Pending, s.PendingReason = PendingEntry, EntryEndOfDayCross
		}
		s.Above = eodAbove
	}

	if armed && p.SignalMemory && s.Status == StatusFlat && eodAbove && s.Pending == PendingNone {
		s.Pending, s.PendingReason = PendingEntry, EntrySignalMemory
	}
	return s
}

func enter(p Params, s SimulationState, o Observation, reason EntryReason, deferred bool) (SimulationState, *TradeEvent) {
	if s.Status == StatusOpen {
		return s, nil
	}
	raw := o.Bar.Close
	investable := s.Cash - p.Commission
	if raw <= 0 || investable <= 0 {
		return s, nil
	}

	fill := raw * (1 + p.Slippage)
	shares := investable / fill
	slippage := shares * (fill - raw)

	s.Position = Position{
		EntryTime:      o.Time,
		EntryDate:      o.Date,
		EntryPrice:     fill,
		RawEntryPrice:  raw,
		Shares:         shares,
		HighSinceEntry: o.Bar.High,
		CapitalAtEntry: s.Cash,
		Reason:         reason,
	}
	s.Status = StatusOpen
	s.Cash = 0
	s.MemoryArmed = false
	s.SlippageCost += slippage
	s.CommissionCost += p.Commission

	return s, &TradeEvent{
		Kind:         EventEntry,
		Time:         o.Time,
		Date:         o.Date,
		Price:        fill,
		RawPrice:     raw,
		Shares:       shares,
		EntryReason:  reason,
		Capital:      investable,
		SlippageCost: slippage,
		Commission:   p.Commission,
		Deferred:     deferred,
	}
}

func exit(p Params, s SimulationState, o Observation, reason ExitReason, raw float64, deferred bool, stopLevel float64) (SimulationState, *TradeEvent) {
	if s.Status != StatusOpen {
		return s, nil
	}

	pos := s.Position
	fill := raw * (1 - p.Slippage)
	slippage := pos.Shares * (raw - fill)
	proceeds := pos.Shares*fill - p.Commission
	pnl := proceeds - pos.CapitalAtEntry
	pnlPct := 0.0
	if pos.CapitalAtEntry > 0 {
		pnlPct = pnl / pos.CapitalAtEntry * 100
	}

	s.Cash = proceeds
	s.Status = StatusFlat
	s.Position = Position{}
	s.SlippageCost += slippage
	s.CommissionCost += p.Commission
	if p.Cooldown.appliesTo(reason) {
		s.CooldownDate = o.Date
	}
	if reason.IsStop() {
		s.MemoryArmed = p.SignalMemory
	}

	return s, &TradeEvent{
		Kind:         EventExit,
		Time:         o.Time,
		Date:         o.Date,
		Price:        fill,
		RawPrice:     raw,
		Shares:       pos.Shares,
		EntryReason:  pos.Reason,
		ExitReason:   reason,
		StopLevel:    stopLevel,
		PnL:          pnl,
		PnLPct:       pnlPct,
		Capital:      proceeds,
		SlippageCost: slippage,
		Commission:   p.Commission,
		Deferred:     deferred,
	}
}
