package strategy

import (
	"math"
	"time"
)

type PositionStatus int

const (
	StatusFlat PositionStatus = iota
	StatusOpen
)

func (s PositionStatus) String() string {
	if s == StatusOpen {
		return "OPEN"
	}
	return "FLAT"
}

// PendingAction is the end-of-day latch executed at the next session's first bar.
type PendingAction int

const (
	PendingNone PendingAction = iota
	PendingExit
	PendingEntry
)

func (p PendingAction) String() string {
	switch p {
	case PendingExit:
		return "exit"
	case PendingEntry:
		return "entry"
	default:
		return "none"
	}
}

type EntryReason string

const (
	EntryCross         EntryReason = "CROSS"
	EntryEndOfDayCross EntryReason = "EOD_CROSS"
	EntrySignalMemory  EntryReason = "SIGNAL_MEMORY"
)

type ExitReason string

const (
	ExitFixedStop    ExitReason = "FIXED_STOP"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitSignal       ExitReason = "SIGNAL_EXIT"
	ExitEndOfData    ExitReason = "END_OF_DATA"
)

// ExitReasons lists every exit reason in report order.
func ExitReasons() []ExitReason {
	return []ExitReason{ExitFixedStop, ExitTrailingStop, ExitSignal, ExitEndOfData}
}

func (r ExitReason) IsStop() bool {
	return r == ExitFixedStop || r == ExitTrailingStop
}

// HybridStop holds both stop references of an open position.
type HybridStop struct {
	Fixed    float64
	Trailing float64
}

func NewHybridStop(entryPrice, highSinceEntry, fixedPct, trailingPct float64) HybridStop {
	return HybridStop{
		Fixed:    entryPrice * (1 - fixedPct),
		Trailing: highSinceEntry * (1 - trailingPct),
	}
}

// Level is the active stop: whichever reference loses less.
func (h HybridStop) Level() float64 {
	return math.Max(h.Fixed, h.Trailing)
}

// Reason labels the active stop. Ties go to the trailing stop.
func (h HybridStop) Reason() ExitReason {
	if h.Trailing >= h.Fixed {
		return ExitTrailingStop
	}
	return ExitFixedStop
}

type Position struct {
	EntryTime      time.Time
	EntryDate      time.Time
	EntryPrice     float64
	RawEntryPrice  float64
	Shares         float64
	HighSinceEntry float64
	CapitalAtEntry float64
	Reason         EntryReason
}

// SimulationState is everything a backtest carries from one bar to the next.
// It is a plain value: Step never mutates its input.
type SimulationState struct {
	Cash     float64
	Status   PositionStatus
	Position Position

	// running above/below state; SignalReady is false until the first valid observation
	SignalReady bool
	Above       bool

	Pending       PendingAction
	PendingReason EntryReason

	CooldownDate time.Time
	MemoryArmed  bool

	SlippageCost   float64
	CommissionCost float64
}

func NewSimulationState(capital float64) SimulationState {
	return SimulationState{Cash: capital}
}

// InCooldown reports whether entries are blocked on date.
func (s SimulationState) InCooldown(date time.Time) bool {
	return !s.CooldownDate.IsZero() && s.CooldownDate.Equal(date)
}

type EventKind int

const (
	EventEntry EventKind = iota
	EventExit
)

func (k EventKind) String() string {
	if k == EventExit {
		return "exit"
	}
	return "entry"
}

// TradeEvent is the outcome of a single step that opened or closed the position.
type TradeEvent struct {
	Kind         EventKind
	Time         time.Time
	Date         time.Time
	Price        float64
	RawPrice     float64
	Shares       float64
	EntryReason  EntryReason
	ExitReason   ExitReason
	StopLevel    float64
	PnL          float64
	PnLPct       float64
	Capital      float64
	SlippageCost float64
	Commission   float64

	// Deferred is set when the action was latched at the previous session's close.
	Deferred bool
}
