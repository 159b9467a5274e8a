package strategy

import (
	"errors"
	"fmt"
)

// SignalTimingPolicy selects how the above/below state of the signal instrument drives trades.
type SignalTimingPolicy string

const (
	// TimingIntraday compares every intraday signal price with the prior day's SMA and acts on that bar.
	TimingIntraday SignalTimingPolicy = "intraday"
	// TimingEndOfDay only acts on daily-close crosses, executed at the next session's first bar.
	TimingEndOfDay SignalTimingPolicy = "end_of_day"
	// TimingHybrid monitors intraday and re-checks the day's own close against the day's own SMA at the last bar.
	TimingHybrid SignalTimingPolicy = "hybrid"
)

// CooldownPolicy selects which exits block a re-entry on the same calendar date.
type CooldownPolicy string

const (
	CooldownAllExits  CooldownPolicy = "all_exits"
	CooldownStopExits CooldownPolicy = "stop_exits"
	CooldownNone      CooldownPolicy = "none"
)

var ErrInvalidParams = errors.New("invalid strategy params")

// Params is the full configuration of one simulation. Values are fractions, not percents.
type Params struct {
	Capital         float64
	SMAWindow       int
	FixedStopPct    float64
	TrailingStopPct float64
	Slippage        float64
	Commission      float64
	Timing          SignalTimingPolicy
	Cooldown        CooldownPolicy
	SignalMemory    bool
}

// Validate rejects degenerate parameter combinations before any simulation is run.
func (p Params) Validate() error {
	switch {
	case p.Capital <= 0:
		return fmt.Errorf("%w: capital must be positive, got %v", ErrInvalidParams, p.Capital)
	case p.SMAWindow < 1:
		return fmt.Errorf("%w: %w", ErrInvalidParams, ErrInvalidWindow)
	case p.FixedStopPct < 0 || p.FixedStopPct >= 1:
		return fmt.Errorf("%w: fixed stop must be in [0, 1), got %v", ErrInvalidParams, p.FixedStopPct)
	case p.TrailingStopPct < 0 || p.TrailingStopPct >= 1:
		return fmt.Errorf("%w: trailing stop must be in [0, 1), got %v", ErrInvalidParams, p.TrailingStopPct)
	case p.Slippage < 0 || p.Slippage >= 1:
		return fmt.Errorf("%w: slippage must be in [0, 1), got %v", ErrInvalidParams, p.Slippage)
	case p.Commission < 0:
		return fmt.Errorf("%w: commission must not be negative, got %v", ErrInvalidParams, p.Commission)
	}
	if _, err := ParseTimingPolicy(string(p.Timing)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if _, err := ParseCooldownPolicy(string(p.Cooldown)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

func ParseTimingPolicy(value string) (SignalTimingPolicy, error) {
	switch SignalTimingPolicy(value) {
	case TimingIntraday, TimingEndOfDay, TimingHybrid:
		return SignalTimingPolicy(value), nil
	default:
		return "", fmt.Errorf("unknown signal timing policy %q", value)
	}
}

func ParseCooldownPolicy(value string) (CooldownPolicy, error) {
	switch CooldownPolicy(value) {
	case CooldownAllExits, CooldownStopExits, CooldownNone:
		return CooldownPolicy(value), nil
	default:
		return "", fmt.Errorf("unknown cooldown policy %q", value)
	}
}

// appliesTo reports whether an exit with the given reason arms the same-day cooldown.
func (c CooldownPolicy) appliesTo(reason ExitReason) bool {
	switch c {
	case CooldownAllExits:
		return reason != ExitEndOfData
	case CooldownStopExits:
		return reason.IsStop()
	default:
		return false
	}
}
