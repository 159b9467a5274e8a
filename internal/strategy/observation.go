package strategy

import (
	"fmt"
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/utils"
	"sort"
	"time"
)

// Observation is one aligned decision point: a trade-instrument bar, the signal
// instrument's price at the same timestamp, and the daily moving-average context.
type Observation struct {
	Time           time.Time
	Date           time.Time
	SignalPrice    float64
	Bar            dto.PriceBar
	FirstOfSession bool
	LastOfSession  bool

	// previous trading day's SMA, used for intraday comparisons
	PriorSMA      float64
	PriorSMAReady bool

	// the day's own daily close and SMA, used by the end-of-day check
	DayClose float64
	DaySMA   float64
	DayReady bool
}

// IntradayAbove compares the intraday signal price with the prior day's SMA.
func (o Observation) IntradayAbove() bool {
	return o.SignalPrice > o.PriorSMA
}

// EndOfDayAbove compares the day's own close with the day's own SMA.
func (o Observation) EndOfDayAbove() bool {
	return o.DayClose > o.DaySMA
}

// Session is the regular trading window, in exchange local time.
type Session struct {
	Location *time.Location
	Open     time.Duration
	Close    time.Duration
}

// NewSession builds a session from a tz name and HH:MM bounds; close is exclusive.
func NewSession(timezone, open, close string) (Session, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Session{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	openAt, err := utils.ParseClock(open)
	if err != nil {
		return Session{}, err
	}
	closeAt, err := utils.ParseClock(close)
	if err != nil {
		return Session{}, err
	}
	if closeAt <= openAt {
		return Session{}, fmt.Errorf("session close %s must be after open %s", close, open)
	}
	return Session{Location: loc, Open: openAt, Close: closeAt}, nil
}

// Contains reports whether the bar starting at t falls inside the regular session.
func (s Session) Contains(t time.Time) bool {
	offset := utils.SinceMidnight(t.In(s.Location))
	return offset >= s.Open && offset < s.Close
}

// DateRange restricts observations to calendar dates [Start, End]. Zero bounds are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// BuildObservations aligns signal and trade intraday bars by exact timestamp,
// drops bars outside the session or date range, and attaches the daily context.
// Timestamps present in only one series are skipped.
func BuildObservations(ev *SignalEvaluator, signalBars, tradeBars []dto.PriceBar, session Session, dates DateRange) []Observation {
	signalByTime := make(map[int64]dto.PriceBar, len(signalBars))
	for _, bar := range signalBars {
		key := bar.Timestamp.UnixNano()
		if _, dup := signalByTime[key]; dup {
			continue
		}
		signalByTime[key] = bar
	}

	trades := make([]dto.PriceBar, len(tradeBars))
	copy(trades, tradeBars)
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})

	observations := make([]Observation, 0, len(trades))
	var lastKey int64
	for i, bar := range trades {
		key := bar.Timestamp.UnixNano()
		if i > 0 && key == lastKey {
			continue
		}
		lastKey = key

		if !session.Contains(bar.Timestamp) {
			continue
		}
		signal, ok := signalByTime[key]
		if !ok {
			continue
		}
		date := utils.DateOf(bar.Timestamp, session.Location)
		if !utils.InDateRange(date, dates.Start, dates.End) {
			continue
		}

		obs := Observation{
			Time:        bar.Timestamp,
			Date:        date,
			SignalPrice: signal.Close,
			Bar:         bar,
		}
		obs.PriorSMA, obs.PriorSMAReady = ev.PriorSMA(date)
		if day, ready := ev.EndOfDay(date); ready {
			obs.DayClose = day.Close
			obs.DaySMA = day.SMA.Value
			obs.DayReady = true
		}
		observations = append(observations, obs)
	}

	for i := range observations {
		if i == 0 || !observations[i-1].Date.Equal(observations[i].Date) {
			observations[i].FirstOfSession = true
		}
		if i == len(observations)-1 || !observations[i+1].Date.Equal(observations[i].Date) {
			observations[i].LastOfSession = true
		}
	}

	return observations
}
