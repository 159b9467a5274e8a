package strategy

import (
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/utils"
	"sort"
	"time"
)

// DailySignal is the signal instrument's close and moving average for one trading date.
type DailySignal struct {
	Date  time.Time
	Close float64
	SMA   SMAValue
}

// Above is the end-of-day signal state. Only meaningful when SMA.Ready.
func (d DailySignal) Above() bool {
	return d.Close > d.SMA.Value
}

// SignalEvaluator answers moving-average questions about the signal instrument's daily history.
// It is immutable after construction and safe to share between simulations.
type SignalEvaluator struct {
	days  []DailySignal
	index map[time.Time]int
}

// NewSignalEvaluator sorts the daily bars, keeps the first bar of each calendar date in loc, and
// computes the moving average over the whole history.
func NewSignalEvaluator(daily []dto.PriceBar, window int, loc *time.Location) (*SignalEvaluator, error) {
	if window < 1 {
		return nil, ErrInvalidWindow
	}
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]dto.PriceBar, len(daily))
	copy(sorted, daily)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	days := make([]DailySignal, 0, len(sorted))
	seen := make(map[time.Time]struct{}, len(sorted))
	for _, bar := range sorted {
		date := utils.DateOf(bar.Timestamp, loc)
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		days = append(days, DailySignal{Date: date, Close: bar.Close})
	}

	closes := make([]float64, len(days))
	for i, d := range days {
		closes[i] = d.Close
	}
	sma, err := SimpleMovingAverage(closes, window)
	if err != nil {
		return nil, err
	}

	index := make(map[time.Time]int, len(days))
	for i := range days {
		days[i].SMA = sma[i]
		index[days[i].Date] = i
	}

	return &SignalEvaluator{days: days, index: index}, nil
}

// EndOfDay returns the day's own close and SMA. ok is false when the date is
// unknown or the average is not ready yet.
func (e *SignalEvaluator) EndOfDay(date time.Time) (DailySignal, bool) {
	i, found := e.index[date]
	if !found || !e.days[i].SMA.Ready {
		return DailySignal{}, false
	}
	return e.days[i], true
}

// PriorSMA returns the moving average of the last trading date strictly before date.
func (e *SignalEvaluator) PriorSMA(date time.Time) (float64, bool) {
	i := sort.Search(len(e.days), func(i int) bool {
		return !e.days[i].Date.Before(date)
	})
	if i == 0 {
		return 0, false
	}
	prev := e.days[i-1]
	if !prev.SMA.Ready {
		return 0, false
	}
	return prev.SMA.Value, true
}

// BuyAndHold returns the percent change of the signal instrument's close between
// the first and last trading dates inside [from, to]. ok is false with fewer than two dates.
func (e *SignalEvaluator) BuyAndHold(from, to time.Time) (float64, bool) {
	var first, last *DailySignal
	for i := range e.days {
		d := &e.days[i]
		if !utils.InDateRange(d.Date, from, to) {
			continue
		}
		if first == nil {
			first = d
		}
		last = d
	}
	if first == nil || last == nil || first == last || first.Close <= 0 {
		return 0, false
	}
	return (last.Close/first.Close - 1) * 100, true
}
