package strategy

import (
	"sma-crossover/internal/dto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYorkSession(t *testing.T) Session {
	t.Helper()
	session, err := NewSession("America/New_York", "09:30", "16:00")
	require.NoError(t, err)
	return session
}

func barAt(ts time.Time, close float64) dto.PriceBar {
	return dto.PriceBar{Timestamp: ts, Open: close, High: close, Low: close, Close: close}
}

func TestNewSession_Invalid(t *testing.T) {
	_, err := NewSession("Mars/Olympus", "09:30", "16:00")
	assert.Error(t, err)

	_, err = NewSession("America/New_York", "16:00", "09:30")
	assert.Error(t, err)

	_, err = NewSession("America/New_York", "9h", "16:00")
	assert.Error(t, err)
}

func TestSession_Contains(t *testing.T) {
	session := newYorkSession(t)
	at := func(hour, minute int) time.Time {
		return time.Date(2024, 3, 5, hour, minute, 0, 0, session.Location)
	}

	assert.False(t, session.Contains(at(9, 15)))
	assert.True(t, session.Contains(at(9, 30)))
	assert.True(t, session.Contains(at(15, 45)))
	assert.False(t, session.Contains(at(16, 0)))
	assert.True(t, session.Contains(at(14, 30).UTC()), "bars in UTC are converted first")
}

func TestBuildObservations(t *testing.T) {
	session := newYorkSession(t)
	loc := session.Location
	at := func(day, hour, minute int) time.Time {
		return time.Date(2024, 3, day, hour, minute, 0, 0, loc)
	}

	daily := []dto.PriceBar{
		barAt(time.Date(2024, 3, 4, 0, 0, 0, 0, loc), 10),
		barAt(time.Date(2024, 3, 5, 0, 0, 0, 0, loc), 20),
		barAt(time.Date(2024, 3, 6, 0, 0, 0, 0, loc), 30),
	}
	ev, err := NewSignalEvaluator(daily, 2, loc)
	require.NoError(t, err)

	signal := []dto.PriceBar{
		barAt(at(5, 8, 0), 1),
		barAt(at(5, 9, 30), 21),
		barAt(at(5, 9, 45), 22),
		barAt(at(5, 10, 0), 23),
		barAt(at(6, 9, 30), 31),
		barAt(at(6, 9, 45), 32),
	}
	trade := []dto.PriceBar{
		barAt(at(6, 9, 45), 302),
		barAt(at(5, 8, 0), 100),
		barAt(at(5, 9, 30), 201),
		barAt(at(5, 10, 0), 203),
		barAt(at(5, 10, 15), 204),
		barAt(at(6, 9, 30), 301),
		barAt(at(6, 9, 30), 999),
	}

	got := BuildObservations(ev, signal, trade, session, DateRange{})
	require.Len(t, got, 4)

	assert.Equal(t, at(5, 9, 30), got[0].Time)
	assert.Equal(t, 21.0, got[0].SignalPrice)
	assert.Equal(t, 201.0, got[0].Bar.Close)
	assert.True(t, got[0].FirstOfSession)
	assert.False(t, got[0].LastOfSession)
	assert.False(t, got[0].PriorSMAReady, "the prior day is still warming up")
	assert.True(t, got[0].DayReady)
	assert.InDelta(t, 15.0, got[0].DaySMA, 1e-9)

	assert.Equal(t, at(5, 10, 0), got[1].Time)
	assert.False(t, got[1].FirstOfSession)
	assert.True(t, got[1].LastOfSession)

	assert.Equal(t, 301.0, got[2].Bar.Close, "duplicate trade bars keep the first")
	assert.True(t, got[2].FirstOfSession)
	assert.False(t, got[2].LastOfSession)
	assert.InDelta(t, 15.0, got[2].PriorSMA, 1e-9)
	assert.True(t, got[2].DayReady)
	assert.Equal(t, 30.0, got[2].DayClose)
	assert.InDelta(t, 25.0, got[2].DaySMA, 1e-9)

	assert.True(t, got[3].LastOfSession)
	assert.Equal(t, date(2024, 3, 6), got[3].Date)
}

func TestBuildObservations_DateRange(t *testing.T) {
	session := newYorkSession(t)
	loc := session.Location
	ev, err := NewSignalEvaluator(dailyBars(date(2024, 3, 1), 1, 2, 3, 4, 5, 6), 2, loc)
	require.NoError(t, err)

	var bars []dto.PriceBar
	for day := 2; day <= 6; day++ {
		bars = append(bars, barAt(time.Date(2024, 3, day, 10, 0, 0, 0, loc), float64(day)))
	}

	got := BuildObservations(ev, bars, bars, session, DateRange{Start: date(2024, 3, 3), End: date(2024, 3, 4)})
	require.Len(t, got, 2)
	assert.Equal(t, date(2024, 3, 3), got[0].Date)
	assert.Equal(t, date(2024, 3, 4), got[1].Date)
	assert.True(t, got[0].FirstOfSession && got[0].LastOfSession)
}
