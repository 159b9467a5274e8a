package utils

import (
	"context"
	"sma-crossover/pkg/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyFormatting(t *testing.T) {
	tests := []struct {
		value     float64
		wantMoney string
		wantPrice string
	}{
		{value: 0, wantMoney: "+$0.00", wantPrice: "$0.00"},
		{value: 792.0792, wantMoney: "+$792.08", wantPrice: "$792.08"},
		{value: -1234.5, wantMoney: "-$1,234.50", wantPrice: "$-1,234.50"},
		{value: 1234567.891, wantMoney: "+$1,234,567.89", wantPrice: "$1,234,567.89"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantMoney, FormatMoney(tt.value))
		assert.Equal(t, tt.wantPrice, FormatPrice(tt.value))
	}

	assert.Equal(t, 2.35, RoundMoney(2.345))
	assert.Equal(t, -2.35, RoundMoney(-2.345))
	assert.Equal(t, "+6.9%", FormatPercentage(6.9208))
	assert.Equal(t, "-9.0%", FormatPercentage(-9))
}

func TestDates(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 01:00 UTC on Jan 3 is still Jan 2 in New York
	ts := time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), DateOf(ts, ny))
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), DateOf(ts, nil))

	d, err := ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())
	_, err = ParseDate("01/02/2024")
	assert.Error(t, err)

	clock, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+30*time.Minute, clock)
	assert.Equal(t, clock, SinceMidnight(time.Date(2024, 1, 2, 9, 30, 0, 0, ny)))

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.True(t, InDateRange(start, start, end))
	assert.True(t, InDateRange(end, start, end))
	assert.False(t, InDateRange(end.AddDate(0, 0, 1), start, end))
	assert.True(t, InDateRange(end.AddDate(1, 0, 0), start, time.Time{}))
}

func TestShouldContinue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.True(t, ShouldContinue(ctx, logger.NewNop()))
	cancel()
	assert.False(t, ShouldContinue(ctx, logger.NewNop()))
}
