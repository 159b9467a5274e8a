package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_OpenClose(t *testing.T) {
	l := NewLedger()

	l.Close(TradeEvent{Kind: EventExit, PnL: 5})
	assert.Empty(t, l.Trades(), "closing while flat does nothing")

	l.Open(TradeEvent{Kind: EventEntry, Date: date(2024, 1, 2), Price: 100, Shares: 10, EntryReason: EntryCross})
	l.Open(TradeEvent{Kind: EventEntry, Date: date(2024, 1, 3), Price: 200})
	require.Len(t, l.Trades(), 1, "opening while open does nothing")

	open, ok := l.OpenTrade()
	require.True(t, ok)
	assert.Equal(t, 100.0, open.EntryPrice)
	assert.Nil(t, open.ExitTime)
	assert.Nil(t, open.PnL)

	l.Close(TradeEvent{Kind: EventExit, Date: date(2024, 1, 9), Price: 110, ExitReason: ExitSignal, PnL: 100, PnLPct: 10})
	l.Close(TradeEvent{Kind: EventExit, Date: date(2024, 1, 10), Price: 1, PnL: -999})

	trades := l.Trades()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.False(t, tr.IsOpen())
	assert.Equal(t, 110.0, *tr.ExitPrice)
	assert.Equal(t, ExitSignal, *tr.ExitReason)
	assert.Equal(t, 100.0, *tr.PnL)
	assert.Equal(t, 7, tr.HoldingDays())

	_, ok = l.OpenTrade()
	assert.False(t, ok)
}

func TestLedger_Apply(t *testing.T) {
	l := NewLedger()
	l.Apply(nil)
	l.Apply(&TradeEvent{Kind: EventEntry, Price: 50})
	l.Apply(&TradeEvent{Kind: EventExit, Price: 55, ExitReason: ExitTrailingStop})
	l.Apply(&TradeEvent{Kind: EventEntry, Price: 60})

	trades := l.Trades()
	require.Len(t, trades, 2)
	assert.False(t, trades[0].IsOpen())
	assert.True(t, trades[1].IsOpen())

	trades[0].EntryPrice = -1
	assert.Equal(t, 50.0, l.Trades()[0].EntryPrice, "Trades returns a copy")
}
