package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/utils"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *dto.BacktestResult {
	entry := time.Date(2024, 1, 12, 14, 30, 0, 0, time.UTC)
	exit := time.Date(2024, 1, 22, 14, 30, 0, 0, time.UTC)
	return &dto.BacktestResult{
		RunID:        "run-1",
		SignalSymbol: "QQQ",
		TradeSymbol:  "TQQQ",
		StartDate:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Observations: 60,
		Params:       dto.StrategyParams{Capital: 10000, SMAWindow: 50, FixedStopPct: 0.075, TrailingStopPct: 0.15, Timing: "hybrid", Cooldown: "all_exits"},
		Summary: dto.SummaryResult{
			TotalTrades:         2,
			WinningTrades:       1,
			LosingTrades:        1,
			WinRate:             50,
			ExitReasons:         map[string]int{"SIGNAL_EXIT": 1, "END_OF_DATA": 1},
			StartCapital:        10000,
			FinalCapital:        10692.08,
			TotalProfitLoss:     692.08,
			TotalReturnPct:      6.9208,
			BuyAndHoldReturnPct: utils.ToPointer(-9.0),
			ExcessReturnPct:     utils.ToPointer(15.9208),
			Years:               []dto.YearResult{{Year: 2024, BeginBalance: 10000, EndBalance: 10692.08, ProfitLoss: 692.08, ReturnPct: 6.92, Trades: 2, WinRate: 50}},
		},
		Trades: []dto.TradeLog{
			{
				Number:        1,
				Symbol:        "TQQQ",
				EntryTime:     entry,
				EntryPrice:    101,
				EntryReason:   "CROSS",
				Shares:        99.0099,
				ExitTime:      &exit,
				ExitPrice:     utils.ToPointer(109.0),
				ExitReason:    utils.ToPointer("SIGNAL_EXIT"),
				ProfitLoss:    utils.ToPointer(792.08),
				ProfitLossPct: utils.ToPointer(7.9208),
				HoldingPeriod: 10,
			},
			{
				Number:      2,
				Symbol:      "TQQQ",
				EntryTime:   exit.AddDate(0, 0, 2),
				EntryPrice:  100,
				EntryReason: "EOD_CROSS",
				Shares:      107.92,
			},
		},
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", dto.FormatConsole, dto.FormatJSON, dto.FormatCSV} {
		w, err := New(format, nil)
		require.NoError(t, err, format)
		assert.NotNil(t, w)
	}
	_, err := New("xml", nil)
	assert.Error(t, err)
}

func TestJSONWriter_Backtest(t *testing.T) {
	w, err := New(dto.FormatJSON, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Backtest(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	trades := decoded["trades"].([]any)
	require.Len(t, trades, 2)
	assert.Nil(t, trades[1].(map[string]any)["exit_time"])
}

func TestCSVWriter_Backtest(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	w, err := New(dto.FormatCSV, loc)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Backtest(&buf, sampleResult()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "number", records[0][0])
	assert.Equal(t, []string{
		"1", "TQQQ", "2024-01-12T09:30:00-05:00", "101", "CROSS", "99.0099",
		"2024-01-22T09:30:00-05:00", "109", "SIGNAL_EXIT", "792.08", "7.9208", "10",
	}, records[1])
	// open trade leaves exit columns empty
	assert.Equal(t, "", records[2][6])
	assert.Equal(t, "", records[2][9])
}

func TestCSVWriter_GridAndCompare(t *testing.T) {
	w, err := New(dto.FormatCSV, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Grid(&buf, &dto.GridSearchResult{Results: []dto.GridEntry{
		{Rank: 1, Params: dto.StrategyParams{SMAWindow: 50, FixedStopPct: 0.075, TrailingStopPct: 0.15, Timing: "hybrid"}, TotalTrades: 12, TotalReturnPct: 40.5},
	}}))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"1", "50", "0.075", "0.15", "hybrid", "12", "0", "40.5", "", "0", "0"}, records[1])

	buf.Reset()
	day := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, w.Compare(&buf, &dto.CompareResult{Rows: []dto.CompareRow{
		{Number: 1, EntryDate: &day, ProfitLoss: utils.ToPointer(5.5), Match: dto.MatchMissing},
	}}))
	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2024-01-12", "", "5.5", "", "missing"}, records[1])
}

func TestConsoleWriter_Backtest(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	w, err := New(dto.FormatConsole, loc)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Backtest(&buf, sampleResult()))
	out := buf.String()

	for _, want := range []string{
		"QQQ signal / TQQQ trades",
		"2024-01-12 09:30",
		"SIGNAL_EXIT",
		"+$792.08",
		"open",
		"FIXED_STOP 0, TRAILING_STOP 0, SIGNAL_EXIT 1, END_OF_DATA 1",
		"$10,692.08",
		"Buy & hold QQQ",
		"-9.0%",
		"By year",
	} {
		assert.Contains(t, out, want)
	}
}

func TestConsoleWriter_GridCompareSeries(t *testing.T) {
	w, err := New(dto.FormatConsole, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Grid(&buf, &dto.GridSearchResult{RunID: "grid-1", Evaluated: 3, Skipped: 1, Results: []dto.GridEntry{
		{Rank: 1, Params: dto.StrategyParams{SMAWindow: 20, FixedStopPct: 0.05, TrailingStopPct: 0.1, Timing: "intraday"}, TotalReturnPct: 12.34, ExcessReturnPct: utils.ToPointer(2.0)},
	}}))
	assert.Contains(t, buf.String(), "3 evaluated  1 skipped")
	assert.Contains(t, buf.String(), "+12.3%")

	buf.Reset()
	require.NoError(t, w.Compare(&buf, &dto.CompareResult{Compared: 2, FullMatches: 1, EntryMatches: 1, Rows: []dto.CompareRow{
		{Number: 1, Match: dto.MatchFull},
		{Number: 2, Match: dto.MatchEntry},
	}}))
	assert.Contains(t, buf.String(), "✓")
	assert.Contains(t, buf.String(), "1/2")

	buf.Reset()
	require.NoError(t, w.Series(&buf, []dto.SeriesInfo{{Symbol: "QQQ", Timeframe: dto.Timeframe1Day, Bars: 250}}))
	assert.Contains(t, buf.String(), "250")
}

func samplePairs() *dto.PairSweepResult {
	return &dto.PairSweepResult{
		RunID: "pairs-1",
		Results: []dto.PairResult{
			{Rank: 1, SignalSymbol: "QQQ", TradeSymbol: "TQQQ", Observations: 500, TotalTrades: 9, WinRate: 44.4, TotalReturnPct: 61.2, BuyAndHoldReturnPct: utils.ToPointer(20.0), ExcessReturnPct: utils.ToPointer(41.2), MaxDrawdown: 18.5, ProfitFactor: 2.1},
			{Rank: 2, SignalSymbol: "IWM", TradeSymbol: "TNA", Observations: 500, TotalTrades: 14, TotalReturnPct: -7.5},
		},
		Failures: []dto.PairFailure{{SignalSymbol: "SOXX", TradeSymbol: "SOXL", Error: "no bars"}},
	}
}

func TestWriters_Pairs(t *testing.T) {
	w, err := New(dto.FormatCSV, nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, w.Pairs(&buf, samplePairs()))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "QQQ", "TQQQ", "500", "9", "44.4", "61.2", "20", "41.2", "18.5", "2.1"}, records[1])
	assert.Equal(t, "", records[2][7])

	w, err = New(dto.FormatJSON, nil)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, w.Pairs(&buf, samplePairs()))
	var decoded dto.PairSweepResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, samplePairs(), &decoded)

	w, err = New(dto.FormatConsole, nil)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, w.Pairs(&buf, samplePairs()))
	out := buf.String()
	for _, want := range []string{"2 evaluated  1 failed", "QQQ -> TQQQ", "+61.2%", "-7.5%", "SOXX -> SOXL failed: no bars"} {
		assert.Contains(t, out, want)
	}
}
