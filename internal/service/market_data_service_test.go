package service

import (
	"context"
	"errors"
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/logger"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCandleRepo struct {
	mu        sync.Mutex
	bars      map[string][]dto.PriceBar
	gets      []dto.GetBarsParam
	refreshes []dto.GetBarsParam
	err       error
}

func (f *fakeCandleRepo) Get(ctx context.Context, param dto.GetBarsParam) ([]dto.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, param)
	return f.bars[param.Symbol+"/"+param.Timeframe], f.err
}

func (f *fakeCandleRepo) Refresh(ctx context.Context, param dto.GetBarsParam) ([]dto.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, param)
	return f.bars[param.Symbol+"/"+param.Timeframe], f.err
}

func seriesOf(timestamps ...time.Time) []dto.PriceBar {
	bars := make([]dto.PriceBar, 0, len(timestamps))
	for _, ts := range timestamps {
		bars = append(bars, dto.PriceBar{Timestamp: ts, Open: 1, High: 1, Low: 1, Close: 1})
	}
	return bars
}

func TestMarketDataService_Load(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 14, 30, 0, 0, time.UTC) }
	repo := &fakeCandleRepo{bars: map[string][]dto.PriceBar{
		"QQQ/1Day":   seriesOf(day(2), day(3)),
		"QQQ/15Min":  seriesOf(day(2), day(3), day(4)),
		"TQQQ/15Min": seriesOf(day(4), day(2)),
	}}
	svc := NewMarketDataService(testConfig(), logger.NewNop(), repo)

	param := dto.MarketDataParam{
		SignalSymbol:      "QQQ",
		TradeSymbol:       "TQQQ",
		IntradayTimeframe: dto.Timeframe15Min,
		Start:             day(1),
		End:               day(5),
	}

	set, err := svc.Load(context.Background(), param)
	require.NoError(t, err)
	assert.Len(t, set.SignalDaily, 2)
	assert.Len(t, set.SignalIntraday, 3)
	assert.Len(t, set.TradeIntraday, 2)
	assert.Len(t, repo.gets, 3)
	assert.Empty(t, repo.refreshes)

	param.Refresh = true
	series, err := svc.Fetch(context.Background(), param)
	require.NoError(t, err)
	assert.Len(t, repo.refreshes, 3)
	require.Len(t, series, 3)
	assert.Equal(t, dto.SeriesInfo{Symbol: "TQQQ", Timeframe: dto.Timeframe15Min, Bars: 2, First: day(2), Last: day(4)}, series[2])
	assert.Equal(t, dto.Timeframe1Day, series[0].Timeframe)
}

func TestMarketDataService_LoadErrors(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		repo  *fakeCandleRepo
		param dto.MarketDataParam
	}{
		{
			name:  "missing start",
			repo:  &fakeCandleRepo{},
			param: dto.MarketDataParam{SignalSymbol: "QQQ", TradeSymbol: "TQQQ"},
		},
		{
			name:  "provider error",
			repo:  &fakeCandleRepo{err: errors.New("boom")},
			param: dto.MarketDataParam{SignalSymbol: "QQQ", TradeSymbol: "TQQQ", IntradayTimeframe: dto.Timeframe15Min, Start: start},
		},
		{
			name:  "empty series",
			repo:  &fakeCandleRepo{bars: map[string][]dto.PriceBar{}},
			param: dto.MarketDataParam{SignalSymbol: "QQQ", TradeSymbol: "TQQQ", IntradayTimeframe: dto.Timeframe15Min, Start: start},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewMarketDataService(testConfig(), logger.NewNop(), tt.repo)
			_, err := svc.Load(context.Background(), tt.param)
			assert.Error(t, err)
		})
	}
}

func TestMarketDataService_DefaultParam(t *testing.T) {
	cfg := testConfig()
	cfg.Backtest.EndDate = "2024-06-30"
	svc := NewMarketDataService(cfg, logger.NewNop(), &fakeCandleRepo{})

	param, err := svc.DefaultParam()
	require.NoError(t, err)
	assert.Equal(t, dto.MarketDataParam{
		SignalSymbol:      "QQQ",
		TradeSymbol:       "TQQQ",
		IntradayTimeframe: dto.Timeframe15Min,
		Start:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:               time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}, param)

	cfg.Backtest.DataStartDate = "yesterday"
	_, err = svc.DefaultParam()
	assert.Error(t, err)
}
