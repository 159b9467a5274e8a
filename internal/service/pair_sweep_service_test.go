package service

import (
	"context"
	"errors"
	"fmt"
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/logger"
	"sma-crossover/pkg/utils"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairBacktests answers RunBacktest by trade symbol.
type pairBacktests struct {
	mu      sync.Mutex
	returns map[string]float64
	errs    map[string]error
	reqs    []dto.BacktestRequest
}

func (f *pairBacktests) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if err := f.errs[req.TradeSymbol]; err != nil {
		return nil, err
	}
	ret := f.returns[req.TradeSymbol]
	return &dto.BacktestResult{
		RunID:        "run-" + req.TradeSymbol,
		SignalSymbol: req.SignalSymbol,
		TradeSymbol:  req.TradeSymbol,
		Observations: 100,
		Summary: dto.SummaryResult{
			TotalTrades:         4,
			TotalReturnPct:      ret,
			BuyAndHoldReturnPct: utils.ToPointer(10.0),
			ExcessReturnPct:     utils.ToPointer(ret - 10),
			ProfitFactor:        1.5,
		},
	}, nil
}

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    []symbolPair
		wantErr bool
	}{
		{
			name: "normalizes and dedupes",
			raw:  []string{"qqq:tqqq", " SPY : UPRO ", "QQQ:TQQQ"},
			want: []symbolPair{{signal: "QQQ", trade: "TQQQ"}, {signal: "SPY", trade: "UPRO"}},
		},
		{name: "missing separator", raw: []string{"QQQ"}, wantErr: true},
		{name: "missing trade symbol", raw: []string{"QQQ:"}, wantErr: true},
		{name: "empty", raw: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePairs(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsBadRequest(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPairSweepService_Run(t *testing.T) {
	cfg := testConfig()
	cfg.Grid.MaxConcurrency = 2
	cfg.Grid.Pairs = []string{"QQQ:TQQQ", "SPY:UPRO", "IWM:TNA", "SOXX:SOXL"}
	backtests := &pairBacktests{
		returns: map[string]float64{"TQQQ": 40, "UPRO": 25, "TNA": -5},
		errs:    map[string]error{"SOXL": errors.New("load market data: no bars for SOXL")},
	}
	svc := NewPairSweepService(cfg, logger.NewNop(), backtests)

	out, err := svc.Run(context.Background(), dto.PairSweepRequest{Backtest: dto.BacktestRequest{Timing: "hybrid"}})
	require.NoError(t, err)
	assert.NotEmpty(t, out.RunID)

	require.Len(t, out.Results, 3)
	order := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		order = append(order, r.TradeSymbol)
	}
	assert.Equal(t, []string{"TQQQ", "UPRO", "TNA"}, order)
	assert.Equal(t, 1, out.Results[0].Rank)
	assert.Equal(t, "QQQ", out.Results[0].SignalSymbol)
	assert.Equal(t, 30.0, *out.Results[0].ExcessReturnPct)

	require.Len(t, out.Failures, 1)
	assert.Equal(t, "SOXX", out.Failures[0].SignalSymbol)
	assert.Contains(t, out.Failures[0].Error, "no bars")

	require.Len(t, backtests.reqs, 4)
	for _, req := range backtests.reqs {
		assert.Equal(t, "hybrid", req.Timing)
	}
}

func TestPairSweepService_RequestPairsOverrideConfig(t *testing.T) {
	cfg := testConfig()
	backtests := &pairBacktests{returns: map[string]float64{"UPRO": 12}}
	svc := NewPairSweepService(cfg, logger.NewNop(), backtests)

	out, err := svc.Run(context.Background(), dto.PairSweepRequest{Pairs: []string{"spy:upro"}})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "SPY", out.Results[0].SignalSymbol)
	assert.Empty(t, out.Failures)
}

func TestPairSweepService_Errors(t *testing.T) {
	tests := []struct {
		name      string
		req       dto.PairSweepRequest
		backtests *pairBacktests
	}{
		{
			name:      "invalid parameters",
			req:       dto.PairSweepRequest{Backtest: dto.BacktestRequest{SMAWindow: utils.ToPointer(0)}, Pairs: []string{"QQQ:TQQQ"}},
			backtests: &pairBacktests{},
		},
		{
			name:      "malformed pair",
			req:       dto.PairSweepRequest{Pairs: []string{"QQQ-TQQQ"}},
			backtests: &pairBacktests{},
		},
		{
			name: "bad request from a pair run",
			req:  dto.PairSweepRequest{Pairs: []string{"QQQ:TQQQ"}},
			backtests: &pairBacktests{errs: map[string]error{
				"TQQQ": fmt.Errorf("%w: start date after end date", ErrInvalidRequest),
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPairSweepService(testConfig(), logger.NewNop(), tt.backtests)
			_, err := svc.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, IsBadRequest(err))
		})
	}
}
