package service

import (
	"context"
	"fmt"
	"sma-crossover/config"
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/logger"
	"sma-crossover/pkg/utils"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PairSweepService runs one parameter set over several signal/trade ETF pairs.
type PairSweepService interface {
	Run(ctx context.Context, req dto.PairSweepRequest) (*dto.PairSweepResult, error)
}

type pairSweepService struct {
	cfg             *config.Config
	log             *logger.Logger
	backtestService BacktestService
}

func NewPairSweepService(cfg *config.Config, log *logger.Logger, backtestService BacktestService) PairSweepService {
	return &pairSweepService{
		cfg:             cfg,
		log:             log,
		backtestService: backtestService,
	}
}

type symbolPair struct {
	signal string
	trade  string
}

// Run backtests every pair with the same request. A pair whose data fails to load
// is reported as a failure; invalid parameters abort the whole sweep.
func (s *pairSweepService) Run(ctx context.Context, req dto.PairSweepRequest) (*dto.PairSweepResult, error) {
	started := time.Now()
	if _, err := resolvePlan(s.cfg, req.Backtest); err != nil {
		return nil, err
	}
	raw := req.Pairs
	if len(raw) == 0 {
		raw = s.cfg.Grid.Pairs
	}
	pairs, err := parsePairs(raw)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := s.log.With(logger.StringField("run_id", runID))
	log.InfoContext(ctx, "Pair sweep started", logger.IntField("pairs", len(pairs)))

	results := make([]*dto.PairResult, len(pairs))
	failures := make([]*dto.PairFailure, len(pairs))
	var mu sync.Mutex
	var aborted error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Grid.MaxConcurrency, 1))
	for i, pair := range pairs {
		g.Go(func() error {
			if !utils.ShouldContinue(gctx, log) {
				return gctx.Err()
			}
			pairReq := req.Backtest
			pairReq.SignalSymbol = pair.signal
			pairReq.TradeSymbol = pair.trade
			res, err := s.backtestService.RunBacktest(gctx, pairReq)
			if err != nil {
				if IsBadRequest(err) {
					mu.Lock()
					aborted = err
					mu.Unlock()
					return err
				}
				log.WarnContext(gctx, "Pair skipped",
					logger.StringField("signal_symbol", pair.signal),
					logger.StringField("trade_symbol", pair.trade),
					logger.ErrorField(err))
				failures[i] = &dto.PairFailure{SignalSymbol: pair.signal, TradeSymbol: pair.trade, Error: err.Error()}
				return nil
			}
			results[i] = toPairResult(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if aborted != nil {
			err = aborted
		}
		log.ErrorContext(ctx, "Pair sweep failed", logger.ErrorField(err))
		return nil, err
	}

	out := &dto.PairSweepResult{
		RunID:    runID,
		Results:  rankPairs(results),
		Failures: []dto.PairFailure{},
	}
	for _, f := range failures {
		if f != nil {
			out.Failures = append(out.Failures, *f)
		}
	}

	log.InfoContext(ctx, "Pair sweep completed",
		logger.IntField("evaluated", len(out.Results)),
		logger.IntField("failed", len(out.Failures)),
		logger.StringField("elapsed", time.Since(started).String()))
	return out, nil
}

// parsePairs reads SIGNAL:TRADE entries, upper-casing symbols and dropping repeats.
func parsePairs(raw []string) ([]symbolPair, error) {
	var pairs []symbolPair
	seen := make(map[symbolPair]struct{})
	for _, entry := range raw {
		signal, trade, ok := strings.Cut(strings.TrimSpace(entry), ":")
		signal = strings.ToUpper(strings.TrimSpace(signal))
		trade = strings.ToUpper(strings.TrimSpace(trade))
		if !ok || signal == "" || trade == "" {
			return nil, fmt.Errorf("%w: pair %q must look like SIGNAL:TRADE", ErrInvalidRequest, entry)
		}
		p := symbolPair{signal: signal, trade: trade}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no pairs to sweep", ErrInvalidRequest)
	}
	return pairs, nil
}

// rankPairs orders by total return, then profit factor.
func rankPairs(results []*dto.PairResult) []dto.PairResult {
	ranked := make([]dto.PairResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			ranked = append(ranked, *r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalReturnPct != ranked[j].TotalReturnPct {
			return ranked[i].TotalReturnPct > ranked[j].TotalReturnPct
		}
		return ranked[i].ProfitFactor > ranked[j].ProfitFactor
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func toPairResult(res *dto.BacktestResult) *dto.PairResult {
	return &dto.PairResult{
		SignalSymbol:        res.SignalSymbol,
		TradeSymbol:         res.TradeSymbol,
		RunID:               res.RunID,
		Observations:        res.Observations,
		TotalTrades:         res.Summary.TotalTrades,
		WinRate:             res.Summary.WinRate,
		TotalReturnPct:      res.Summary.TotalReturnPct,
		BuyAndHoldReturnPct: res.Summary.BuyAndHoldReturnPct,
		ExcessReturnPct:     res.Summary.ExcessReturnPct,
		MaxDrawdown:         res.Summary.MaxDrawdown,
		ProfitFactor:        res.Summary.ProfitFactor,
	}
}
