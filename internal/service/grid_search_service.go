package service

import (
	"context"
	"fmt"
	"sma-crossover/config"
	"sma-crossover/internal/dto"
	"sma-crossover/internal/strategy"
	"sma-crossover/pkg/logger"
	"sma-crossover/pkg/metrics"
	"sma-crossover/pkg/utils"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type GridSearchService interface {
	Run(ctx context.Context, req dto.GridSearchRequest) (*dto.GridSearchResult, error)
}

type gridSearchService struct {
	cfg        *config.Config
	log        *logger.Logger
	marketData MarketDataService
}

func NewGridSearchService(cfg *config.Config, log *logger.Logger, marketData MarketDataService) GridSearchService {
	return &gridSearchService{
		cfg:        cfg,
		log:        log,
		marketData: marketData,
	}
}

// Run sweeps every combination of the requested lists over one shared data set.
// Bars are loaded once; observations are built once per SMA window.
func (s *gridSearchService) Run(ctx context.Context, req dto.GridSearchRequest) (*dto.GridSearchResult, error) {
	started := time.Now()
	plan, err := resolvePlan(s.cfg, dto.BacktestRequest{})
	if err != nil {
		return nil, err
	}

	grid := s.cfg.Grid
	if len(req.SMAWindows) > 0 {
		grid.SMAWindows = req.SMAWindows
	}
	if len(req.FixedStopPcts) > 0 {
		grid.FixedStopPcts = req.FixedStopPcts
	}
	if len(req.TrailingStopPcts) > 0 {
		grid.TrailingStopPcts = req.TrailingStopPcts
	}
	if len(req.Timings) > 0 {
		grid.Timings = req.Timings
	}
	if req.TopN > 0 {
		grid.TopN = req.TopN
	}

	combos, skipped := gridCombos(plan.params, grid)
	if len(combos) == 0 {
		return nil, fmt.Errorf("%w: grid has no valid combinations", ErrInvalidRequest)
	}

	runID := uuid.NewString()
	log := s.log.With(logger.StringField("run_id", runID))
	log.InfoContext(ctx, "Grid search started",
		logger.IntField("combinations", len(combos)),
		logger.IntField("skipped", skipped),
		logger.IntField("max_concurrency", grid.MaxConcurrency))

	bars, err := s.marketData.Load(ctx, plan.data)
	if err != nil {
		return nil, fmt.Errorf("load market data: %w", err)
	}

	byWindow := make(map[int][]int)
	var windows []int
	for i, p := range combos {
		if _, ok := byWindow[p.SMAWindow]; !ok {
			windows = append(windows, p.SMAWindow)
		}
		byWindow[p.SMAWindow] = append(byWindow[p.SMAWindow], i)
	}

	entries := make([]*dto.GridEntry, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(grid.MaxConcurrency, 1))

	for _, window := range windows {
		windowPlan := plan
		windowPlan.params.SMAWindow = window
		ev, observations, err := prepareObservations(windowPlan, bars)
		if err == nil && len(observations) == 0 {
			err = strategy.ErrNoObservations
		}
		if err != nil {
			log.WarnContext(ctx, "Skipping SMA window", logger.IntField("sma_window", window), logger.ErrorField(err))
			skipped += len(byWindow[window])
			continue
		}

		for _, idx := range byWindow[window] {
			g.Go(func() error {
				if !utils.ShouldContinue(gctx, log) {
					return gctx.Err()
				}
				params := combos[idx]
				runStarted := time.Now()
				_, summary, err := evaluate(params, ev, observations)
				metrics.BacktestDuration.WithLabelValues(string(params.Timing)).Observe(time.Since(runStarted).Seconds())
				if err != nil {
					metrics.BacktestRunsTotal.WithLabelValues(string(params.Timing), "error").Inc()
					return fmt.Errorf("grid run %+v: %w", params, err)
				}
				metrics.BacktestRunsTotal.WithLabelValues(string(params.Timing), "success").Inc()
				entries[idx] = toGridEntry(params, summary)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		log.ErrorContext(ctx, "Grid search failed", logger.ErrorField(err))
		return nil, err
	}

	results := rankGridEntries(entries, grid.TopN)
	evaluated := 0
	for _, e := range entries {
		if e != nil {
			evaluated++
		}
	}

	log.InfoContext(ctx, "Grid search completed",
		logger.IntField("evaluated", evaluated),
		logger.IntField("skipped", skipped),
		logger.StringField("elapsed", time.Since(started).String()))

	return &dto.GridSearchResult{
		RunID:     runID,
		Evaluated: evaluated,
		Skipped:   skipped,
		Results:   results,
	}, nil
}

// gridCombos expands the grid around base. Invalid and duplicate combinations
// are dropped before any simulation and counted as skipped.
func gridCombos(base strategy.Params, grid config.Grid) ([]strategy.Params, int) {
	var combos []strategy.Params
	seen := make(map[strategy.Params]struct{})
	skipped := 0
	for _, window := range grid.SMAWindows {
		for _, fixed := range grid.FixedStopPcts {
			for _, trailing := range grid.TrailingStopPcts {
				for _, timing := range grid.Timings {
					p := base
					p.SMAWindow = window
					p.FixedStopPct = fixed
					p.TrailingStopPct = trailing
					p.Timing = strategy.SignalTimingPolicy(timing)
					if err := p.Validate(); err != nil {
						skipped++
						continue
					}
					if _, dup := seen[p]; dup {
						skipped++
						continue
					}
					seen[p] = struct{}{}
					combos = append(combos, p)
				}
			}
		}
	}
	return combos, skipped
}

// rankGridEntries orders by total return, then profit factor, and keeps the best topN.
func rankGridEntries(entries []*dto.GridEntry, topN int) []dto.GridEntry {
	ranked := make([]dto.GridEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			ranked = append(ranked, *e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalReturnPct != ranked[j].TotalReturnPct {
			return ranked[i].TotalReturnPct > ranked[j].TotalReturnPct
		}
		return ranked[i].ProfitFactor > ranked[j].ProfitFactor
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func toGridEntry(p strategy.Params, s strategy.Summary) *dto.GridEntry {
	entry := &dto.GridEntry{
		Params:         toStrategyParams(p),
		TotalTrades:    s.TradeCount,
		WinRate:        s.WinRate,
		TotalReturnPct: s.TotalReturnPct,
		MaxDrawdown:    s.MaxDrawdownPct,
		ProfitFactor:   s.ProfitFactor,
	}
	if s.BuyAndHoldAvailable {
		excess := s.ExcessReturnPct
		entry.ExcessReturnPct = &excess
	}
	return entry
}
