package service

import (
	"sma-crossover/config"
	"sma-crossover/internal/repository"
	"sma-crossover/pkg/logger"
)

type Service struct {
	MarketDataService MarketDataService
	BacktestService   BacktestService
	GridSearchService GridSearchService
	CompareService    CompareService
	PairSweepService  PairSweepService
	SchedulerService  SchedulerService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
) *Service {
	marketDataService := NewMarketDataService(cfg, log, repo.CandleRepo)
	backtestService := NewBacktestService(cfg, log, marketDataService)

	return &Service{
		MarketDataService: marketDataService,
		BacktestService:   backtestService,
		GridSearchService: NewGridSearchService(cfg, log, marketDataService),
		CompareService:    NewCompareService(cfg, log, backtestService, repo.ReferenceTradeRepo),
		PairSweepService:  NewPairSweepService(cfg, log, backtestService),
		SchedulerService:  NewSchedulerService(cfg, log, marketDataService),
	}
}
