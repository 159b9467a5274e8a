package repository

import (
	"sma-crossover/config"
	"sma-crossover/pkg/cache"
	"sma-crossover/pkg/logger"
)

type Repository struct {
	AlpacaRepo         AlpacaRepository
	YahooFinanceRepo   YahooFinanceRepository
	BarFileRepo        BarFileRepository
	CandleRepo         CandleRepository
	ReferenceTradeRepo ReferenceTradeRepository
}

func NewRepository(cfg *config.Config, log *logger.Logger, inmemoryCache cache.Cache) *Repository {
	alpacaRepo := NewAlpacaRepository(cfg, log)
	yahooRepo := NewYahooFinanceRepository(cfg, log)

	var barFileRepo BarFileRepository
	if cfg.Cache.Dir != "" {
		barFileRepo = NewBarFileRepository(cfg.Cache.Dir)
	}

	return &Repository{
		AlpacaRepo:         alpacaRepo,
		YahooFinanceRepo:   yahooRepo,
		BarFileRepo:        barFileRepo,
		CandleRepo:         NewCandleRepository(cfg, log, inmemoryCache, barFileRepo, alpacaRepo, yahooRepo),
		ReferenceTradeRepo: NewReferenceTradeRepository(),
	}
}
