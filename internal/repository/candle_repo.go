package repository

import (
	"context"
	"fmt"
	"sma-crossover/config"
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/cache"
	"sma-crossover/pkg/common"
	"sma-crossover/pkg/logger"
	"sma-crossover/pkg/metrics"
	"time"
)

// startSlack absorbs weekends and holidays between a requested start date and
// the first bar a provider actually has.
const startSlack = 7 * 24 * time.Hour

// cachedBars remembers the start date a series was fetched for, so a provider
// that simply has no older bars is not asked again.
type cachedBars struct {
	From time.Time
	Bars []dto.PriceBar
}

// CandleRepository serves bars through an in-memory cache and a flat-file cache
// in front of the configured providers. A cached series is returned whole;
// callers clip it to the range they need.
type CandleRepository interface {
	Get(ctx context.Context, param dto.GetBarsParam) ([]dto.PriceBar, error)
	Refresh(ctx context.Context, param dto.GetBarsParam) ([]dto.PriceBar, error)
}

type candleRepository struct {
	providers     map[string]BarProvider
	dailyProvider string
	intraProvider string
	files         BarFileRepository
	inmemoryCache cache.Cache
	log           *logger.Logger
}

func NewCandleRepository(cfg *config.Config, log *logger.Logger, inmemoryCache cache.Cache, files BarFileRepository, providers ...BarProvider) CandleRepository {
	byName := make(map[string]BarProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &candleRepository{
		providers:     byName,
		dailyProvider: cfg.Provider.Daily,
		intraProvider: cfg.Provider.Intraday,
		files:         files,
		inmemoryCache: inmemoryCache,
		log:           log,
	}
}

func (r *candleRepository) Get(ctx context.Context, param dto.GetBarsParam) ([]dto.PriceBar, error) {
	provider, err := r.providerFor(param.Timeframe)
	if err != nil {
		return nil, err
	}
	key := common.BarsKey(provider.Name(), param.Symbol, param.Timeframe)

	if entry, ok := cache.GetFromCache[cachedBars](r.inmemoryCache, key); ok {
		if !param.Start.Before(entry.From) || startsBy(entry.Bars, param.Start) {
			metrics.BarCacheLookupsTotal.WithLabelValues(common.CACHE_LAYER_MEMORY, "hit").Inc()
			return entry.Bars, nil
		}
		r.warnShortCache(ctx, param, common.CACHE_LAYER_MEMORY, entry.Bars)
	}
	metrics.BarCacheLookupsTotal.WithLabelValues(common.CACHE_LAYER_MEMORY, "miss").Inc()

	if r.files != nil {
		bars, found, err := r.files.Load(param.Symbol, param.Timeframe)
		if err != nil {
			r.log.WarnContext(ctx, "Failed to read bar cache, refetching",
				logger.StringField("symbol", param.Symbol),
				logger.StringField("timeframe", param.Timeframe),
				logger.ErrorField(err))
		}
		if err == nil && found && len(bars) > 0 {
			if startsBy(bars, param.Start) {
				metrics.BarCacheLookupsTotal.WithLabelValues(common.CACHE_LAYER_FILE, "hit").Inc()
				r.inmemoryCache.Set(key, cachedBars{From: param.Start, Bars: bars}, 0)
				return bars, nil
			}
			r.warnShortCache(ctx, param, common.CACHE_LAYER_FILE, bars)
		}
		metrics.BarCacheLookupsTotal.WithLabelValues(common.CACHE_LAYER_FILE, "miss").Inc()
	}

	return r.fetch(ctx, provider, key, param)
}

// Refresh bypasses both caches and rewrites them with fresh provider data.
func (r *candleRepository) Refresh(ctx context.Context, param dto.GetBarsParam) ([]dto.PriceBar, error) {
	provider, err := r.providerFor(param.Timeframe)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, provider, common.BarsKey(provider.Name(), param.Symbol, param.Timeframe), param)
}

func (r *candleRepository) fetch(ctx context.Context, provider BarProvider, key string, param dto.GetBarsParam) ([]dto.PriceBar, error) {
	bars, err := provider.GetBars(ctx, param)
	if err != nil {
		return nil, fmt.Errorf("get %s %s bars from %s: %w", param.Symbol, param.Timeframe, provider.Name(), err)
	}

	r.log.InfoContext(ctx, "Fetched bars from provider",
		logger.StringField("provider", provider.Name()),
		logger.StringField("symbol", param.Symbol),
		logger.StringField("timeframe", param.Timeframe),
		logger.IntField("bars", len(bars)))

	if r.files != nil {
		if err := r.files.Save(param.Symbol, param.Timeframe, bars); err != nil {
			r.log.WarnContext(ctx, "Failed to write bar cache", logger.ErrorField(err))
		}
	}
	r.inmemoryCache.Set(key, cachedBars{From: param.Start, Bars: bars}, 0)
	return bars, nil
}

func (r *candleRepository) warnShortCache(ctx context.Context, param dto.GetBarsParam, layer string, bars []dto.PriceBar) {
	cachedStart := "none"
	if len(bars) > 0 {
		cachedStart = bars[0].Timestamp.Format(dto.DateLayout)
	}
	r.log.WarnContext(ctx, "Cached bars start after the requested start, refetching",
		logger.StringField("layer", layer),
		logger.StringField("symbol", param.Symbol),
		logger.StringField("timeframe", param.Timeframe),
		logger.StringField("requested_start", param.Start.Format(dto.DateLayout)),
		logger.StringField("cached_start", cachedStart))
}

// startsBy reports whether bars reach back to start. A zero start accepts any series.
func startsBy(bars []dto.PriceBar, start time.Time) bool {
	if start.IsZero() {
		return true
	}
	return len(bars) > 0 && !bars[0].Timestamp.After(start.Add(startSlack))
}

func (r *candleRepository) providerFor(timeframe string) (BarProvider, error) {
	name := r.intraProvider
	if timeframe == dto.Timeframe1Day {
		name = r.dailyProvider
	}
	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("bar provider %q is not configured", name)
	}
	return provider, nil
}
