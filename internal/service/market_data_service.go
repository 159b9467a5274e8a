package service

import (
	"context"
	"fmt"
	"sma-crossover/config"
	"sma-crossover/internal/dto"
	"sma-crossover/internal/repository"
	"sma-crossover/pkg/logger"
	"sma-crossover/pkg/utils"
	"time"

	"golang.org/x/sync/errgroup"
)

type MarketDataService interface {
	Load(ctx context.Context, param dto.MarketDataParam) (dto.BarSet, error)
	Fetch(ctx context.Context, param dto.MarketDataParam) ([]dto.SeriesInfo, error)
	DefaultParam() (dto.MarketDataParam, error)
}

type marketDataService struct {
	cfg        *config.Config
	log        *logger.Logger
	candleRepo repository.CandleRepository
}

func NewMarketDataService(cfg *config.Config, log *logger.Logger, candleRepo repository.CandleRepository) MarketDataService {
	return &marketDataService{
		cfg:        cfg,
		log:        log,
		candleRepo: candleRepo,
	}
}

// DefaultParam covers the configured symbols from the warm-up start to the configured end.
func (s *marketDataService) DefaultParam() (dto.MarketDataParam, error) {
	bt := s.cfg.Backtest
	start, err := utils.ParseDate(bt.DataStartDate)
	if err != nil {
		return dto.MarketDataParam{}, fmt.Errorf("data start date: %w", err)
	}
	end, err := utils.ParseDate(bt.EndDate)
	if err != nil {
		return dto.MarketDataParam{}, fmt.Errorf("end date: %w", err)
	}
	return dto.MarketDataParam{
		SignalSymbol:      bt.SignalSymbol,
		TradeSymbol:       bt.TradeSymbol,
		IntradayTimeframe: bt.IntradayInterval,
		Start:             start,
		End:               end,
	}, nil
}

// Load fetches the signal daily, signal intraday and trade intraday series concurrently.
func (s *marketDataService) Load(ctx context.Context, param dto.MarketDataParam) (dto.BarSet, error) {
	if param.Start.IsZero() {
		return dto.BarSet{}, fmt.Errorf("market data for %s/%s: start date is required", param.SignalSymbol, param.TradeSymbol)
	}
	if param.End.IsZero() {
		param.End = time.Now().UTC()
	}

	var set dto.BarSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bars, err := s.get(gctx, param, param.SignalSymbol, dto.Timeframe1Day)
		set.SignalDaily = bars
		return err
	})
	g.Go(func() error {
		bars, err := s.get(gctx, param, param.SignalSymbol, param.IntradayTimeframe)
		set.SignalIntraday = bars
		return err
	})
	g.Go(func() error {
		bars, err := s.get(gctx, param, param.TradeSymbol, param.IntradayTimeframe)
		set.TradeIntraday = bars
		return err
	})
	if err := g.Wait(); err != nil {
		return dto.BarSet{}, err
	}

	s.log.InfoContext(ctx, "Market data loaded",
		logger.StringField("signal_symbol", param.SignalSymbol),
		logger.StringField("trade_symbol", param.TradeSymbol),
		logger.IntField("signal_daily", len(set.SignalDaily)),
		logger.IntField("signal_intraday", len(set.SignalIntraday)),
		logger.IntField("trade_intraday", len(set.TradeIntraday)))

	return set, nil
}

// Fetch loads the series and reports what each one covers.
func (s *marketDataService) Fetch(ctx context.Context, param dto.MarketDataParam) ([]dto.SeriesInfo, error) {
	set, err := s.Load(ctx, param)
	if err != nil {
		return nil, err
	}
	return []dto.SeriesInfo{
		describeSeries(param.SignalSymbol, dto.Timeframe1Day, set.SignalDaily),
		describeSeries(param.SignalSymbol, param.IntradayTimeframe, set.SignalIntraday),
		describeSeries(param.TradeSymbol, param.IntradayTimeframe, set.TradeIntraday),
	}, nil
}

func (s *marketDataService) get(ctx context.Context, param dto.MarketDataParam, symbol, timeframe string) ([]dto.PriceBar, error) {
	barsParam := dto.GetBarsParam{
		Symbol:    symbol,
		Timeframe: timeframe,
		Start:     param.Start,
		End:       param.End,
	}
	var (
		bars []dto.PriceBar
		err  error
	)
	if param.Refresh {
		bars, err = s.candleRepo.Refresh(ctx, barsParam)
	} else {
		bars, err = s.candleRepo.Get(ctx, barsParam)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load bars",
			logger.StringField("symbol", symbol),
			logger.StringField("timeframe", timeframe),
			logger.ErrorField(err))
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no %s bars for %s", timeframe, symbol)
	}
	return bars, nil
}

func describeSeries(symbol, timeframe string, bars []dto.PriceBar) dto.SeriesInfo {
	info := dto.SeriesInfo{Symbol: symbol, Timeframe: timeframe, Bars: len(bars)}
	for i, bar := range bars {
		if i == 0 || bar.Timestamp.Before(info.First) {
			info.First = bar.Timestamp
		}
		if bar.Timestamp.After(info.Last) {
			info.Last = bar.Timestamp
		}
	}
	return info
}
