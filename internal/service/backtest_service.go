package service

import (
	"context"
	"errors"
	"fmt"
	"sma-crossover/config"
	"sma-crossover/internal/dto"
	"sma-crossover/internal/strategy"
	"sma-crossover/pkg/logger"
	"sma-crossover/pkg/metrics"
	"sma-crossover/pkg/utils"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRequest = errors.New("invalid backtest request")

// IsBadRequest reports whether err was caused by the caller's input rather than the data or the providers.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, strategy.ErrInvalidParams)
}

// BacktestService mendefinisikan interface untuk layanan backtesting.
type BacktestService interface {
	RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error)
}

type backtestService struct {
	cfg        *config.Config
	log        *logger.Logger
	marketData MarketDataService
}

// NewBacktestService membuat instance baru dari backtestService.
func NewBacktestService(cfg *config.Config, log *logger.Logger, marketData MarketDataService) BacktestService {
	return &backtestService{
		cfg:        cfg,
		log:        log,
		marketData: marketData,
	}
}

// backtestPlan is a request resolved against the configuration.
type backtestPlan struct {
	params       strategy.Params
	signalSymbol string
	tradeSymbol  string
	session      strategy.Session
	dates        strategy.DateRange
	data         dto.MarketDataParam
}

// RunBacktest menjalankan simulasi trading berdasarkan data historis.
func (s *backtestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error) {
	started := time.Now()
	plan, err := resolvePlan(s.cfg, req)
	if err != nil {
		return nil, err
	}
	timing := string(plan.params.Timing)
	runID := uuid.NewString()
	log := s.log.With(logger.StringField("run_id", runID))

	result, err := func() (*dto.BacktestResult, error) {
		bars, err := s.marketData.Load(ctx, plan.data)
		if err != nil {
			return nil, fmt.Errorf("load market data: %w", err)
		}

		ev, observations, err := prepareObservations(plan, bars)
		if err != nil {
			return nil, err
		}
		if len(observations) == 0 {
			log.WarnContext(ctx, "No aligned observations in range, reporting an empty run",
				logger.StringField("signal_symbol", plan.signalSymbol),
				logger.StringField("trade_symbol", plan.tradeSymbol))
		}
		res, summary, err := evaluate(plan.params, ev, observations)
		if err != nil {
			return nil, err
		}
		return toBacktestResult(runID, plan, res, summary, observations), nil
	}()

	metrics.BacktestDuration.WithLabelValues(timing).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.BacktestRunsTotal.WithLabelValues(timing, "error").Inc()
		log.ErrorContext(ctx, "Backtest failed", logger.ErrorField(err))
		return nil, err
	}
	metrics.BacktestRunsTotal.WithLabelValues(timing, "success").Inc()
	for _, trade := range result.Trades {
		if trade.ExitReason != nil {
			metrics.TradesTotal.WithLabelValues(*trade.ExitReason).Inc()
		}
	}

	log.InfoContext(ctx, "Backtest completed",
		logger.StringField("timing", timing),
		logger.IntField("observations", result.Observations),
		logger.IntField("trades", result.Summary.TotalTrades),
		logger.FloatField("total_return_pct", result.Summary.TotalReturnPct),
		logger.StringField("elapsed", time.Since(started).String()))

	return result, nil
}

// resolvePlan overlays the request on the configured backtest and validates the outcome.
func resolvePlan(cfg *config.Config, req dto.BacktestRequest) (backtestPlan, error) {
	bt := cfg.Backtest

	timing, err := strategy.ParseTimingPolicy(firstNonEmpty(req.Timing, bt.Timing))
	if err != nil {
		return backtestPlan{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	cooldown, err := strategy.ParseCooldownPolicy(firstNonEmpty(req.Cooldown, bt.Cooldown))
	if err != nil {
		return backtestPlan{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	params := strategy.Params{
		Capital:         valueOr(req.Capital, bt.Capital),
		SMAWindow:       valueOr(req.SMAWindow, bt.SMAWindow),
		FixedStopPct:    valueOr(req.FixedStopPct, bt.FixedStopPct),
		TrailingStopPct: valueOr(req.TrailingStopPct, bt.TrailingStopPct),
		Slippage:        valueOr(req.Slippage, bt.Slippage),
		Commission:      valueOr(req.Commission, bt.Commission),
		Timing:          timing,
		Cooldown:        cooldown,
		SignalMemory:    valueOr(req.SignalMemory, bt.SignalMemory),
	}
	if err := params.Validate(); err != nil {
		return backtestPlan{}, err
	}

	start, err := utils.ParseDate(firstNonEmpty(req.StartDate, bt.StartDate))
	if err != nil {
		return backtestPlan{}, fmt.Errorf("%w: start date: %w", ErrInvalidRequest, err)
	}
	end, err := utils.ParseDate(firstNonEmpty(req.EndDate, bt.EndDate))
	if err != nil {
		return backtestPlan{}, fmt.Errorf("%w: end date: %w", ErrInvalidRequest, err)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return backtestPlan{}, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidRequest, end.Format(dto.DateLayout), start.Format(dto.DateLayout))
	}
	dataStart, err := utils.ParseDate(bt.DataStartDate)
	if err != nil {
		return backtestPlan{}, fmt.Errorf("data start date: %w", err)
	}
	if !start.IsZero() && start.Before(dataStart) {
		dataStart = start
	}

	session, err := strategy.NewSession(bt.Timezone, bt.SessionOpen, bt.SessionClose)
	if err != nil {
		return backtestPlan{}, err
	}

	signalSymbol := strings.ToUpper(firstNonEmpty(req.SignalSymbol, bt.SignalSymbol))
	tradeSymbol := strings.ToUpper(firstNonEmpty(req.TradeSymbol, bt.TradeSymbol))

	return backtestPlan{
		params:       params,
		signalSymbol: signalSymbol,
		tradeSymbol:  tradeSymbol,
		session:      session,
		dates:        strategy.DateRange{Start: start, End: end},
		data: dto.MarketDataParam{
			SignalSymbol:      signalSymbol,
			TradeSymbol:       tradeSymbol,
			IntradayTimeframe: bt.IntradayInterval,
			Start:             dataStart,
			End:               end,
		},
	}, nil
}

func prepareObservations(plan backtestPlan, bars dto.BarSet) (*strategy.SignalEvaluator, []strategy.Observation, error) {
	ev, err := strategy.NewSignalEvaluator(bars.SignalDaily, plan.params.SMAWindow, plan.session.Location)
	if err != nil {
		return nil, nil, err
	}
	return ev, strategy.BuildObservations(ev, bars.SignalIntraday, bars.TradeIntraday, plan.session, plan.dates), nil
}

// evaluate runs one simulation and benchmarks it against holding the signal
// instrument over the same trading dates.
func evaluate(params strategy.Params, ev *strategy.SignalEvaluator, observations []strategy.Observation) (*strategy.Result, strategy.Summary, error) {
	res, err := strategy.Run(params, observations)
	if err != nil {
		return nil, strategy.Summary{}, err
	}
	var benchmark strategy.Benchmark
	if len(observations) > 0 {
		benchmark.ReturnPct, benchmark.Available = ev.BuyAndHold(observations[0].Date, observations[len(observations)-1].Date)
	}
	return res, strategy.Summarize(res, benchmark), nil
}

func toStrategyParams(p strategy.Params) dto.StrategyParams {
	return dto.StrategyParams{
		Capital:         p.Capital,
		SMAWindow:       p.SMAWindow,
		FixedStopPct:    p.FixedStopPct,
		TrailingStopPct: p.TrailingStopPct,
		Slippage:        p.Slippage,
		Commission:      p.Commission,
		Timing:          string(p.Timing),
		Cooldown:        string(p.Cooldown),
		SignalMemory:    p.SignalMemory,
	}
}

func toBacktestResult(runID string, plan backtestPlan, res *strategy.Result, summary strategy.Summary, observations []strategy.Observation) *dto.BacktestResult {
	trades := make([]dto.TradeLog, 0, len(res.Trades))
	for i, t := range res.Trades {
		row := dto.TradeLog{
			Number:        i + 1,
			Symbol:        plan.tradeSymbol,
			EntryTime:     t.EntryTime,
			EntryPrice:    t.EntryPrice,
			EntryReason:   string(t.EntryReason),
			Shares:        t.Shares,
			ExitTime:      t.ExitTime,
			ExitPrice:     t.ExitPrice,
			HoldingPeriod: t.HoldingDays(),
		}
		if t.ExitReason != nil {
			row.ExitReason = utils.ToPointer(string(*t.ExitReason))
		}
		if t.PnL != nil {
			row.ProfitLoss = utils.ToPointer(utils.RoundMoney(*t.PnL))
			row.ProfitLossPct = t.PnLPct
		}
		trades = append(trades, row)
	}

	// an empty run reports the requested range
	start, end := plan.dates.Start, plan.dates.End
	if len(observations) > 0 {
		start, end = observations[0].Date, observations[len(observations)-1].Date
	}

	return &dto.BacktestResult{
		RunID:        runID,
		SignalSymbol: plan.signalSymbol,
		TradeSymbol:  plan.tradeSymbol,
		StartDate:    start,
		EndDate:      end,
		Observations: res.Observations,
		Params:       toStrategyParams(res.Params),
		Summary:      toSummaryResult(summary),
		Trades:       trades,
	}
}

func toSummaryResult(s strategy.Summary) dto.SummaryResult {
	out := dto.SummaryResult{
		TotalTrades:      s.TradeCount,
		WinningTrades:    s.Wins,
		LosingTrades:     s.Losses,
		WinRate:          s.WinRate,
		AvgWinPct:        s.AvgWinPct,
		AvgLossPct:       s.AvgLossPct,
		ExitReasons:      make(map[string]int, len(s.ExitReasons)),
		StartCapital:     s.StartCapital,
		FinalCapital:     utils.RoundMoney(s.FinalCapital),
		TotalProfitLoss:  utils.RoundMoney(s.TotalPnL),
		TotalReturnPct:   s.TotalReturnPct,
		TotalProfit:      utils.RoundMoney(s.GrossProfit),
		TotalLoss:        utils.RoundMoney(s.GrossLoss),
		ProfitFactor:     s.ProfitFactor,
		MaxDrawdown:      s.MaxDrawdownPct,
		AvgHoldingPeriod: s.AvgHoldingDays,
		SlippageCost:     utils.RoundMoney(s.SlippageCost),
		CommissionCost:   utils.RoundMoney(s.CommissionCost),
		Years:            make([]dto.YearResult, 0, len(s.Years)),
	}
	for reason, count := range s.ExitReasons {
		out.ExitReasons[string(reason)] = count
	}
	if s.BuyAndHoldAvailable {
		out.BuyAndHoldReturnPct = utils.ToPointer(s.BuyAndHoldReturnPct)
		out.ExcessReturnPct = utils.ToPointer(s.ExcessReturnPct)
	}
	for _, y := range s.Years {
		out.Years = append(out.Years, dto.YearResult{
			Year:         y.Year,
			BeginBalance: utils.RoundMoney(y.BeginBalance),
			EndBalance:   utils.RoundMoney(y.EndBalance),
			ProfitLoss:   utils.RoundMoney(y.PnL),
			ReturnPct:    y.PnLPct,
			Trades:       y.Trades,
			WinRate:      y.WinRate,
			Stops:        y.Stops,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func valueOr[T any](override *T, fallback T) T {
	if override != nil {
		return *override
	}
	return fallback
}
