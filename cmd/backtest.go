package cmd

import (
	"context"
	"fmt"
	"io"
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/logger"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// backtestFlags are the per-run overrides shared by backtest, grid, compare and pairs.
// Only flags set on the command line reach the request.
type backtestFlags struct {
	format       string
	output       string
	refresh      bool
	signal       string
	trade        string
	start        string
	end          string
	capital      float64
	sma          int
	fixedStop    float64
	trailingStop float64
	slippage     float64
	commission   float64
	timing       string
	cooldown     string
	signalMemory bool
}

func addOutputFlags(fs *pflag.FlagSet, f *backtestFlags) {
	fs.StringVarP(&f.format, "format", "f", dto.FormatConsole, "output format: console, json or csv")
	fs.StringVarP(&f.output, "output", "o", "", "write the report to this file instead of stdout")
	fs.BoolVar(&f.refresh, "refresh", false, "refetch bars from the provider before running")
}

func addBacktestFlags(fs *pflag.FlagSet, f *backtestFlags) {
	addOutputFlags(fs, f)
	fs.StringVar(&f.signal, "signal", "", "signal symbol")
	fs.StringVar(&f.trade, "trade", "", "traded symbol")
	fs.StringVar(&f.start, "start", "", "first simulated date (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "last simulated date (YYYY-MM-DD)")
	fs.Float64Var(&f.capital, "capital", 0, "starting capital")
	fs.IntVar(&f.sma, "sma", 0, "SMA window in days")
	fs.Float64Var(&f.fixedStop, "fixed-stop", 0, "fixed stop as a fraction of entry price")
	fs.Float64Var(&f.trailingStop, "trailing-stop", 0, "trailing stop as a fraction below the highest bar high since entry")
	fs.Float64Var(&f.slippage, "slippage", 0, "slippage as a fraction of price")
	fs.Float64Var(&f.commission, "commission", 0, "commission per side")
	fs.StringVar(&f.timing, "timing", "", "timing policy: intraday, end_of_day or hybrid")
	fs.StringVar(&f.cooldown, "cooldown", "", "cooldown policy: all_exits, stop_exits or none")
	fs.BoolVar(&f.signalMemory, "signal-memory", false, "after a stop-out, re-enter at the next session open if the signal is still bullish")
}

func (f *backtestFlags) request(fs *pflag.FlagSet) dto.BacktestRequest {
	req := dto.BacktestRequest{
		SignalSymbol: strings.ToUpper(f.signal),
		TradeSymbol:  strings.ToUpper(f.trade),
		StartDate:    f.start,
		EndDate:      f.end,
		Timing:       f.timing,
		Cooldown:     f.cooldown,
	}
	if fs.Changed("capital") {
		req.Capital = &f.capital
	}
	if fs.Changed("sma") {
		req.SMAWindow = &f.sma
	}
	if fs.Changed("fixed-stop") {
		req.FixedStopPct = &f.fixedStop
	}
	if fs.Changed("trailing-stop") {
		req.TrailingStopPct = &f.trailingStop
	}
	if fs.Changed("slippage") {
		req.Slippage = &f.slippage
	}
	if fs.Changed("commission") {
		req.Commission = &f.commission
	}
	if fs.Changed("signal-memory") {
		req.SignalMemory = &f.signalMemory
	}
	return req
}

// refreshBars refetches the configured series so the run that follows reads fresh caches.
// refreshBars refetches the configured symbols, or the given SIGNAL:TRADE pairs instead.
func (d *AppDependency) refreshBars(ctx context.Context, pairs ...string) error {
	param, err := d.service.MarketDataService.DefaultParam()
	if err != nil {
		return err
	}
	param.Refresh = true
	if len(pairs) == 0 {
		return d.refreshParam(ctx, param)
	}
	for _, pair := range pairs {
		signal, trade, ok := strings.Cut(pair, ":")
		if !ok {
			return fmt.Errorf("pair %q must look like SIGNAL:TRADE", pair)
		}
		param.SignalSymbol = strings.ToUpper(strings.TrimSpace(signal))
		param.TradeSymbol = strings.ToUpper(strings.TrimSpace(trade))
		if err := d.refreshParam(ctx, param); err != nil {
			return err
		}
	}
	return nil
}

func (d *AppDependency) refreshParam(ctx context.Context, param dto.MarketDataParam) error {
	series, err := d.service.MarketDataService.Fetch(ctx, param)
	if err != nil {
		return err
	}
	for _, s := range series {
		d.log.InfoContext(ctx, "Refreshed bars",
			logger.StringField("symbol", s.Symbol),
			logger.StringField("timeframe", s.Timeframe),
			logger.IntField("bars", s.Bars))
	}
	return nil
}

var backtestOpts backtestFlags

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one backtest and print the trade ledger and summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appDep, err := NewAppDependency(ctx)
		if err != nil {
			return err
		}
		defer appDep.Close()

		writer, err := appDep.reportWriter(backtestOpts.format)
		if err != nil {
			return err
		}
		if backtestOpts.refresh {
			if err := appDep.refreshBars(ctx); err != nil {
				return err
			}
		}

		result, err := appDep.service.BacktestService.RunBacktest(ctx, backtestOpts.request(cmd.Flags()))
		if err != nil {
			return err
		}
		return writeOutput(backtestOpts.output, func(w io.Writer) error {
			return writer.Backtest(w, result)
		})
	},
}

func init() {
	addBacktestFlags(backtestCmd.Flags(), &backtestOpts)
}
