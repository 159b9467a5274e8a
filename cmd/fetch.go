package cmd

import (
	"io"
	"sma-crossover/internal/dto"

	"github.com/spf13/cobra"
)

var (
	fetchFormat  string
	fetchOutput  string
	fetchRefresh bool
	fetchStart   string
	fetchEnd     string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and cache the daily and intraday bars a backtest needs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appDep, err := NewAppDependency(ctx)
		if err != nil {
			return err
		}
		defer appDep.Close()

		writer, err := appDep.reportWriter(fetchFormat)
		if err != nil {
			return err
		}

		if fetchStart != "" {
			appDep.cfg.Backtest.DataStartDate = fetchStart
		}
		if fetchEnd != "" {
			appDep.cfg.Backtest.EndDate = fetchEnd
		}
		param, err := appDep.service.MarketDataService.DefaultParam()
		if err != nil {
			return err
		}
		param.Refresh = fetchRefresh

		series, err := appDep.service.MarketDataService.Fetch(ctx, param)
		if err != nil {
			return err
		}
		return writeOutput(fetchOutput, func(w io.Writer) error {
			return writer.Series(w, series)
		})
	},
}

func init() {
	fs := fetchCmd.Flags()
	fs.StringVarP(&fetchFormat, "format", "f", dto.FormatConsole, "output format: console, json or csv")
	fs.StringVarP(&fetchOutput, "output", "o", "", "write the series list to this file instead of stdout")
	fs.BoolVar(&fetchRefresh, "refresh", false, "ignore cached bars and refetch from the provider")
	fs.StringVar(&fetchStart, "start", "", "first date to fetch (default backtest.data_start_date)")
	fs.StringVar(&fetchEnd, "end", "", "last date to fetch (default today)")
}
