package cmd

import (
	"io"
	"sma-crossover/internal/dto"

	"github.com/spf13/cobra"
)

var (
	pairsOpts backtestFlags
	pairsList []string
)

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Run the same backtest over several signal/trade ETF pairs and rank them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appDep, err := NewAppDependency(ctx)
		if err != nil {
			return err
		}
		defer appDep.Close()

		writer, err := appDep.reportWriter(pairsOpts.format)
		if err != nil {
			return err
		}
		pairs := pairsList
		if len(pairs) == 0 {
			pairs = appDep.cfg.Grid.Pairs
		}
		if pairsOpts.refresh {
			if err := appDep.refreshBars(ctx, pairs...); err != nil {
				return err
			}
		}

		result, err := appDep.service.PairSweepService.Run(ctx, dto.PairSweepRequest{
			Backtest: pairsOpts.request(cmd.Flags()),
			Pairs:    pairs,
		})
		if err != nil {
			return err
		}
		return writeOutput(pairsOpts.output, func(w io.Writer) error {
			return writer.Pairs(w, result)
		})
	},
}

func init() {
	fs := pairsCmd.Flags()
	addBacktestFlags(fs, &pairsOpts)
	fs.StringSliceVar(&pairsList, "pairs", nil, "SIGNAL:TRADE pairs to sweep, e.g. SPY:UPRO (default grid.pairs)")
}
