package cmd

import (
	"io"
	"sma-crossover/internal/dto"

	"github.com/spf13/cobra"
)

var (
	compareOpts      backtestFlags
	compareReference string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run a backtest and match its trades against a reference trade export",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appDep, err := NewAppDependency(ctx)
		if err != nil {
			return err
		}
		defer appDep.Close()

		writer, err := appDep.reportWriter(compareOpts.format)
		if err != nil {
			return err
		}
		if compareOpts.refresh {
			if err := appDep.refreshBars(ctx); err != nil {
				return err
			}
		}

		result, err := appDep.service.CompareService.Compare(ctx, dto.CompareRequest{
			Backtest:      compareOpts.request(cmd.Flags()),
			ReferencePath: compareReference,
		})
		if err != nil {
			return err
		}
		return writeOutput(compareOpts.output, func(w io.Writer) error {
			return writer.Compare(w, result)
		})
	},
}

func init() {
	fs := compareCmd.Flags()
	addBacktestFlags(fs, &compareOpts)
	fs.StringVarP(&compareReference, "reference", "r", "", "reference trades CSV (default backtest.reference_trades)")
}
