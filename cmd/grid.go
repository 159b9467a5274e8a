package cmd

import (
	"io"
	"sma-crossover/internal/dto"

	"github.com/spf13/cobra"
)

var (
	gridOpts          backtestFlags
	gridWindows       []int
	gridFixedStops    []float64
	gridTrailingStops []float64
	gridTimings       []string
	gridTop           int
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Search SMA window, stop and timing combinations and rank them by return",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appDep, err := NewAppDependency(ctx)
		if err != nil {
			return err
		}
		defer appDep.Close()

		writer, err := appDep.reportWriter(gridOpts.format)
		if err != nil {
			return err
		}
		if gridOpts.refresh {
			if err := appDep.refreshBars(ctx); err != nil {
				return err
			}
		}

		result, err := appDep.service.GridSearchService.Run(ctx, dto.GridSearchRequest{
			SMAWindows:       gridWindows,
			FixedStopPcts:    gridFixedStops,
			TrailingStopPcts: gridTrailingStops,
			Timings:          gridTimings,
			TopN:             gridTop,
		})
		if err != nil {
			return err
		}
		return writeOutput(gridOpts.output, func(w io.Writer) error {
			return writer.Grid(w, result)
		})
	},
}

func init() {
	fs := gridCmd.Flags()
	addOutputFlags(fs, &gridOpts)
	fs.IntSliceVar(&gridWindows, "windows", nil, "SMA windows to try (default from config)")
	fs.Float64SliceVar(&gridFixedStops, "fixed-stops", nil, "fixed stop fractions to try")
	fs.Float64SliceVar(&gridTrailingStops, "trailing-stops", nil, "trailing stop fractions to try")
	fs.StringSliceVar(&gridTimings, "timings", nil, "timing policies to try")
	fs.IntVar(&gridTop, "top", 0, "number of ranked results to keep (default from config)")
}
