package report

import (
	"fmt"
	"io"
	"sma-crossover/internal/dto"
	"time"
)

// Writer renders service results to a sink in one output format.
type Writer interface {
	Backtest(w io.Writer, result *dto.BacktestResult) error
	Grid(w io.Writer, result *dto.GridSearchResult) error
	Compare(w io.Writer, result *dto.CompareResult) error
	Pairs(w io.Writer, result *dto.PairSweepResult) error
	Series(w io.Writer, series []dto.SeriesInfo) error
}

// New returns the writer for format. Times are shown in loc; nil means UTC.
func New(format string, loc *time.Location) (Writer, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch format {
	case dto.FormatConsole, "":
		return &consoleWriter{loc: loc}, nil
	case dto.FormatJSON:
		return &jsonWriter{}, nil
	case dto.FormatCSV:
		return &csvWriter{loc: loc}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}
