package report

import (
	"encoding/json"
	"io"
	"sma-crossover/internal/dto"
)

type jsonWriter struct{}

func (j *jsonWriter) Backtest(w io.Writer, result *dto.BacktestResult) error {
	return j.encode(w, result)
}

func (j *jsonWriter) Grid(w io.Writer, result *dto.GridSearchResult) error {
	return j.encode(w, result)
}

func (j *jsonWriter) Compare(w io.Writer, result *dto.CompareResult) error {
	return j.encode(w, result)
}

func (j *jsonWriter) Pairs(w io.Writer, result *dto.PairSweepResult) error {
	return j.encode(w, result)
}

func (j *jsonWriter) Series(w io.Writer, series []dto.SeriesInfo) error {
	return j.encode(w, series)
}

func (j *jsonWriter) encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
