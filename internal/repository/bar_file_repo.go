package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sma-crossover/internal/dto"
	"strconv"
	"strings"
	"time"
)

var barFileHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

// BarFileRepository keeps one CSV file per symbol and timeframe.
type BarFileRepository interface {
	Path(symbol, timeframe string) string
	Load(symbol, timeframe string) ([]dto.PriceBar, bool, error)
	Save(symbol, timeframe string, bars []dto.PriceBar) error
}

type barFileRepository struct {
	dir string
}

func NewBarFileRepository(dir string) BarFileRepository {
	return &barFileRepository{dir: dir}
}

func (r *barFileRepository) Path(symbol, timeframe string) string {
	name := fmt.Sprintf("%s_%s.csv", strings.ToLower(symbol), strings.ToLower(timeframe))
	return filepath.Join(r.dir, name)
}

// Load reads the cached bars. found is false when no file exists yet.
func (r *barFileRepository) Load(symbol, timeframe string) ([]dto.PriceBar, bool, error) {
	path := r.Path(symbol, timeframe)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open bar cache %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(barFileHeader)

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("read bar cache header %s: %w", path, err)
	}

	var bars []dto.PriceBar
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("read bar cache %s: %w", path, err)
		}
		bar, err := parseBarRecord(record)
		if err != nil {
			return nil, false, fmt.Errorf("bar cache %s line %d: %w", path, line, err)
		}
		bars = append(bars, bar)
	}
	return bars, true, nil
}

// Save replaces the cache file atomically.
func (r *barFileRepository) Save(symbol, timeframe string, bars []dto.PriceBar) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	path := r.Path(symbol, timeframe)
	tmp, err := os.CreateTemp(r.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp bar cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(barFileHeader); err != nil {
		tmp.Close()
		return err
	}
	for _, bar := range bars {
		if err := writer.Write(formatBarRecord(bar)); err != nil {
			tmp.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write bar cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatBarRecord(bar dto.PriceBar) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		bar.Timestamp.UTC().Format(time.RFC3339),
		f(bar.Open), f(bar.High), f(bar.Low), f(bar.Close), f(bar.Volume),
	}
}

func parseBarRecord(record []string) (dto.PriceBar, error) {
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return dto.PriceBar{}, fmt.Errorf("timestamp: %w", err)
	}
	values := make([]float64, 5)
	for i := range values {
		values[i], err = strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return dto.PriceBar{}, fmt.Errorf("%s: %w", barFileHeader[i+1], err)
		}
	}
	return dto.PriceBar{
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
