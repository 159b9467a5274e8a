package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sma-crossover/internal/dto"
	"strconv"
	"strings"
	"time"
)

const (
	refColumnEntryTime = "Entry Time"
	refColumnExitTime  = "Exit Time"
	refColumnPnL       = "P&L"
	refColumnIsWin     = "IsWin"
)

var referenceTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ReferenceTradeRepository loads the trade list exported by the reference platform.
type ReferenceTradeRepository interface {
	Load(path string) ([]dto.ReferenceTrade, error)
}

type referenceTradeRepository struct{}

func NewReferenceTradeRepository() ReferenceTradeRepository {
	return &referenceTradeRepository{}
}

func (r *referenceTradeRepository) Load(path string) ([]dto.ReferenceTrade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference trades: %w", err)
	}
	defer f.Close()
	return readReferenceTrades(f)
}

func readReferenceTrades(in io.Reader) ([]dto.ReferenceTrade, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read reference trades header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{refColumnEntryTime, refColumnExitTime, refColumnPnL} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("reference trades: missing column %q", required)
		}
	}

	var trades []dto.ReferenceTrade
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reference trades: %w", err)
		}
		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		entry, err := parseReferenceTime(field(refColumnEntryTime))
		if err != nil {
			return nil, fmt.Errorf("reference trades line %d: %w", line, err)
		}
		exit, err := parseReferenceTime(field(refColumnExitTime))
		if err != nil {
			return nil, fmt.Errorf("reference trades line %d: %w", line, err)
		}
		pnl, err := strconv.ParseFloat(strings.NewReplacer("$", "", ",", "").Replace(field(refColumnPnL)), 64)
		if err != nil {
			return nil, fmt.Errorf("reference trades line %d: P&L: %w", line, err)
		}
		isWin := pnl > 0
		if raw := field(refColumnIsWin); raw != "" {
			if parsed, err := strconv.ParseBool(raw); err == nil {
				isWin = parsed
			}
		}

		trades = append(trades, dto.ReferenceTrade{
			EntryTime: entry,
			ExitTime:  exit,
			PnL:       pnl,
			IsWin:     isWin,
		})
	}
	return trades, nil
}

func parseReferenceTime(value string) (time.Time, error) {
	for _, layout := range referenceTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", value)
}
