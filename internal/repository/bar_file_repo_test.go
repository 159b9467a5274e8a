package repository

import (
	"os"
	"path/filepath"
	"sma-crossover/internal/dto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarFileRepository_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	repo := NewBarFileRepository(dir)

	_, found, err := repo.Load("QQQ", dto.Timeframe15Min)
	require.NoError(t, err)
	assert.False(t, found)

	bars := []dto.PriceBar{
		{Timestamp: time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), Open: 400.1, High: 401.25, Low: 399.5, Close: 400.75, Volume: 12345},
		{Timestamp: time.Date(2024, 1, 2, 14, 45, 0, 0, time.UTC), Open: 400.75, High: 402, Low: 400, Close: 401.9, Volume: 2345},
	}
	require.NoError(t, repo.Save("QQQ", dto.Timeframe15Min, bars))
	assert.Equal(t, filepath.Join(dir, "qqq_15min.csv"), repo.Path("QQQ", dto.Timeframe15Min))

	got, found, err := repo.Load("QQQ", dto.Timeframe15Min)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, bars, got)
}

func TestBarFileRepository_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	repo := NewBarFileRepository(dir)
	content := "timestamp,open,high,low,close,volume\n2024-01-02T14:30:00Z,1,2,abc,1,1\n"
	require.NoError(t, os.WriteFile(repo.Path("TQQQ", dto.Timeframe1Day), []byte(content), 0o644))

	_, _, err := repo.Load("TQQQ", dto.Timeframe1Day)
	assert.ErrorContains(t, err, "line 2")
	assert.ErrorContains(t, err, "low")
}
