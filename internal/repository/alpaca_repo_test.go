package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sma-crossover/config"
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/logger"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(alpacaURL, yahooURL string) *config.Config {
	return &config.Config{
		Provider: config.Provider{
			Intraday: dto.ProviderAlpaca,
			Daily:    dto.ProviderYahoo,
			Alpaca: config.Alpaca{
				BaseURL:             alpacaURL,
				APIKey:              "key",
				SecretKey:           "secret",
				Feed:                "iex",
				Adjustment:          "all",
				Timeout:             time.Second,
				MaxRequestPerMinute: 60000,
				ChunkDays:           10,
				PageLimit:           2,
			},
			Yahoo: config.YahooFinance{
				BaseURL:             yahooURL,
				Timeout:             time.Second,
				MaxRequestPerMinute: 60000,
			},
		},
	}
}

func TestAlpacaRepository_GetBars(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/stocks/QQQ/bars", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))

		q := r.URL.Query()
		mu.Lock()
		requests = append(requests, map[string]string{
			"start":      q.Get("start"),
			"end":        q.Get("end"),
			"page_token": q.Get("page_token"),
			"timeframe":  q.Get("timeframe"),
			"feed":       q.Get("feed"),
		})
		mu.Unlock()

		start, _ := time.Parse(time.RFC3339, q.Get("start"))
		resp := dto.AlpacaBarsResponse{Symbol: "QQQ"}
		if q.Get("page_token") == "" {
			token := "next"
			resp.NextPageToken = &token
			resp.Bars = []dto.AlpacaBar{{Timestamp: start, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100}}
		} else {
			resp.Bars = []dto.AlpacaBar{{Timestamp: start.Add(time.Hour), Open: 2, High: 3, Low: 1, Close: 2.5, Volume: 200}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	repo := NewAlpacaRepository(testConfig(srv.URL, ""), logger.NewNop())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars, err := repo.GetBars(context.Background(), dto.GetBarsParam{
		Symbol:    "QQQ",
		Timeframe: dto.Timeframe15Min,
		Start:     start,
		End:       start.AddDate(0, 0, 15),
	})
	require.NoError(t, err)

	require.Len(t, requests, 4, "two chunks of two pages each")
	assert.Equal(t, "2024-01-01T00:00:00Z", requests[0]["start"])
	assert.Equal(t, "2024-01-11T00:00:00Z", requests[0]["end"])
	assert.Equal(t, "next", requests[1]["page_token"])
	assert.Equal(t, "2024-01-11T00:00:00Z", requests[2]["start"])
	assert.Equal(t, "2024-01-16T00:00:00Z", requests[2]["end"])
	assert.Equal(t, "", requests[2]["page_token"])
	assert.Equal(t, "15Min", requests[0]["timeframe"])
	assert.Equal(t, "iex", requests[0]["feed"])

	require.Len(t, bars, 4)
	assert.Equal(t, start, bars[0].Timestamp)
	assert.Equal(t, 2.5, bars[1].Close)
	assert.Equal(t, start.AddDate(0, 0, 10), bars[2].Timestamp)
}

func TestAlpacaRepository_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"forbidden"}`))
	}))
	defer srv.Close()

	repo := NewAlpacaRepository(testConfig(srv.URL, ""), logger.NewNop())
	_, err := repo.GetBars(context.Background(), dto.GetBarsParam{Symbol: "QQQ", Timeframe: dto.Timeframe1Day, Start: time.Now().AddDate(0, 0, -3)})
	assert.ErrorContains(t, err, "status: 403")

	_, err = repo.GetBars(context.Background(), dto.GetBarsParam{Symbol: "QQQ", Timeframe: dto.Timeframe1Day})
	assert.ErrorContains(t, err, "start date is required")
}
