package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sma-crossover/config"
	"sma-crossover/internal/dto"
	"sma-crossover/pkg/httpclient"
	"sma-crossover/pkg/logger"
	"sma-crossover/pkg/metrics"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// BarProvider fetches historical bars for one symbol and timeframe.
type BarProvider interface {
	Name() string
	GetBars(ctx context.Context, param dto.GetBarsParam) ([]dto.PriceBar, error)
}

type AlpacaRepository interface {
	BarProvider
}

type alpacaRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            config.Alpaca
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewAlpacaRepository creates a client for the Alpaca market data v2 bars endpoint.
func NewAlpacaRepository(cfg *config.Config, log *logger.Logger) AlpacaRepository {
	alpaca := cfg.Provider.Alpaca
	secondsPerRequest := time.Minute / time.Duration(alpaca.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	headers := map[string]string{
		"APCA-API-KEY-ID":     alpaca.APIKey,
		"APCA-API-SECRET-KEY": alpaca.SecretKey,
	}

	return &alpacaRepository{
		httpClient:     httpclient.New(alpaca.BaseURL, alpaca.Timeout, 2, headers),
		cfg:            alpaca,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *alpacaRepository) Name() string {
	return dto.ProviderAlpaca
}

// GetBars walks [Start, End] in chunks of ChunkDays and follows next_page_token
// inside each chunk. Bars come back in ascending order.
func (r *alpacaRepository) GetBars(ctx context.Context, param dto.GetBarsParam) ([]dto.PriceBar, error) {
	if param.Start.IsZero() {
		return nil, fmt.Errorf("alpaca bars for %s: start date is required", param.Symbol)
	}
	end := param.End
	if end.IsZero() {
		end = time.Now().UTC()
	}

	var bars []dto.PriceBar
	chunk := time.Duration(r.cfg.ChunkDays) * 24 * time.Hour
	for chunkStart := param.Start; chunkStart.Before(end); chunkStart = chunkStart.Add(chunk) {
		chunkEnd := chunkStart.Add(chunk)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		chunkBars, err := r.getChunk(ctx, param.Symbol, param.Timeframe, chunkStart, chunkEnd)
		if err != nil {
			return nil, err
		}
		bars = append(bars, chunkBars...)

		r.logger.DebugContext(ctx, "Fetched alpaca chunk",
			logger.StringField("symbol", param.Symbol),
			logger.StringField("timeframe", param.Timeframe),
			logger.StringField("start", chunkStart.Format(dto.DateLayout)),
			logger.IntField("bars", len(chunkBars)),
		)
	}

	return bars, nil
}

func (r *alpacaRepository) getChunk(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]dto.PriceBar, error) {
	endpoint := fmt.Sprintf("/v2/stocks/%s/bars", url.PathEscape(symbol))
	queryParams := map[string]string{
		"timeframe":  timeframe,
		"start":      start.UTC().Format(time.RFC3339),
		"end":        end.UTC().Format(time.RFC3339),
		"adjustment": r.cfg.Adjustment,
		"feed":       r.cfg.Feed,
		"limit":      strconv.Itoa(r.cfg.PageLimit),
		"sort":       "asc",
	}

	var bars []dto.PriceBar
	for {
		if err := r.wait(ctx); err != nil {
			return nil, err
		}

		var alpacaResp dto.AlpacaBarsResponse
		resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &alpacaResp)
		if err != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(dto.ProviderAlpaca, "error").Inc()
			return nil, fmt.Errorf("failed to fetch bars from alpaca: %w", err)
		}
		metrics.ProviderRequestsTotal.WithLabelValues(dto.ProviderAlpaca, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode != http.StatusOK {
			r.logger.ErrorContext(ctx, "Alpaca API returned Non-OK status",
				logger.IntField("status_code", resp.StatusCode),
				logger.StringField("body", string(resp.Body)))
			return nil, fmt.Errorf("alpaca api returned status: %d", resp.StatusCode)
		}

		for _, b := range alpacaResp.Bars {
			bars = append(bars, dto.PriceBar{
				Timestamp: b.Timestamp,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
			})
		}

		if alpacaResp.NextPageToken == nil || *alpacaResp.NextPageToken == "" {
			return bars, nil
		}
		queryParams["page_token"] = *alpacaResp.NextPageToken
	}
}

func (r *alpacaRepository) wait(ctx context.Context) error {
	if r.requestLimiter.Tokens() < 1 {
		r.logger.WarnContext(ctx, "Alpaca API request limit reached, waiting",
			logger.IntField("max_request_per_minute", r.cfg.MaxRequestPerMinute))
	}
	return r.requestLimiter.Wait(ctx)
}
