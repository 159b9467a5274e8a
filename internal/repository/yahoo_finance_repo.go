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

type YahooFinanceRepository interface {
	BarProvider
}

type yahooFinanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            config.YahooFinance
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewYahooFinanceRepository creates a client for the Yahoo chart API.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) YahooFinanceRepository {
	yahoo := cfg.Provider.Yahoo
	secondsPerRequest := time.Minute / time.Duration(yahoo.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	headers := map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://finance.yahoo.com/",
	}

	return &yahooFinanceRepository{
		httpClient:     httpclient.New(yahoo.BaseURL, yahoo.Timeout, 2, headers),
		cfg:            yahoo,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *yahooFinanceRepository) Name() string {
	return dto.ProviderYahoo
}

// GetBars returns split and dividend adjusted bars. When the response carries
// adjclose, open/high/low are scaled by the same factor as the close.
func (r *yahooFinanceRepository) GetBars(ctx context.Context, param dto.GetBarsParam) ([]dto.PriceBar, error) {
	if param.Start.IsZero() {
		return nil, fmt.Errorf("yahoo bars for %s: start date is required", param.Symbol)
	}
	end := param.End
	if end.IsZero() {
		end = time.Now().UTC()
	}

	if r.requestLimiter.Tokens() < 1 {
		r.logger.WarnContext(ctx, "Yahoo Finance API request limit reached, waiting",
			logger.IntField("max_request_per_minute", r.cfg.MaxRequestPerMinute))
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := "/" + url.PathEscape(param.Symbol)
	queryParams := map[string]string{
		"period1":        strconv.FormatInt(param.Start.Unix(), 10),
		"period2":        strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10),
		"interval":       dto.YahooInterval(param.Timeframe),
		"includePrePost": "false",
		"events":         "div,split",
	}

	var yahooResp dto.YahooFinanceResponse
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &yahooResp)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(dto.ProviderYahoo, "error").Inc()
		return nil, fmt.Errorf("failed to fetch data from yahoo finance: %w", err)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(dto.ProviderYahoo, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Yahoo Finance API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("yahoo finance api returned status: %d", resp.StatusCode)
	}

	if yahooResp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance api error: %v", yahooResp.Chart.Error)
	}
	if len(yahooResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for symbol: %s", param.Symbol)
	}

	result := yahooResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data available for symbol: %s", param.Symbol)
	}
	quote := result.Indicators.Quote[0]

	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]dto.PriceBar, 0, len(result.Timestamp))
	for i, timestamp := range result.Timestamp {
		open, okOpen := valueAt(quote.Open, i)
		high, okHigh := valueAt(quote.High, i)
		low, okLow := valueAt(quote.Low, i)
		closePrice, okClose := valueAt(quote.Close, i)
		// skip holes the API leaves for halted or missing intervals
		if !okOpen || !okHigh || !okLow || !okClose || closePrice == 0 {
			continue
		}
		volume, _ := valueAt(quote.Volume, i)

		factor := 1.0
		if adj, ok := valueAt(adjClose, i); ok && adj > 0 {
			factor = adj / closePrice
		}

		bars = append(bars, dto.PriceBar{
			Timestamp: time.Unix(timestamp, 0).UTC(),
			Open:      open * factor,
			High:      high * factor,
			Low:       low * factor,
			Close:     closePrice * factor,
			Volume:    volume,
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no valid OHLCV data found for symbol: %s", param.Symbol)
	}
	return bars, nil
}

func valueAt(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
