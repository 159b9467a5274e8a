package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BacktestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_runs_total", Help: "Backtests executed"},
		[]string{"timing", "status"},
	)
	BacktestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "backtest_duration_seconds", Help: "Wall time of one simulation including data loading", Buckets: prometheus.DefBuckets},
		[]string{"timing"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtest_trades_total", Help: "Closed trades produced by backtests"},
		[]string{"exit_reason"},
	)
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bar_provider_requests_total", Help: "Requests sent to market data providers"},
		[]string{"provider", "status"},
	)
	BarCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bar_cache_lookups_total", Help: "Bar cache lookups by layer and result"},
		[]string{"layer", "result"},
	)
)

func init() {
	prometheus.MustRegister(BacktestRunsTotal, BacktestDuration, TradesTotal, ProviderRequestsTotal, BarCacheLookupsTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
