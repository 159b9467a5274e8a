package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesMetrics(t *testing.T) {
	BacktestRunsTotal.WithLabelValues("hybrid", "ok").Inc()
	TradesTotal.WithLabelValues("TRAILING_STOP").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["backtest_runs_total"])
	assert.True(t, names["backtest_trades_total"])

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `backtest_runs_total{status="ok",timing="hybrid"}`)
}
