package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sma-crossover/internal/dto"
	"sma-crossover/internal/service"
	"sma-crossover/pkg/logger"
	"strings"
	"testing"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBacktest struct {
	req dto.BacktestRequest
	err error
}

func (s *stubBacktest) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &dto.BacktestResult{RunID: "run-1", SignalSymbol: "QQQ", TradeSymbol: "TQQQ"}, nil
}

type stubGrid struct{}

func (stubGrid) Run(ctx context.Context, req dto.GridSearchRequest) (*dto.GridSearchResult, error) {
	return &dto.GridSearchResult{RunID: "grid-1", Evaluated: len(req.SMAWindows)}, nil
}

type stubCompare struct{}

func (stubCompare) Compare(ctx context.Context, req dto.CompareRequest) (*dto.CompareResult, error) {
	return &dto.CompareResult{RunID: "cmp-1", FullMatches: 3}, nil
}

type stubPairs struct{}

func (stubPairs) Run(ctx context.Context, req dto.PairSweepRequest) (*dto.PairSweepResult, error) {
	results := make([]dto.PairResult, 0, len(req.Pairs))
	for i := range req.Pairs {
		results = append(results, dto.PairResult{Rank: i + 1})
	}
	return &dto.PairSweepResult{RunID: "pairs-1", Results: results}, nil
}

type stubScheduler struct {
	next       time.Time
	refreshErr error
	refreshed  int
}

func (s *stubScheduler) Start(ctx context.Context) error { return nil }
func (s *stubScheduler) Stop() context.Context { return context.Background() }
func (s *stubScheduler) NextRun() time.Time { return s.next }
func (s *stubScheduler) RefreshNow(ctx context.Context) error {
	s.refreshed++
	return s.refreshErr
}

func newTestServer(backtest *stubBacktest, scheduler *stubScheduler) *echo.Echo {
	e := echo.New()
	svc := &service.Service{
		BacktestService:   backtest,
		GridSearchService: stubGrid{},
		CompareService:    stubCompare{},
		PairSweepService:  stubPairs{},
		SchedulerService:  scheduler,
	}
	NewHttpAPIHandler(context.Background(), e, goValidator.New(), svc, logger.NewNop()).SetupRoutes()
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRunBacktest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "empty body uses configured run", wantStatus: http.StatusOK},
		{name: "overrides", body: `{"sma_window": 20, "timing": "intraday", "start_date": "2022-01-03"}`, wantStatus: http.StatusOK},
		{name: "malformed json", body: `{"sma_window":`, wantStatus: http.StatusBadRequest},
		{name: "unknown timing", body: `{"timing": "weekly"}`, wantStatus: http.StatusBadRequest},
		{name: "bad date", body: `{"start_date": "03/01/2022"}`, wantStatus: http.StatusBadRequest},
		{name: "stop out of range", body: `{"fixed_stop_pct": 1.5}`, wantStatus: http.StatusBadRequest},
		{name: "service rejects request", err: fmt.Errorf("%w: end before start", service.ErrInvalidRequest), wantStatus: http.StatusBadRequest},
		{name: "provider failure", err: errors.New("alpaca down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backtest := &stubBacktest{err: tt.err}
			e := newTestServer(backtest, &stubScheduler{})

			rec := do(e, http.MethodPost, "/api/v1/backtest", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			body := decode(t, rec)
			assert.EqualValues(t, tt.wantStatus, body["code"])
			if tt.wantStatus == http.StatusOK {
				data := body["data"].(map[string]any)
				assert.Equal(t, "run-1", data["run_id"])
			}
		})
	}
}

func TestRunBacktest_PassesOverrides(t *testing.T) {
	backtest := &stubBacktest{}
	e := newTestServer(backtest, &stubScheduler{})

	rec := do(e, http.MethodPost, "/api/v1/backtest", `{"sma_window": 20, "signal_memory": true, "cooldown": "stop_exits"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, backtest.req.SMAWindow)
	assert.Equal(t, 20, *backtest.req.SMAWindow)
	require.NotNil(t, backtest.req.SignalMemory)
	assert.True(t, *backtest.req.SignalMemory)
	assert.Equal(t, "stop_exits", backtest.req.Cooldown)
	assert.Nil(t, backtest.req.Capital)
}

func TestGridAndCompareRoutes(t *testing.T) {
	e := newTestServer(&stubBacktest{}, &stubScheduler{})

	rec := do(e, http.MethodPost, "/api/v1/backtest/grid", `{"sma_windows": [20, 50], "top_n": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["data"].(map[string]any)["evaluated"])

	rec = do(e, http.MethodPost, "/api/v1/backtest/grid", `{"timings": ["weekly"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/backtest/compare", `{"reference_path": "qc.csv"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["data"].(map[string]any)["full_matches"])

	rec = do(e, http.MethodPost, "/api/v1/backtest/pairs", `{"pairs": ["QQQ:TQQQ", "SPY:UPRO"], "backtest": {"timing": "hybrid"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"].(map[string]any)["results"], 2)

	rec = do(e, http.MethodPost, "/api/v1/backtest/pairs", `{"backtest": {"timing": "weekly"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshJobs(t *testing.T) {
	next := time.Date(2030, 1, 2, 22, 30, 0, 0, time.UTC)
	scheduler := &stubScheduler{next: next}
	e := newTestServer(&stubBacktest{}, scheduler)

	rec := do(e, http.MethodGet, "/api/v1/jobs/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, next.Format(time.RFC3339), decode(t, rec)["data"].(map[string]any)["next_run"])

	rec = do(e, http.MethodPost, "/api/v1/jobs/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, scheduler.refreshed)

	scheduler.refreshErr = errors.New("timeout")
	rec = do(e, http.MethodPost, "/api/v1/jobs/refresh", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "timeout", decode(t, rec)["message"])
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestServer(&stubBacktest{}, &stubScheduler{})

	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
