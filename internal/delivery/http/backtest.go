package http

import (
	"net/http"
	"sma-crossover/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBacktest(base *echo.Group) {
	backtestGroup := base.Group("/v1/backtest")
	backtestGroup.POST("", h.runBacktest)
	backtestGroup.POST("/grid", h.runGridSearch)
	backtestGroup.POST("/compare", h.runCompare)
	backtestGroup.POST("/pairs", h.runPairSweep)
}

func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.BacktestRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	result, err := h.service.BacktestService.RunBacktest(ctx, *req)
	if err != nil {
		return h.errorResponse(c, err, "failed to run backtest")
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtest completed", result))
}

func (h *HttpAPIHandler) runGridSearch(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.GridSearchRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	result, err := h.service.GridSearchService.Run(ctx, *req)
	if err != nil {
		return h.errorResponse(c, err, "failed to run grid search")
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("grid search completed", result))
}

func (h *HttpAPIHandler) runCompare(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.CompareRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	result, err := h.service.CompareService.Compare(ctx, *req)
	if err != nil {
		return h.errorResponse(c, err, "failed to compare with reference trades")
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("comparison completed", result))
}

func (h *HttpAPIHandler) runPairSweep(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.PairSweepRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	result, err := h.service.PairSweepService.Run(ctx, *req)
	if err != nil {
		return h.errorResponse(c, err, "failed to run pair sweep")
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("pair sweep completed", result))
}
