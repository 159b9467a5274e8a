package http

import (
	"net/http"
	"sma-crossover/internal/dto"
	"time"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupJobs(base *echo.Group) {
	v1 := base.Group("/v1/jobs")
	{
		v1.GET("/refresh", h.GetRefreshSchedule)
		v1.POST("/refresh", h.RunRefresh)
	}

}

func (h *HttpAPIHandler) GetRefreshSchedule(c echo.Context) error {
	var next *time.Time
	if t := h.service.SchedulerService.NextRun(); !t.IsZero() {
		next = &t
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("refresh schedule", map[string]interface{}{
		"next_run": next,
	}))
}

func (h *HttpAPIHandler) RunRefresh(c echo.Context) error {
	response := dto.NewBaseResponse(http.StatusOK, "Bar cache refreshed", nil)
	if err := h.service.SchedulerService.RefreshNow(c.Request().Context()); err != nil {
		response.Code = http.StatusInternalServerError
		response.Message = err.Error()
	}
	return c.JSON(response.Code, response)
}
