package http

import (
	"context"
	"net/http"
	"sma-crossover/internal/dto"
	"sma-crossover/internal/service"
	"sma-crossover/pkg/logger"
	"sma-crossover/pkg/metrics"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	log       *logger.Logger
}

func NewHttpAPIHandler(ctx context.Context, echo *echo.Echo, validator *goValidator.Validate, service *service.Service, log *logger.Logger) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		log:       log,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", nil))
	})
	h.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	base := h.echo.Group("/api")
	h.SetupJobs(base)
	h.SetupBacktest(base)
}

// bindAndValidate decodes the JSON body into req. An empty body keeps the zero value.
func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) *dto.BaseResponse {
	if c.Request().ContentLength != 0 {
		if err := c.Bind(req); err != nil {
			return dto.NewBadRequestResponse("invalid request body")
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return dto.NewBadRequestResponse(err.Error())
	}
	return nil
}

// errorResponse maps a service error to a client or server error.
func (h *HttpAPIHandler) errorResponse(c echo.Context, err error, message string) error {
	if service.IsBadRequest(err) {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	h.log.ErrorContext(c.Request().Context(), message, logger.ErrorField(err))
	return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse(message))
}
