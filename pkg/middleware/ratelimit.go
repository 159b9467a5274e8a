package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Response mirrors the API's base response envelope.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewRateLimiterMiddleware limits each client IP to rps requests per second on
// the /api routes. Health and metrics stay unlimited.
func NewRateLimiterMiddleware(rps float64, burst int) echo.MiddlewareFunc {
	config := middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Path(), "/api")
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(rps),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			},
		),

		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},

		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, Response{
				Code:    http.StatusForbidden,
				Message: "Access forbidden: Rate limiter error occurred",
			})
		},

		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, Response{
				Code:    http.StatusTooManyRequests,
				Message: "Too many requests: Rate limit exceeded. Please try again later",
			})
		},
	}

	return middleware.RateLimiterWithConfig(config)
}
