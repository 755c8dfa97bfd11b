package api

import (
	"github.com/labstack/echo/v4"

	"StockPulse/internal/service/ratelimit"
	xhttp "StockPulse/pkg/http"
)

// RateLimit takes one token per request from the caller's bucket, keyed by
// client IP.
func RateLimit(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
			}
			return next(c)
		}
	}
}
