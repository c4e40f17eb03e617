package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/config"
)

// RateLimit returns a Redis-backed fixed-window limiter. Each client gets
// cfg.Limit requests per cfg.Window, keyed by member id when authenticated
// and by remote IP otherwise. When Redis is unavailable (nil client or a
// failing call) the limiter lets requests through rather than taking the
// API down with it.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			window := time.Now().UnixMilli() / cfg.Window.Milliseconds()
			key := fmt.Sprintf("%s:%s:%d", cfg.Prefix, clientKey(c), window)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if count == 1 {
				// First hit in this window owns the expiry.
				rdb.Expire(ctx, key, cfg.Window)
			}

			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				retry := int(cfg.Window / time.Second)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"retry_after": retry,
				})
			}
			return next(c)
		}
	}
}

// clientKey identifies the caller: authenticated member id when present,
// remote IP otherwise.
func clientKey(c echo.Context) string {
	if v := c.Get("member_id"); v != nil {
		return fmt.Sprint(v)
	}
	return c.RealIP()
}
