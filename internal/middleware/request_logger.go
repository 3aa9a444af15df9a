package middleware

import (
	"strconv"
	"time"

	"catalog/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	HeaderXRequestID = "X-Request-ID"
	CtxRequestIDKey  = "request_id"
)

// リクエストIDを受け取るか発行し、レスポンスヘッダにも付ける
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(CtxRequestIDKey, id)
			c.Response().Header().Set(HeaderXRequestID, id)
			return next(c)
		}
	}
}

func RequestIDFrom(c echo.Context) string {
	id, _ := c.Get(CtxRequestIDKey).(string)
	return id
}

// アクセスログとHTTPメトリクス。4xxはwarn、5xxはerror
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				//echo.HTTPErrorなどはここでレスポンスにしてからステータスを読む
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			latency := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(latency.Seconds())

			fields := []zap.Field{
				zap.String("request_id", RequestIDFrom(c)),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("remote_ip", c.RealIP()),
			}
			if p, ok := PrincipalFrom(c); ok {
				fields = append(fields, zap.Int64("user_id", p.UserID))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			switch {
			case status >= 500:
				logger.Error("request", fields...)
			case status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}
