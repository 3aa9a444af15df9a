package server

import (
	"net/http"

	"catalog/internal/handler"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ルーティングに必要なハンドラと認証ミドルウェア
type Handlers struct {
	Products  *handler.ProductHandler
	Users     *handler.UserHandler
	Auth      *handler.AuthHandler
	AuditLogs *handler.AuditLogHandler

	//AuthJWTとTokenVersionGuard
	Authn []echo.MiddlewareFunc
}

func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	h.Auth.RegisterRoutes(e, h.Authn...)
	h.Users.RegisterRoutes(e, h.Authn...)
	h.Products.RegisterRoutes(e, h.Authn...)
	h.AuditLogs.RegisterRoutes(e, h.Authn...)
}
