package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"catalog/internal/handler"
	"catalog/internal/middleware"
	"catalog/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// 停止時に処理中のリクエストを待つ上限
const shutdownTimeout = 10 * time.Second

// multipartの画像以外の分を見込んだ余裕
const bodyLimitSlack = 1 << 20

type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
	addr   string
}

// echoの組み立て。ミドルウェアの順番は RequestID → RequestLogger → Recover → BodyLimit
func New(port string, maxImageBytes int64, logger *zap.Logger, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(bodyLimit(maxImageBytes)))

	RegisterRoutes(e, h)

	return &Server{
		echo:   e,
		logger: logger,
		addr:   net.JoinHostPort("", port),
	}
}

// テストからhttptestで叩くため
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Shutdownが呼ばれるまでブロック
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to serve http")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	return errors.WithStack(s.echo.Shutdown(shutdownCtx))
}

// echoのBodyLimitは "5M" のような文字列を取る
func bodyLimit(maxImageBytes int64) string {
	kb := (maxImageBytes + bodyLimitSlack + 1023) / 1024
	return strconv.FormatInt(kb, 10) + "K"
}
