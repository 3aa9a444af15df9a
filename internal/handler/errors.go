package handler

import (
	"errors"
	"net/http"
	"strconv"

	"catalog/internal/middleware"
	"catalog/internal/policy"
	"catalog/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AppErrorのKindをステータスに変換する。分類されていないものは500
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	if ae, ok := usecase.AsAppError(err); ok {
		status := ae.Status()
		msg := ae.Message
		if status >= http.StatusInternalServerError {
			//原因は外に出さずログにだけ残す
			zap.L().Error("request failed",
				zap.String("request_id", middleware.RequestIDFrom(c)),
				zap.String("kind", string(ae.Kind)),
				zap.Error(err),
			)
			if ae.Kind == usecase.KindStorage {
				msg = "internal error"
			}
		}
		return c.JSON(status, ErrorResponse{Error: msg, Code: string(ae.Kind)})
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(he.Code)
		}
		return c.JSON(he.Code, ErrorResponse{Error: msg, Code: codeForStatus(he.Code)})
	}

	//500
	zap.L().Error("unhandled error", zap.String("request_id", middleware.RequestIDFrom(c)), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: string(usecase.KindStorage)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: string(usecase.KindValidation)})
}

func notFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{Error: msg, Code: string(usecase.KindNotFound)})
}

func denied(c echo.Context, d policy.Decision) error {
	if d.Reason == policy.ReasonUnauthenticated {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: d.Reason, Code: string(usecase.KindUnauthorized)})
	}
	return c.JSON(http.StatusForbidden, ErrorResponse{Error: d.Reason, Code: string(usecase.KindForbidden)})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return string(usecase.KindValidation)
	case http.StatusUnauthorized:
		return string(usecase.KindUnauthorized)
	case http.StatusForbidden:
		return string(usecase.KindForbidden)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return string(usecase.KindNotFound)
	case http.StatusConflict:
		return string(usecase.KindConflict)
	default:
		return string(usecase.KindStorage)
	}
}

// echoのHTTPErrorHandler。ルーティングの404やBodyLimitの413も同じJSONにする
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	_ = writeError(c, err)
}

// bindしてvalidateタグを検査する。失敗はVALIDATION_FAILURE
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewError(usecase.KindValidation, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return usecase.NewError(usecase.KindValidation, err.Error())
	}
	return nil
}

// :idを取り出す
func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: string(usecase.KindUnauthorized)})
}
