package handler

import (
	"net/http"
	"strconv"
	"time"

	"catalog/internal/domain/model"
	"catalog/internal/middleware"
	repo "catalog/internal/repository"
	"catalog/internal/usecase"

	"github.com/labstack/echo/v4"
)

// GET /admin/audit-logs
type AuditLogHandler struct {
	uc *usecase.AuditLogUsecase
}

func NewAuditLogHandler(uc *usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{uc: uc}
}

func (h *AuditLogHandler) RegisterRoutes(e *echo.Echo, authn ...echo.MiddlewareFunc) {
	admin := append(append([]echo.MiddlewareFunc{}, authn...), middleware.RoleGuard(model.RoleAdmin))
	e.GET("/admin/audit-logs", h.list, admin...)
}

func (h *AuditLogHandler) list(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	f, err := parseAuditLogFilter(c)
	if err != nil {
		return writeError(c, err)
	}

	logs, err := h.uc.List(c.Request().Context(), p, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

func parseAuditLogFilter(c echo.Context) (repo.AuditLogFilter, error) {
	qp := c.QueryParams()
	var f repo.AuditLogFilter
	var err error

	if f.ActorUserID, err = formInt(qp, "actor_user_id"); err != nil {
		return f, err
	}
	if f.ResourceID, err = formInt(qp, "resource_id"); err != nil {
		return f, err
	}
	if v := qp.Get("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := qp.Get("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if f.CreatedFrom, err = queryTime(qp.Get("created_from"), "created_from"); err != nil {
		return f, err
	}
	if f.CreatedTo, err = queryTime(qp.Get("created_to"), "created_to"); err != nil {
		return f, err
	}
	if v := qp.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return f, usecase.NewError(usecase.KindValidation, "limit must be an integer")
		}
	}
	if v := qp.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			return f, usecase.NewError(usecase.KindValidation, "offset must be an integer")
		}
	}
	return f, nil
}

// RFC3339
func queryTime(v, key string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, usecase.NewError(usecase.KindValidation, key+" must be RFC3339")
	}
	return &t, nil
}
