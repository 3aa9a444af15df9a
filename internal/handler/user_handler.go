package handler

import (
	"net/http"

	"catalog/internal/domain/model"
	"catalog/internal/middleware"
	"catalog/internal/usecase"

	"github.com/labstack/echo/v4"
)

type createUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin seller user"`
}

type UserHandler struct {
	uc   *usecase.UserUsecase
	auth *AuthHandler
}

func NewUserHandler(uc *usecase.UserUsecase, auth *AuthHandler) *UserHandler {
	return &UserHandler{uc: uc, auth: auth}
}

// 登録は公開、それ以外は管理者のみ
func (h *UserHandler) RegisterRoutes(e *echo.Echo, authn ...echo.MiddlewareFunc) {
	e.POST("/users", h.create)

	admin := append(append([]echo.MiddlewareFunc{}, authn...), middleware.RoleGuard(model.RoleAdmin))
	g := e.Group("/users", admin...)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)

	e.POST("/admin/users/:id/force-logout", h.auth.forceLogout, admin...)
}

func (h *UserHandler) create(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Create(c.Request().Context(), usecase.CreateUserInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *UserHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), c.QueryParam("email"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) detail(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.FindByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if out == nil {
		return notFound(c, "user not found")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) update(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	in := usecase.UpdateUserInput{
		Name:     model.FromPtr(req.Name),
		Email:    model.FromPtr(req.Email),
		Password: model.FromPtr(req.Password),
	}
	if req.Role != nil {
		in.Role = model.Set(model.Role(*req.Role))
	}

	out, err := h.uc.Update(c.Request().Context(), p, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) delete(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.Delete(c.Request().Context(), p, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
