package handler

import (
	"net/http"

	"catalog/internal/middleware"
	"catalog/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthHandler struct {
	uc *usecase.AuthUsecase
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// /auth。force-logoutはUserHandler側の管理者グループに載せる
func (h *AuthHandler) RegisterRoutes(e *echo.Echo, authn ...echo.MiddlewareFunc) {
	e.POST("/auth/login", h.login)
	e.GET("/auth/me", h.me, authn...)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Me(c.Request().Context(), p)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) forceLogout(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	out, err := h.uc.ForceLogout(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
