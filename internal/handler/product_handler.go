package handler

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"catalog/internal/domain/model"
	"catalog/internal/middleware"
	"catalog/internal/policy"
	"catalog/internal/usecase"

	"github.com/labstack/echo/v4"
)

// POST /products（JSON または multipart/form-data）
type createProductRequest struct {
	Name     string   `json:"name" validate:"required"`
	SKU      string   `json:"sku" validate:"required"`
	Quantity *int64   `json:"quantity" validate:"required,min=0"`
	Price    *float64 `json:"price" validate:"required,min=0"`
	UserID   *int64   `json:"userId" validate:"omitempty,gt=0"`
}

// PATCH /products/:id。送られたフィールドだけ更新する
type updateProductRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1"`
	SKU      *string  `json:"sku" validate:"omitempty,min=1"`
	Quantity *int64   `json:"quantity" validate:"omitempty,min=0"`
	Price    *float64 `json:"price" validate:"omitempty,min=0"`
}

// /products
type ProductHandler struct {
	uc            *usecase.ProductUsecase
	maxImageBytes int64
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase, maxImageBytes int64) *ProductHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = 5 << 20
	}
	return &ProductHandler{uc: uc, maxImageBytes: maxImageBytes}
}

// 商品のルートを登録。authnはAuthJWTとTokenVersionGuard
func (h *ProductHandler) RegisterRoutes(e *echo.Echo, authn ...echo.MiddlewareFunc) {
	g := e.Group("/products", authn...)

	sellers := middleware.RoleGuard(model.RoleAdmin, model.RoleSeller)
	admins := middleware.RoleGuard(model.RoleAdmin)

	g.POST("", h.create, sellers)
	g.GET("", h.list(policy.ScopeCatalog))
	g.GET("/admin", h.list(policy.ScopeAdmin), admins)
	g.GET("/seller", h.list(policy.ScopeSeller), sellers)
	g.GET("/:id", h.detail)
	g.PATCH("/:id", h.update, sellers)
	g.DELETE("/:id", h.delete, sellers)
}

func (h *ProductHandler) create(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req createProductRequest
	var image *usecase.ImageUpload
	if isMultipart(c) {
		form, err := c.FormParams()
		if err != nil {
			return badRequest(c, "invalid form")
		}
		if err := createRequestFromForm(form, &req); err != nil {
			return writeError(c, err)
		}
		if err := c.Validate(&req); err != nil {
			return badRequest(c, err.Error())
		}
		if image, err = h.readImage(c); err != nil {
			return writeError(c, err)
		}
	} else if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	var requested int64
	if req.UserID != nil {
		requested = *req.UserID
	}
	ownerID, d := policy.BindOwner(p, requested)
	if !d.Allowed {
		return denied(c, d)
	}

	out, err := h.uc.Create(c.Request().Context(), p, usecase.CreateProductInput{
		Name:     req.Name,
		SKU:      req.SKU,
		Quantity: *req.Quantity,
		Price:    *req.Price,
		OwnerID:  ownerID,
		Image:    image,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// 一覧。scopeごとに絞り込みはpolicyに任せる
func (h *ProductHandler) list(scope policy.ListScope) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			return unauthorized(c)
		}

		q, err := parseProductQuery(c)
		if err != nil {
			return writeError(c, err)
		}

		scoped, d := policy.ScopeProductQuery(p, scope, q)
		if !d.Allowed {
			return denied(c, d)
		}

		items, err := h.uc.FindAll(c.Request().Context(), scoped)
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(http.StatusOK, items)
	}
}

func (h *ProductHandler) detail(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.FindByID(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	if out == nil {
		return notFound(c, "product not found")
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) update(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req updateProductRequest
	var image *usecase.ImageUpload
	if isMultipart(c) {
		form, err := c.FormParams()
		if err != nil {
			return badRequest(c, "invalid form")
		}
		if err := updateRequestFromForm(form, &req); err != nil {
			return writeError(c, err)
		}
		if err := c.Validate(&req); err != nil {
			return badRequest(c, err.Error())
		}
		if image, err = h.readImage(c); err != nil {
			return writeError(c, err)
		}
	} else if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Update(c.Request().Context(), p, id, usecase.UpdateProductInput{
		Name:     model.FromPtr(req.Name),
		SKU:      model.FromPtr(req.SKU),
		Quantity: model.FromPtr(req.Quantity),
		Price:    model.FromPtr(req.Price),
		Image:    image,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) delete(c echo.Context) error {
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

// multipartの"image"。無ければnil
func (h *ProductHandler) readImage(c echo.Context) (*usecase.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, usecase.NewError(usecase.KindValidation, "invalid image")
	}
	if fh.Size > h.maxImageBytes {
		return nil, usecase.NewError(usecase.KindValidation, "image too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, usecase.NewError(usecase.KindValidation, "invalid image")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		return nil, usecase.NewError(usecase.KindValidation, "invalid image")
	}
	if int64(len(data)) > h.maxImageBytes {
		return nil, usecase.NewError(usecase.KindValidation, "image too large")
	}

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" || contentType == echo.MIMEOctetStream {
		contentType = http.DetectContentType(data)
	}
	return &usecase.ImageUpload{Data: data, ContentType: contentType}, nil
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func createRequestFromForm(form url.Values, req *createProductRequest) error {
	var err error
	req.Name = form.Get("name")
	req.SKU = form.Get("sku")
	if req.Quantity, err = formInt(form, "quantity"); err != nil {
		return err
	}
	if req.Price, err = formFloat(form, "price"); err != nil {
		return err
	}
	if req.UserID, err = formInt(form, "userId"); err != nil {
		return err
	}
	return nil
}

func updateRequestFromForm(form url.Values, req *updateProductRequest) error {
	var err error
	req.Name = formString(form, "name")
	req.SKU = formString(form, "sku")
	if req.Quantity, err = formInt(form, "quantity"); err != nil {
		return err
	}
	if req.Price, err = formFloat(form, "price"); err != nil {
		return err
	}
	return nil
}

// GET /products のクエリ
func parseProductQuery(c echo.Context) (policy.ProductQuery, error) {
	qp := c.QueryParams()
	q := policy.ProductQuery{
		Name: qp.Get("name"),
		SKU:  qp.Get("sku"),
	}

	var err error
	if q.OwnerID, err = formInt(qp, "userId"); err != nil {
		return policy.ProductQuery{}, err
	}
	if q.Price, err = formFloat(qp, "price"); err != nil {
		return policy.ProductQuery{}, err
	}
	if q.Quantity, err = formInt(qp, "quantity"); err != nil {
		return policy.ProductQuery{}, err
	}
	if q.IncludeOwner, err = formBool(qp, "fetchUser"); err != nil {
		return policy.ProductQuery{}, err
	}
	if q.IncludeDeleted, err = formBool(qp, "includeDeleted"); err != nil {
		return policy.ProductQuery{}, err
	}
	return q, nil
}

// キーが無ければnil（空文字は「指定あり」）
func formString(v url.Values, key string) *string {
	vals, ok := v[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	s := vals[0]
	return &s
}

func formInt(v url.Values, key string) (*int64, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, usecase.NewError(usecase.KindValidation, key+" must be an integer")
	}
	return &n, nil
}

func formFloat(v url.Values, key string) (*float64, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, usecase.NewError(usecase.KindValidation, key+" must be a number")
	}
	return &f, nil
}

func formBool(v url.Values, key string) (bool, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, usecase.NewError(usecase.KindValidation, key+" must be a boolean")
	}
	return b, nil
}
