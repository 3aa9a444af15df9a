package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"catalog/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxPrincipalKey    = "principal"     // model.Principal
	CtxTokenVersionKey = "token_version" // int
)

var errInvalidClaims = errors.New("invalid claims")

// Bearerトークンを検証してPrincipalとtvをcontextに入れる。
// tvが今のユーザーと一致するかはTokenVersionGuardで見る。
func AuthJWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(c)
			}

			p, tv, err := principalFromToken(raw, key)
			if err != nil {
				return unauthorized(c)
			}

			c.Set(CtxPrincipalKey, p)
			c.Set(CtxTokenVersionKey, tv)
			return next(c)
		}
	}
}

// "Bearer <token>" から token を抜く
func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// HS256のみ受け付ける。sub/role/tvが揃っていなければエラー
func principalFromToken(raw string, key []byte) (model.Principal, int, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return model.Principal{}, 0, errInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Principal{}, 0, errInvalidClaims
	}

	userID, err := int64Claim(claims["sub"])
	if err != nil || userID <= 0 {
		return model.Principal{}, 0, errInvalidClaims
	}
	role, _ := claims["role"].(string)
	if !model.Role(role).Valid() {
		return model.Principal{}, 0, errInvalidClaims
	}
	tv, err := int64Claim(claims["tv"])
	if err != nil || tv < 0 {
		return model.Principal{}, 0, errInvalidClaims
	}

	return model.Principal{UserID: userID, Role: model.Role(role)}, int(tv), nil
}

// AuthJWTが入れた認証済みユーザー
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(CtxPrincipalKey).(model.Principal)
	if !ok || p.UserID <= 0 {
		return model.Principal{}, false
	}
	return p, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "UNAUTHORIZED"})
}

func forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, errorResponse{Error: msg, Code: "FORBIDDEN"})
}

// JSONの数値はfloat64で来る。文字列の数値も受ける
func int64Claim(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errInvalidClaims
	}
}
