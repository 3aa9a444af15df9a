package middleware

import (
	"catalog/internal/domain/model"
	"catalog/internal/repository"

	"github.com/labstack/echo/v4"
)

// JWTのtvとDBのtoken_versionの一致するか確認。
// 削除済みユーザーのトークンもここで弾く。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//AuthJWTが入れたprincipalを取得する
			p, ok := PrincipalFrom(c)
			if !ok {
				return unauthorized(c)
			}

			//AuthJWTが入れたtoken_version(tv)を取得する
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return unauthorized(c)
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), p.UserID)
			if err != nil || user == nil {
				return unauthorized(c)
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv {
				return unauthorized(c)
			}

			//ロールはDBの値を正とする
			c.Set(CtxPrincipalKey, model.Principal{UserID: user.ID, Role: user.Role})

			return next(c)
		}
	}
}
