package middleware

import (
	"net/http"

	"marketplace/internal/repository"
	"marketplace/internal/response"

	"github.com/labstack/echo/v4"
)

// JWTのtvとDBのtoken_versionの一致するか確認。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := UserID(c)
			if !ok {
				return response.Fail(c, http.StatusUnauthorized, "unauthorized")
			}

			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return response.Fail(c, http.StatusUnauthorized, "unauthorized")
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return response.Fail(c, http.StatusUnauthorized, "unauthorized")
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv || !user.IsActive {
				return response.Fail(c, http.StatusUnauthorized, "unauthorized")
			}

			return next(c)
		}
	}
}

// ログイン済みのときだけmwを通す（OptionalAuthの後ろ用）
func WhenAuthenticated(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := mw(next)
		return func(c echo.Context) error {
			if c.Get(CtxUserIDKey) == nil {
				return next(c)
			}
			return guarded(c)
		}
	}
}
