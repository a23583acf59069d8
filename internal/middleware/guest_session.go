package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	SessionHeader   = "X-Session-Id"
	SessionCookie   = "session_id"
	CtxSessionIDKey = "session_id" // string
	maxSessionIDLen = 64
	guestSessionTTL = 30 * 24 * time.Hour
)

// ゲストのカート用セッション。ヘッダかcookieから読み、無ければ発行する。
// ログイン済みでも読むだけは行う（ログイン時のマージ用）
func GuestSession(cookieSecure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := ReadSessionID(c)

			if sid == "" && c.Get(CtxUserIDKey) == nil {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					Secure:   cookieSecure,
					SameSite: http.SameSiteLaxMode,
					Expires:  time.Now().Add(guestSessionTTL),
				})
				c.Response().Header().Set(SessionHeader, sid)
			}

			if sid != "" {
				c.Set(CtxSessionIDKey, sid)
			}
			return next(c)
		}
	}
}

// ヘッダ優先。長すぎる値は無視
func ReadSessionID(c echo.Context) string {
	sid := strings.TrimSpace(c.Request().Header.Get(SessionHeader))
	if sid == "" {
		if ck, err := c.Cookie(SessionCookie); err == nil {
			sid = strings.TrimSpace(ck.Value)
		}
	}
	if len(sid) > maxSessionIDLen {
		return ""
	}
	return sid
}

func SessionID(c echo.Context) string {
	sid, _ := c.Get(CtxSessionIDKey).(string)
	return sid
}
