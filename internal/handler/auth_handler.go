package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/response"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	refreshCookieName = "refresh_token"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"
)

type AuthHandler struct {
	uc           *usecase.AuthUsecase
	refreshTTL   time.Duration // refresh/csrf cookie の有効期限
	cookieSecure bool
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase, refreshTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		uc:           uc,
		refreshTTL:   refreshTTL,
		cookieSecure: cookieSecure,
	}
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
	Role     string `json:"role" validate:"max=20"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/refresh", h.refresh)
	g.POST("/logout", h.logout)
	g.GET("/me", h.me, middleware.AuthJWT(cfg.JWTSecret), middleware.TokenVersionGuard(userRepo))
}

func (h *AuthHandler) register(c echo.Context) error {
	var req registerRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Register(c.Request().Context(), usecase.AuthRegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, "user registered", out)
}

// ゲストのセッションがあればここでカートを統合する
func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	// User-Agentを取得（refreshtokenに紐付ける）
	userAgent := c.Request().UserAgent()

	res, err := h.uc.Login(c.Request().Context(), usecase.AuthLoginRequest{
		Email:    req.Email,
		Password: req.Password,
	}, userAgent, middleware.ReadSessionID(c))
	if err != nil {
		return writeError(c, err)
	}

	h.setRefreshCookie(c, res.RefreshTokenPlain)
	h.setCsrfCookie(c, res.CsrfTokenPlain)
	if res.Body.CartMerged {
		h.clearCookie(c, middleware.SessionCookie, true)
	}

	return response.OK(c, "logged in", res.Body)
}

// CSRF Double Submit：cookie csrf_token と header X-CSRF-Token が同じ値
func (h *AuthHandler) refresh(c echo.Context) error {
	if !csrfOK(c) {
		return response.Fail(c, http.StatusForbidden, "invalid csrf token")
	}

	ck, err := c.Cookie(refreshCookieName)
	if err != nil {
		return unauthorized(c)
	}

	res, err := h.uc.Refresh(c.Request().Context(), ck.Value, c.Request().UserAgent())
	if err != nil {
		//失効したcookieは消しておく
		h.clearCookie(c, refreshCookieName, true)
		return writeError(c, err)
	}

	h.setRefreshCookie(c, res.RefreshTokenPlain)
	h.setCsrfCookie(c, res.CsrfTokenPlain)

	return response.OK(c, "token refreshed", res.Body)
}

func (h *AuthHandler) logout(c echo.Context) error {
	if !csrfOK(c) {
		return response.Fail(c, http.StatusForbidden, "invalid csrf token")
	}

	plain := ""
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		plain = ck.Value
	}

	if err := h.uc.Logout(c.Request().Context(), plain); err != nil {
		return writeError(c, err)
	}

	h.clearCookie(c, refreshCookieName, true)
	h.clearCookie(c, csrfCookieName, false)

	return response.OK(c, "logged out", nil)
}

func (h *AuthHandler) me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "user fetched", out)
}

func csrfOK(c echo.Context) bool {
	header := c.Request().Header.Get(csrfHeaderName)
	ck, err := c.Cookie(csrfCookieName)
	if err != nil || header == "" || ck.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(ck.Value)) == 1
}

// refreshtoken をCookieにセット。
func (h *AuthHandler) setRefreshCookie(c echo.Context, plainRefresh string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    plainRefresh,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.refreshTTL),
	})
}

// csrftokenをCookieにセット（JSから読むのでHttpOnlyにしない）
func (h *AuthHandler) setCsrfCookie(c echo.Context, csrfToken string) {
	c.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    csrfToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.refreshTTL),
	})
}

func (h *AuthHandler) clearCookie(c echo.Context, name string, httpOnly bool) {
	path := "/"
	if name == refreshCookieName {
		path = "/auth"
	}
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		HttpOnly: httpOnly,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
