package handler

import (
	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/response"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 出品者承認・強制ログアウト・監査ログ
type AdminHandler struct {
	users *usecase.AdminUserUsecase
	auth  *usecase.AuthUsecase
}

func NewAdminHandler(users *usecase.AdminUserUsecase, auth *usecase.AuthUsecase) *AdminHandler {
	return &AdminHandler{users: users, auth: auth}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/admin")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.Use(middleware.RequireRoles(model.RoleAdmin))

	g.GET("/sellers", h.listSellers)
	g.POST("/sellers/:id/approve", h.approve)
	g.POST("/sellers/:id/revoke", h.revoke)
	g.POST("/users/:id/force-logout", h.forceLogout)
	g.GET("/audit-logs", h.auditLogs)
}

func (h *AdminHandler) listSellers(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return badRequest(c, "invalid limit")
	}

	out, err := h.users.ListSellers(c.Request().Context(), c.QueryParam("status"), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "sellers fetched", out)
}

func (h *AdminHandler) approve(c echo.Context) error {
	return h.setApproval(c, true)
}

func (h *AdminHandler) revoke(c echo.Context) error {
	return h.setApproval(c, false)
}

func (h *AdminHandler) setApproval(c echo.Context, approve bool) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	sellerID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var (
		out usecase.UserDTO
		err error
		msg string
	)
	if approve {
		out, err = h.users.ApproveSeller(c.Request().Context(), actorID, sellerID)
		msg = "seller approved"
	} else {
		out, err = h.users.RevokeSeller(c.Request().Context(), actorID, sellerID)
		msg = "seller approval revoked"
	}
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, msg, out)
}

// token_versionを上げて対象ユーザーの発行済みトークンを無効化
func (h *AdminHandler) forceLogout(c echo.Context) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.auth.ForceLogout(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "user logged out", out)
}

func (h *AdminHandler) auditLogs(c echo.Context) error {
	var (
		q   usecase.AuditLogQuery
		err error
	)

	if q.ActorUserID, err = queryInt64Ptr(c, "actor_user_id"); err != nil {
		return badRequest(c, "invalid actor_user_id")
	}
	if q.ResourceID, err = queryInt64Ptr(c, "resource_id"); err != nil {
		return badRequest(c, "invalid resource_id")
	}
	if q.From, err = queryTime(c, "from"); err != nil {
		return badRequest(c, "invalid from")
	}
	if q.To, err = queryTime(c, "to"); err != nil {
		return badRequest(c, "invalid to")
	}
	if q.Limit, err = queryInt(c, "limit", 50); err != nil {
		return badRequest(c, "invalid limit")
	}
	if q.Offset, err = queryInt(c, "offset", 0); err != nil {
		return badRequest(c, "invalid offset")
	}
	q.Action = c.QueryParam("action")
	q.ResourceType = c.QueryParam("resource_type")

	out, err := h.users.ListAuditLogs(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "audit logs fetched", out)
}
