package middleware

import (
	"net/http"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"
	"marketplace/internal/response"

	"github.com/labstack/echo/v4"
)

// contextに入っているroleが許可リストにあるか確認します。
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := UserRole(c)
			if role == "" {
				return response.Fail(c, http.StatusUnauthorized, "unauthorized")
			}

			if _, ok := allowed[role]; !ok {
				return response.Fail(c, http.StatusForbidden, "forbidden")
			}

			return next(c)
		}
	}
}

// SELLERは承認済みだけ通す。ADMINは素通り
func ApprovedSellerGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserRole(c) != model.RoleSeller {
				return next(c)
			}

			userID, ok := UserID(c)
			if !ok {
				return response.Fail(c, http.StatusUnauthorized, "unauthorized")
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return response.Fail(c, http.StatusUnauthorized, "unauthorized")
			}

			if !user.IsApproved {
				return response.Fail(c, http.StatusForbidden, "seller is not approved yet")
			}

			return next(c)
		}
	}
}
