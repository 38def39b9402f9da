package middleware

import (
	"net/http"

	"canteen/internal/domain/model"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleが指定ロールかどうかを確認します。

func RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if actor.Role != role {
				return c.JSON(http.StatusForbidden, errorJSON("Access denied. "+role.String()+" role required."))
			}

			return next(c)
		}
	}
}

// 管理者だけ許可
func AdminRoleGuard() echo.MiddlewareFunc {
	return RequireRole(model.RoleAdmin)
}
