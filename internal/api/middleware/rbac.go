package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RBAC lets the request through when the token holds any of allowedRoles.
// Role names compare case-insensitively. It must run after Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[domain.Normalize(r)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := Claims(c)
			if claims != nil {
				for _, role := range claims.Roles {
					if _, ok := allowed[domain.Normalize(role)]; ok {
						return next(c)
					}
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}
