package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// ctxClaims returns the token claims injected by the Auth middleware. A
// missing value means the route was mounted without it.
func ctxClaims(c echo.Context) (*ports.TokenClaims, error) {
	claims := middleware.Claims(c)
	if claims == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}
