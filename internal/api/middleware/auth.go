package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

const claimsKey = "auth.claims"

// Auth validates the bearer token and injects its claims into the context.
func Auth(tokens ports.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := tokens.ParseToken(strings.TrimSpace(parts[1]))
			if err != nil {
				metrics.TokenValidationFailuresTotal.Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// Claims returns the claims stored by Auth, or nil.
func Claims(c echo.Context) *ports.TokenClaims {
	claims, _ := c.Get(claimsKey).(*ports.TokenClaims)
	return claims
}
