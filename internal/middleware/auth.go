package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const WorkspaceIDKey = "workspace_id"

// AuthMiddleware validates the Authorization bearer token (HS256) and stores
// the workspace_id claim on the request context.
func AuthMiddleware(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authorization header required")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			workspaceID, _ := claims[WorkspaceIDKey].(string)
			if workspaceID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing workspace claim")
			}

			c.Set(WorkspaceIDKey, workspaceID)
			return next(c)
		}
	}
}

// WorkspaceID returns the authenticated workspace for the request.
func WorkspaceID(c echo.Context) string {
	id, _ := c.Get(WorkspaceIDKey).(string)
	return id
}
