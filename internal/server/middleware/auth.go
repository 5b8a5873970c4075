package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Unauthorized"})
}

// AuthMiddleware requires a bearer token matching the master API key or a
// JWT verifiable with the configured key set. Without either, requests pass
// unauthenticated.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		app := c.(*AppContext).App
		if app.MasterAPIKey == "" && app.KeyFunc == nil {
			return next(c)
		}

		authHeader := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return unauthorized(c)
		}

		// Master API Key bypass
		if app.MasterAPIKey != "" && token == app.MasterAPIKey {
			return next(c)
		}

		if app.KeyFunc == nil {
			return unauthorized(c)
		}
		parsed, err := jwt.Parse(token, app.KeyFunc)
		if err != nil || !parsed.Valid {
			return unauthorized(c)
		}

		return next(c)
	}
}
