package middleware

import (
	"github.com/OFFIS-RIT/graphrag/internal/queue"
	"github.com/OFFIS-RIT/graphrag/pkg/query"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// App holds the collaborators shared by all requests. Queue and KeyFunc
// are optional.
type App struct {
	Query        *query.GraphQueryClient
	Queue        queue.Publisher
	KeyFunc      jwt.Keyfunc
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
