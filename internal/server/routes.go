package server

import (
	"github.com/OFFIS-RIT/graphrag/internal/server/middleware"
	"github.com/OFFIS-RIT/graphrag/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	e.POST("/query", routes.QueryHandler, middleware.AuthMiddleware)
	e.POST("/ingest", routes.IngestHandler, middleware.AuthMiddleware)
	e.GET("/chunks/:id/context", routes.GetChunkContextHandler, middleware.AuthMiddleware)
}
