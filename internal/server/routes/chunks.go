package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/graphrag/internal/server/middleware"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetChunkContextHandler returns a chunk together with its neighbours in the
// NEXT chain.
func GetChunkContextHandler(c echo.Context) error {
	ctx := c.(*middleware.AppContext)
	id := c.Param("id")

	window, err := ctx.App.Query.Retriever().ContextWindow(c.Request().Context(), id)
	if err != nil {
		logger.Error("[Server] failed to load context window", "chunk", id, "err", err)
		return c.JSON(http.StatusInternalServerError, detail(err.Error()))
	}
	if window == nil {
		return c.JSON(http.StatusNotFound, detail("Chunk not found"))
	}

	return c.JSON(http.StatusOK, window)
}
