package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/graphrag/internal/queue"
	"github.com/OFFIS-RIT/graphrag/internal/server/middleware"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"

	"github.com/labstack/echo/v4"
)

type ingestBody struct {
	Paths []string `json:"paths" validate:"required,min=1,dive,required"`
}

type ingestResponse struct {
	Queued int `json:"queued"`
}

func IngestHandler(c echo.Context) error {
	ctx := c.(*middleware.AppContext)
	if ctx.App.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, detail("Ingest queue is not configured"))
	}

	data := new(ingestBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, detail("Invalid request body"))
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, detail(err.Error()))
	}

	if err := queue.PublishIngest(c.Request().Context(), ctx.App.Queue, data.Paths...); err != nil {
		logger.Error("[Server] failed to enqueue ingest jobs", "err", err)
		return c.JSON(http.StatusInternalServerError, detail(err.Error()))
	}

	return c.JSON(http.StatusAccepted, ingestResponse{Queued: len(data.Paths)})
}
