package routes

import (
	"net/http"
	"strings"

	"github.com/OFFIS-RIT/graphrag/internal/server/middleware"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"

	"github.com/labstack/echo/v4"
)

type queryBody struct {
	Question string `json:"question" validate:"required"`
}

func QueryHandler(c echo.Context) error {
	ctx := c.(*middleware.AppContext)

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, detail("Invalid request body"))
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, detail(err.Error()))
	}
	if strings.TrimSpace(data.Question) == "" {
		return c.JSON(http.StatusBadRequest, detail("question must not be empty"))
	}

	answer, err := ctx.App.Query.Ask(c.Request().Context(), data.Question)
	if err != nil {
		logger.Error("[Server] query failed", "err", err)
		return c.JSON(http.StatusInternalServerError, detail(err.Error()))
	}

	return c.JSON(http.StatusOK, answer)
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}
