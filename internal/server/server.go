package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/graphrag/internal/app"
	"github.com/OFFIS-RIT/graphrag/internal/queue"
	mid "github.com/OFFIS-RIT/graphrag/internal/server/middleware"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New returns an echo instance with all middleware and routes registered.
func New(a *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(a))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)
	return e
}

// Init serves a until ctx is cancelled and then shuts the server down with a
// ten second deadline. pub may be nil, in which case POST /ingest answers
// 503.
func Init(ctx context.Context, a *app.App, pub queue.Publisher) error {
	mApp := &mid.App{
		Query:        a.Query,
		Queue:        pub,
		MasterAPIKey: a.Config.MasterAPIKey,
	}
	if a.Config.AuthURL != "" {
		jwksUrl := a.Config.AuthURL + "/jwks"
		k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksUrl})
		if err != nil {
			return err
		}
		mApp.KeyFunc = k.Keyfunc
	}

	e := New(mApp)

	errCh := make(chan error, 1)
	go func() {
		port := a.Config.Port
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
		return err
	}
	return nil
}
