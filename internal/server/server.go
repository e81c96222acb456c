package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "github.com/OFFIS-RIT/factgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/factgraph/pkg/logger"

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

// NewEcho builds the HTTP server around app.
func NewEcho(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))

	RegisterRoutes(e, app)
	return e
}

func Init() {
	cfg := ConfigFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, closeApp, err := NewApp(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialise query service", "err", err)
	}
	defer closeApp()

	if cfg.AuthURL != "" {
		k, err := keyfunc.NewDefault([]string{cfg.AuthURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Key = k
	} else {
		logger.Warn("AUTH_URL not set, only the master API key is accepted")
	}

	e := NewEcho(app)

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
