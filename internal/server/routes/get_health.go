package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/factgraph/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports whether the fact store answers a ping.
func HealthHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	if app.Store == nil {
		return c.String(http.StatusOK, "OK")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := app.Store.Ping(ctx); err != nil {
		return c.String(http.StatusServiceUnavailable, "fact store unavailable")
	}
	return c.String(http.StatusOK, "OK")
}
