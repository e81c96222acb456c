package middleware

import (
	"context"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/factgraph/internal/metrics"
	"github.com/OFFIS-RIT/factgraph/pkg/explain"
	"github.com/OFFIS-RIT/factgraph/pkg/search"
)

type AppUser struct {
	UserID      int32
	Role        string
	Permissions []string
}

// Pinger reports whether the fact store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Search         *search.Service
	Explain        *explain.Builder
	Metrics        *metrics.Collector
	Store          Pinger
	Key            keyfunc.Keyfunc
	MasterAPIKey   string
	MasterUserID   int32
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
