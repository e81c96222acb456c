package server

import (
	"github.com/OFFIS-RIT/factgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/factgraph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, app *middleware.App) {
	e.GET("/health", routes.HealthHandler)
	if app.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(app.Metrics.Handler()))
	}

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Query routes
	apiRoutes.POST("/query", routes.QueryHandler, middleware.RequirePermission(middleware.PermQueryExecute))
	apiRoutes.POST("/query/optimize", routes.OptimizeHandler, middleware.RequireAnyPermission(middleware.PermQueryOptimize, middleware.PermQueryExecute))
	apiRoutes.POST("/query/explain", routes.ExplainHandler, middleware.RequirePermission(middleware.PermQueryExplain))
}
