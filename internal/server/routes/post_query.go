package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/factgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/query"

	"github.com/labstack/echo/v4"
)

func bindQuery(c echo.Context) (*query.GraphQuery, string, error) {
	data := new(query.Request)
	if err := c.Bind(data); err != nil {
		return nil, "", err
	}
	if err := c.Validate(data); err != nil {
		return nil, "", err
	}
	q, err := data.Build()
	if err != nil {
		return nil, "", err
	}
	return q, data.Collection, nil
}

// QueryHandler evaluates a graph query and returns one row per document and
// consistent variable binding.
func QueryHandler(c echo.Context) error {
	q, collection, err := bindQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Message: "Invalid request body: " + err.Error(),
		})
	}

	app := c.(*middleware.AppContext).App
	resp, err := app.Search.Search(c.Request().Context(), q, collection)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("[Routes][Query] Search failed", "err", err)
		}
		return c.JSON(status, errorResponse{Message: msg})
	}

	return c.JSON(http.StatusOK, resp)
}

// OptimizeHandler returns the query as the engine would evaluate it.
func OptimizeHandler(c echo.Context) error {
	type optimizeResponse struct {
		Query         *query.GraphQuery `json:"query,omitempty"`
		Unsatisfiable bool              `json:"unsatisfiable"`
	}

	q, _, err := bindQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Message: "Invalid request body: " + err.Error(),
		})
	}

	app := c.(*middleware.AppContext).App
	optimized, err := app.Search.Optimize(q)
	if err != nil {
		return c.JSON(http.StatusOK, optimizeResponse{Unsatisfiable: true})
	}
	return c.JSON(http.StatusOK, optimizeResponse{Query: optimized})
}
