package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/factgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/factgraph/pkg/explain"
	"github.com/OFFIS-RIT/factgraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ExplainHandler resolves provenance ids into extractions and sentences.
func ExplainHandler(c echo.Context) error {
	type explainBody struct {
		ProvenanceIDs []int64 `json:"provenance_ids" validate:"required,min=1,max=1000"`
	}

	type explainResponse struct {
		Message      string                `json:"message,omitempty"`
		Explanations []explain.Explanation `json:"explanations"`
	}

	data := new(explainBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, explainResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, explainResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	explanations, err := app.Explain.Explain(c.Request().Context(), data.ProvenanceIDs)
	if err != nil {
		status, msg := statusFor(err)
		logger.Error("[Routes][Explain] Failed to explain provenance", "err", err)
		return c.JSON(status, explainResponse{Message: msg})
	}

	return c.JSON(http.StatusOK, explainResponse{Explanations: explanations})
}
