package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
)

type errorResponse struct {
	Message string `json:"message"`
}

// statusFor maps query errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, query.ErrMalformedVariableSyntax), errors.Is(err, query.ErrMixedVariableSlot):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, query.ErrTimeout):
		return http.StatusGatewayTimeout, "Query timed out"
	case errors.Is(err, query.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Fact store unavailable"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "Request canceled"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
