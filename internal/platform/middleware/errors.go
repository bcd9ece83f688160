package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthhub/api/internal/platform/apperr"
)

// ErrorHandler renders every error as {"error": reason}. Classified errors
// add their details; causes are logged, never sent.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	logger := zerolog.Ctx(c.Request().Context())

	status, body := renderError(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.Error().Err(err).Msg("write error response")
	}
}

func renderError(err error) (int, map[string]any) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body := make(map[string]any, len(ae.Details)+1)
		for k, v := range ae.Details {
			body[k] = v
		}
		body["error"] = ae.Reason
		return ae.Kind.Status(), body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if s, ok := he.Message.(string); ok {
			return he.Code, map[string]any{"error": s}
		}
		return he.Code, map[string]any{"error": fmt.Sprint(he.Message)}
	}

	return http.StatusInternalServerError, map[string]any{"error": "internal server error"}
}
