package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthhub/api/internal/platform/apperr"
)

// Recovery turns a handler panic into a 500. Mount it inside Logger and the
// metrics middleware so the request is still logged and counted; the panic
// itself is logged through the request-scoped logger.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				stack := make([]byte, 4096)
				stack = stack[:runtime.Stack(stack, false)]

				zerolog.Ctx(c.Request().Context()).Error().
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", stack).
					Str("route", c.Path()).
					Msg("panic recovered")

				err = apperr.Internal("internal server error", fmt.Errorf("panic: %v", r))
			}()
			return next(c)
		}
	}
}
