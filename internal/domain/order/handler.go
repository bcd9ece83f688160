package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
	"github.com/healthhub/api/internal/platform/validation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the order endpoints. placeMW wraps only the write
// endpoint (idempotency).
func (h *Handler) RegisterRoutes(api *echo.Group, placeMW ...echo.MiddlewareFunc) {
	g := api.Group("/orders")
	g.POST("", h.PlaceOrder, placeMW...)
	g.GET("/user/:userId", h.ListOrdersForUser)
}

func (h *Handler) PlaceOrder(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}

	req, err := decodePlaceOrder(c.Request().Body)
	if err != nil {
		return err
	}

	o, err := h.svc.PlaceOrder(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListOrdersForUser(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	orders, err := h.svc.ListOrdersForUser(c.Request().Context(), p, c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

// decodePlaceOrder reads the typed request strictly. Decoding errors map to
// the same reasons validation uses so clients see one vocabulary.
func decodePlaceOrder(body io.Reader) (PlaceOrderRequest, error) {
	var req PlaceOrderRequest
	if body == nil {
		return req, apperr.InvalidInput("products array required")
	}
	err := validation.DecodeStrict(body, &req)
	if err == nil {
		return req, nil
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return req, httpErr
	}
	if errors.Is(err, io.EOF) {
		return req, apperr.InvalidInput("products array required")
	}
	if field, ok := validation.UnknownField(err); ok {
		return req, apperr.InvalidInput("unknown field: " + field)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch {
		case typeErr.Field == "products":
			return req, apperr.InvalidInput("products array required")
		case strings.HasPrefix(typeErr.Field, "products."):
			return req, apperr.InvalidInput("invalid product_id/quantity")
		}
	}
	return req, apperr.InvalidInput("invalid request body")
}
