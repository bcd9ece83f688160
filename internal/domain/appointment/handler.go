package appointment

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments")
	g.POST("", h.Book)
	g.GET("/user/:userId", h.ListForPatient)
	g.DELETE("/:id", h.Cancel)
}

func (h *Handler) Book(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("invalid request body")
	}
	a, err := h.svc.Book(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	items, err := h.svc.ListForPatient(c.Request().Context(), p, c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Cancel(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	if err := h.svc.Cancel(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "appointment deleted successfully"})
}
