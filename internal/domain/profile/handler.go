package profile

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
	g := api.Group("/users")
	g.GET("/me", h.GetMe)
	g.PUT("/me", h.UpdateMe)
}

func (h *Handler) GetMe(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	prof, err := h.svc.GetProfile(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	if prof == nil {
		return apperr.NotFound("profile not found")
	}
	return c.JSON(http.StatusOK, prof)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("invalid request body")
	}
	prof, err := h.svc.UpdateName(c.Request().Context(), p.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prof)
}
