package doctor

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
)

type Handler struct {
	svc   *Service
	roles auth.RoleResolver
}

func NewHandler(svc *Service, roles auth.RoleResolver) *Handler {
	return &Handler{svc: svc, roles: roles}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/doctors")
	g.GET("", h.ListDoctors)
	g.GET("/:id", h.GetDoctor)

	admin := g.Group("", auth.RequireAdmin(h.roles))
	admin.POST("", h.CreateDoctor)
	admin.PUT("/:id", h.UpdateDoctor)
	admin.DELETE("/:id", h.DeleteDoctor)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	params := SearchParams{
		Specialty: c.QueryParam("specialty"),
		Hospital:  c.QueryParam("hospital"),
	}
	items, err := h.svc.SearchDoctors(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	d, err := h.svc.GetDoctor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("invalid request body")
	}
	d, err := h.svc.CreateDoctor(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("invalid request body")
	}
	d, err := h.svc.UpdateDoctor(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	if err := h.svc.DeleteDoctor(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "doctor deleted successfully"})
}
