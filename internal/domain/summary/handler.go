package summary

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
)

const reportField = "report"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/summarize")
	g.POST("", h.Summarize)
	g.GET("", h.ListSummaries)
}

func (h *Handler) Summarize(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}

	text, err := reportText(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Summarize(c.Request().Context(), p, text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) ListSummaries(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized("authentication required")
	}
	items, err := h.svc.ListForUser(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// reportText prefers an uploaded "report" file over the report_text field.
func reportText(c echo.Context) (string, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile(reportField)
		switch {
		case err == nil:
			f, err := fh.Open()
			if err != nil {
				return "", fmt.Errorf("open report upload: %w", err)
			}
			defer f.Close()
			raw, err := io.ReadAll(f)
			if err != nil {
				return "", passLimit(err)
			}
			return strings.ToValidUTF8(string(raw), "�"), nil
		case errors.Is(err, http.ErrMissingFile):
		default:
			return "", passLimit(err)
		}
	}

	var req SummarizeRequest
	if err := c.Bind(&req); err != nil {
		return "", passLimit(err)
	}
	return req.ReportText, nil
}

// passLimit keeps 413 from the body limit intact and reports anything else
// as a malformed body.
func passLimit(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
		return he
	}
	return apperr.InvalidInput("invalid request body")
}
