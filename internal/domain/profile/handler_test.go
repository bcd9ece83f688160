package profile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
)

func newTestHandler() (*Handler, *mockProfileRepo, *echo.Echo) {
	svc, repo := newTestService()
	return NewHandler(svc), repo, echo.New()
}

func asUser(req *http.Request, id string) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{ID: id}))
}

func TestGetMe_Success(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.store["u1"] = &Profile{ID: "u1", Name: "Ada", Role: "patient"}

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetMe(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var got Profile
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Name != "Ada" {
		t.Errorf("expected Ada, got %q", got.Name)
	}
}

func TestGetMe_NoProfile(t *testing.T) {
	h, _, e := newTestHandler()
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "u1")
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.GetMe(c)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetMe_Unauthenticated(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), httptest.NewRecorder())

	if err := h.GetMe(c); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestUpdateMe(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.store["u1"] = &Profile{ID: "u1", Name: "Ada", Role: "patient"}

	req := asUser(httptest.NewRequest(http.MethodPut, "/api/users/me", strings.NewReader(`{"name":"Grace"}`)), "u1")
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.UpdateMe(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.store["u1"].Name != "Grace" {
		t.Errorf("expected name Grace, got %q", repo.store["u1"].Name)
	}
}

func TestUpdateMe_MissingName(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.store["u1"] = &Profile{ID: "u1", Name: "Ada"}

	req := asUser(httptest.NewRequest(http.MethodPut, "/api/users/me", strings.NewReader(`{}`)), "u1")
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := h.UpdateMe(c); !apperr.Is(err, apperr.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
