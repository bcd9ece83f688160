package account

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthhub/api/internal/domain/profile"
	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
	"github.com/healthhub/api/internal/platform/store/memstore"
)

type fixture struct {
	gotrue  *fakeGoTrue
	db      *memstore.Store
	revoked *auth.Revocations
	svc     *Service
}

func newFixture(t *testing.T, allowAdmin bool) *fixture {
	t.Helper()
	f, srv := newFakeGoTrue(t)
	db := memstore.New()
	revoked := auth.NewRevocations(0)
	t.Cleanup(revoked.Close)
	profiles := profile.NewService(profile.NewProfileRepo(db))
	svc := NewService(NewGoTrueClient(srv.URL, "anon-key", nil), profiles, revoked, allowAdmin)
	return &fixture{gotrue: f, db: db, revoked: revoked, svc: svc}
}

func TestRegister_CreatesProfile(t *testing.T) {
	f := newFixture(t, false)
	out, err := f.svc.Register(context.Background(), RegisterRequest{Email: "a@example.com", Password: "pw", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "registration successful", out.Message)
	require.NotNil(t, out.Session)

	got, err := profile.NewService(profile.NewProfileRepo(f.db)).GetProfile(context.Background(), out.User.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, auth.RolePatient, got.Role)
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    RegisterRequest
		kind   apperr.Kind
		reason string
	}{
		{"missing name", RegisterRequest{Email: "a@example.com", Password: "pw"}, apperr.KindInvalidInput, "email, password, and name are required"},
		{"bad role", RegisterRequest{Email: "a@example.com", Password: "pw", Name: "A", Role: "nurse"}, apperr.KindInvalidInput, "invalid role"},
		{"admin disabled", RegisterRequest{Email: "a@example.com", Password: "pw", Name: "A", Role: auth.RoleAdmin}, apperr.KindForbidden, "admin sign-up is disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			_, err := f.svc.Register(context.Background(), tt.req)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae), "got %v", err)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.reason, ae.Reason)
			assert.Zero(t, f.gotrue.userCount(), "auth service must not be called")
		})
	}
}

func TestRegister_AdminAllowed(t *testing.T) {
	f := newFixture(t, true)
	out, err := f.svc.Register(context.Background(), RegisterRequest{Email: "root@example.com", Password: "pw", Name: "Root", Role: auth.RoleAdmin})
	require.NoError(t, err)
	role, err := profile.NewService(profile.NewProfileRepo(f.db)).RoleOf(context.Background(), out.User.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, role)
}

func TestRegister_DuplicateSurfacesAuthMessage(t *testing.T) {
	f := newFixture(t, false)
	req := RegisterRequest{Email: "a@example.com", Password: "pw", Name: "Ann"}
	_, err := f.svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), req)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindInvalidInput, ae.Kind)
	assert.Equal(t, "User already registered", ae.Reason)
}

func TestRegister_ProfileFailure(t *testing.T) {
	f := newFixture(t, false)
	f.db.FailOn(memstore.OpInsert, profile.Table, errors.New("boom"))
	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "a@example.com", Password: "pw", Name: "Ann"})
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
}

func TestRegister_AuthServiceDown(t *testing.T) {
	f := newFixture(t, false)
	f.gotrue.fail(http.StatusBadGateway)
	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "a@example.com", Password: "pw", Name: "Ann"})
	assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))
}

func TestLogin(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "pw", Name: "Ann"})
	require.NoError(t, err)

	out, err := f.svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NotNil(t, out.Profile)
	assert.Equal(t, "Ann", out.Profile.Name)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "bad"})
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindUnauthorized, ae.Kind)
	assert.Equal(t, "Invalid login credentials", ae.Reason)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "a@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestLogin_WithoutProfile(t *testing.T) {
	f := newFixture(t, false)
	f.gotrue.addUser("orphan@example.com", "pw")
	out, err := f.svc.Login(context.Background(), LoginRequest{Email: "orphan@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Nil(t, out.Profile)
}

func signed(t *testing.T, key []byte, sub, session string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		SessionID: session,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newFixture(t, false)
	key := []byte("test-secret")
	tok := signed(t, key, "u1", "sess-9")

	e := echo.New()
	e.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: key, Revoked: f.revoked}))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	ping := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusNoContent, ping())

	require.NoError(t, f.svc.Logout(context.Background(), tok))
	assert.True(t, f.revoked.IsRevoked("sess-9"))
	assert.Equal(t, []string{"Bearer " + tok}, f.gotrue.logouts())
	assert.Equal(t, http.StatusUnauthorized, ping())
}

func TestLogout_UpstreamFailureStillRevokes(t *testing.T) {
	f := newFixture(t, false)
	f.gotrue.fail(http.StatusInternalServerError)
	tok := signed(t, []byte("k"), "u1", "sess-1")
	require.NoError(t, f.svc.Logout(context.Background(), tok))
	assert.True(t, f.revoked.IsRevoked("sess-1"))
}

func TestLogout_NoToken(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.svc.Logout(context.Background(), ""))
	assert.Zero(t, f.revoked.Count())
}

func TestMe(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.Me(context.Background(), auth.Principal{})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	out, err := f.svc.Me(context.Background(), auth.Principal{ID: "nobody", Email: "n@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "n@example.com", out.User.Email)
	assert.Nil(t, out.Profile)
}
