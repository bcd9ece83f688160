package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	principalKey   contextKey = "principal"
	accessTokenKey contextKey = "access_token"
)

// DevUserID is the principal injected by DevAuthMiddleware.
const DevUserID = "00000000-0000-4000-8000-00000000d0e5"

// DevUserHeader lets local clients act as another user in dev mode.
const DevUserHeader = "X-Dev-User-ID"

// Principal is the authenticated caller. The application role is not carried
// in the token; it is resolved from the caller's profile when needed.
type Principal struct {
	ID    string
	Email string
}

// Claims are the fields read from access tokens issued by the auth service.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
}

// RevocationKey is the identifier checked against the revocation list.
func (c *Claims) RevocationKey() string {
	if c.SessionID != "" {
		return c.SessionID
	}
	return c.ID
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey is the shared HS256 secret. When empty, keys come from JWKSURL.
	SigningKey []byte
	Skipper    func(c echo.Context) bool
	// Revoked, when set, rejects tokens whose session was logged out here.
	Revoked *Revocations
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	var keyFunc jwt.Keyfunc
	if len(cfg.SigningKey) > 0 {
		keyFunc = func(t *jwt.Token) (any, error) { return cfg.SigningKey, nil }
	} else {
		keyFunc = NewJWKSCache(cfg.JWKSURL, defaultJWKSCacheTTL).Keyfunc
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "RS256", "ES256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := bearerToken(c.Request())
			if err != nil {
				return err
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				zerolog.Ctx(c.Request().Context()).Debug().Err(err).Msg("rejected access token")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if cfg.Revoked != nil && cfg.Revoked.IsRevoked(claims.RevocationKey()) {
				return echo.NewHTTPError(http.StatusUnauthorized, "session has been logged out")
			}

			ctx := WithPrincipal(c.Request().Context(), Principal{ID: claims.Subject, Email: claims.Email})
			ctx = WithAccessToken(ctx, tokenStr)
			c.Set("user_id", claims.Subject)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware authenticates every request as DevUserID, or as the id
// in DevUserHeader when present. Development only.
func DevAuthMiddleware(skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}
			id := c.Request().Header.Get(DevUserHeader)
			if id == "" {
				id = DevUserID
			}
			ctx := WithPrincipal(c.Request().Context(), Principal{ID: id, Email: "dev@healthhub.local"})
			if tok, err := bearerToken(c.Request()); err == nil {
				ctx = WithAccessToken(ctx, tok)
			}
			c.Set("user_id", id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.ID != ""
}

func UserIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.ID
}

func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessTokenFromContext returns the raw bearer token of the request.
func AccessTokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(accessTokenKey).(string)
	return tok
}

// ParseUnverified reads the claims of a token that already passed
// JWTMiddleware, for logout bookkeeping.
func ParseUnverified(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
