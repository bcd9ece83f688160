package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
	maxKeyLength   = 255
)

// Middleware runs the handler at most once per (principal, route, key).
// Completed responses are replayed verbatim, a duplicate that arrives while
// the first is still running gets 409, and 5xx outcomes release the key
// unless the error is marked committed: the write happened, so the failure
// response is kept for replay instead of letting a retry repeat it.
// Redis failures are logged and the request proceeds without protection.
func Middleware(store *Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderKey)
			if key == "" {
				return next(c)
			}
			if len(key) > maxKeyLength {
				return apperr.InvalidInput("idempotency key too long")
			}

			ctx := c.Request().Context()
			logger := zerolog.Ctx(ctx)

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return err
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			scoped := scopeKey(c, key)
			fp := fingerprint(c.Request().Method, c.Path(), body)

			rec, claimed, err := store.Claim(ctx, scoped, fp)
			if err != nil {
				logger.Warn().Err(err).Msg("idempotency store unavailable, proceeding without it")
				return next(c)
			}
			if !claimed {
				return replay(c, rec, fp)
			}

			return run(c, next, store, scoped, fp, logger)
		}
	}
}

func run(c echo.Context, next echo.HandlerFunc, store *Store, key, fp string, logger *zerolog.Logger) error {
	res := c.Response()
	capture := &captureWriter{ResponseWriter: res.Writer}
	res.Writer = capture
	defer func() { res.Writer = capture.ResponseWriter }()

	err := next(c)
	if err != nil {
		// Render here so the error response is captured and replayable.
		c.Error(err)
	}
	keep := apperr.IsCommitted(err)

	// The request context may already be cancelled; the bookkeeping must
	// still reach Redis.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
	defer cancel()

	if !res.Committed || (res.Status >= http.StatusInternalServerError && !keep) {
		if err := store.Release(ctx, key); err != nil {
			logger.Warn().Err(err).Msg("release idempotency key")
		}
		return nil
	}

	err = store.Complete(ctx, key, Record{
		Fingerprint: fp,
		StatusCode:  res.Status,
		ContentType: res.Header().Get(echo.HeaderContentType),
		Body:        capture.buf.Bytes(),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("store idempotent response")
	}
	return nil
}

func replay(c echo.Context, rec *Record, fp string) error {
	if rec.Fingerprint != fp {
		return apperr.InvalidInput("idempotency key reused with a different request")
	}
	if rec.Status != StatusDone {
		return apperr.InvalidState("request already in progress")
	}
	c.Response().Header().Set(HeaderReplayed, "true")
	contentType := rec.ContentType
	if contentType == "" {
		contentType = echo.MIMEApplicationJSONCharsetUTF8
	}
	return c.Blob(rec.StatusCode, contentType, rec.Body)
}

func scopeKey(c echo.Context, key string) string {
	owner := auth.UserIDFromContext(c.Request().Context())
	if owner == "" {
		owner = "anonymous"
	}
	return owner + ":" + c.Request().Method + ":" + c.Path() + ":" + key
}

func fingerprint(method, route string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type captureWriter struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}
