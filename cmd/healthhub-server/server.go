package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/healthhub/api/internal/config"
	"github.com/healthhub/api/internal/domain/account"
	"github.com/healthhub/api/internal/domain/appointment"
	"github.com/healthhub/api/internal/domain/doctor"
	"github.com/healthhub/api/internal/domain/order"
	"github.com/healthhub/api/internal/domain/product"
	"github.com/healthhub/api/internal/domain/profile"
	"github.com/healthhub/api/internal/domain/summary"
	"github.com/healthhub/api/internal/platform/auth"
	"github.com/healthhub/api/internal/platform/db"
	"github.com/healthhub/api/internal/platform/idempotency"
	"github.com/healthhub/api/internal/platform/middleware"
)

const summarizePath = "/api/summarize"

func newServer(cfg *config.Config, logger zerolog.Logger, d *deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware. Logger and metrics wrap recovery and the timeout
	// so panics and 504s are logged and counted.
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(d.metrics.Middleware())
	e.Use(middleware.Recovery())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", idempotency.HeaderKey},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadBodyLimit, summarizePath))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	if cfg.ResolvedAuthMode() == config.AuthModeDev {
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthJWTSecret),
			Skipper:    auth.AuthSkipper,
			Revoked:    d.revoked,
		}))
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api := e.Group("/api", middleware.RateLimit(rateLimitCfg))

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "HEALTHHUB API is running",
		})
	})
	if d.store.pinger != nil {
		e.GET("/health/db", db.HealthHandler(d.store.pinger, d.store.stats))
	}
	e.GET("/metrics", echo.WrapHandler(d.metrics.Handler()))

	client := d.store.db

	profileSvc := profile.NewService(profile.NewProfileRepo(client))
	profile.NewHandler(profileSvc).RegisterRoutes(api)

	accountSvc := account.NewService(d.authService, profileSvc, d.revoked, cfg.AllowAdminSignup)
	account.NewHandler(accountSvc).RegisterRoutes(api)

	doctorSvc := doctor.NewService(doctor.NewDoctorRepo(client))
	doctor.NewHandler(doctorSvc, profileSvc).RegisterRoutes(api)

	appointmentSvc := appointment.NewService(appointment.NewAppointmentRepo(client), doctorSvc, profileSvc)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api)

	productSvc := product.NewService(product.NewProductRepo(client))
	product.NewHandler(productSvc, profileSvc).RegisterRoutes(api)

	orderSvc := order.NewService(client, productSvc, profileSvc)
	orderSvc.SetPublisher(d.publisher)
	orderSvc.SetRecorder(d.metrics)
	orderSvc.SetCompensationTimeout(cfg.CompensationTimeout)
	var placeMW []echo.MiddlewareFunc
	if d.idempotency != nil {
		placeMW = append(placeMW, idempotency.Middleware(d.idempotency))
	}
	order.NewHandler(orderSvc).RegisterRoutes(api, placeMW...)

	summarySvc := summary.NewService(summary.NewSummaryRepo(client), d.summarizer)
	summary.NewHandler(summarySvc).RegisterRoutes(api)

	return e
}
