package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/upstac/upstac/internal/config"
	"github.com/upstac/upstac/internal/domain/testrequest"
	"github.com/upstac/upstac/internal/platform/auth"
	"github.com/upstac/upstac/internal/platform/middleware"
	"github.com/upstac/upstac/internal/platform/openapi"
)

const version = "0.1.0"

type server struct {
	cfg    *config.Config
	logger zerolog.Logger
	echo   *echo.Echo
}

func newServer(cfg *config.Config, logger zerolog.Logger, st *store) (*server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if cfg.MetricsEnabled {
		e.Use(middleware.Metrics(middleware.NewHTTPMetrics(reg)))
	}
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader, auth.DevUserHeader, auth.DevRoleHeader},
		ExposeHeaders: []string{"ETag", "Link", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		e.Use(auth.DevAuthMiddleware())
	} else {
		jwtCfg := auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}
		if err := auth.DiscoverJWKS(&jwtCfg); err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.Use(middleware.AccessLog(logger))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"storage": st.driver,
		})
	})
	e.GET("/health/db", st.health)

	var workflowMetrics *testrequest.Metrics
	if cfg.MetricsEnabled {
		workflowMetrics = testrequest.NewMetrics(reg)
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	apiV1 := e.Group("/api/v1")
	limits := middleware.DefaultRateLimitConfig()
	limits.RequestsPerSecond = cfg.RateLimitRPS
	limits.BurstSize = cfg.RateLimitBurst
	apiV1.Use(middleware.RateLimit(limits))

	svc, query := newWorkflow(st, logger, workflowMetrics)
	testrequest.NewHandler(svc, query).RegisterRoutes(apiV1)

	docs := openapi.NewGenerator("UPSTAC test request API", version)
	docs.Describe(testrequest.APIDocs())
	docs.AddSchemas(testrequest.APISchemas())
	docs.AddRoutes(e.Routes(), "/api/v1/")
	docs.RegisterRoutes(e)

	return &server{cfg: cfg, logger: logger, echo: e}, nil
}

// run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then drains
// in-flight requests.
func (s *server) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + s.cfg.Port
		s.logger.Info().Str("addr", addr).Str("env", s.cfg.Env).Str("auth_mode", s.cfg.ResolvedAuthMode()).Msg("starting server")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
