package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"partnerguide/config"
	"partnerguide/internal/cache"
	"partnerguide/internal/geocode"
	"partnerguide/internal/guide"
	"partnerguide/internal/llm"
	"partnerguide/internal/places"
	"partnerguide/internal/registry"
	"partnerguide/internal/telemetry"
)

// Serve wires the capabilities into an orchestrator and serves the HTTP API.
func Serve(cfg *config.Config) error {
	if err := cfg.Pipeline.Validate(); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	orch, strategist, err := BuildPipeline(cfg)
	if err != nil {
		return err
	}

	h := &GuideHandler{manager: NewRunManager(orch), strategist: strategist}
	h.Register(e.Group("/api"))

	baseLogger.Printf("listening on %s", cfg.Server.Address)
	return e.Start(cfg.Server.Address)
}

// BuildPipeline wires the configured capabilities into an orchestrator.
// Shared with the one-shot CLI command.
func BuildPipeline(cfg *config.Config) (*guide.Orchestrator, *guide.Strategist, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	resultCache, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	tele := telemetry.NewTelemetry(cfg.Telemetry)

	geocoder := geocode.New(cfg.Geocoding)
	searcher := places.New(cfg.Places)
	lookup := registry.New(cfg.Registry)

	strategist := guide.NewStrategist(cfg, provider)
	locator := guide.NewLocator(cfg, searcher, resultCache)
	verifier := guide.NewVerifier(cfg.Verifier, lookup, tele)
	enricher := guide.NewEnricher(cfg, provider)
	orch := guide.NewOrchestrator(cfg, geocoder, strategist, locator, verifier, enricher, tele)
	return orch, strategist, nil
}
