// Package api exposes the attribution control loop over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tphakala/speciesnet-go/internal/analysis"
	"github.com/tphakala/speciesnet-go/internal/conf"
	"github.com/tphakala/speciesnet-go/internal/logging"
)

// AnalysisRunner is the trigger surface into the batch control loop.
type AnalysisRunner interface {
	RunBatch(ctx context.Context, batchSize int) analysis.Result
	RunContinuous(ctx context.Context, batchSize int) analysis.Result
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	runner   AnalysisRunner
	settings *conf.Settings
	logger   *slog.Logger
}

// New creates the API controller and registers its routes.
func New(settings *conf.Settings, runner AnalysisRunner) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	logger := logging.ForService("api")
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		Echo:     e,
		runner:   runner,
		settings: settings,
		logger:   logger,
	}

	e.GET("/api/v1/run-analysis", c.RunAnalysis)
	e.GET("/api/v1/healthz", c.Health)

	return c
}

// Start begins listening on the configured port. It blocks until the server
// stops.
func (c *Controller) Start() error {
	return c.Echo.Start(":" + c.settings.HTTP.Port)
}

// Shutdown stops the HTTP server gracefully.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Echo.Shutdown(ctx)
}

// Health reports service liveness.
func (c *Controller) Health(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RunAnalysis runs bird species attribution on unattributed images.
// Query parameters: continuous (bool, process batches until none remain)
// and batch_size (int, overrides the configured default).
//
// The handler always answers with a structured result; unexpected failures
// and panics are logged and converted, never propagated raw.
func (c *Controller) RunAnalysis(ectx echo.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("Unexpected failure in run-analysis", "panic", rec)
			err = ectx.JSON(http.StatusOK, analysis.Result{
				Success: false,
				Error:   fmt.Sprint(rec),
				Message: "Failed to run analysis",
			})
		}
	}()

	continuous := false
	if v := ectx.QueryParam("continuous"); v != "" {
		parsed, parseErr := strconv.ParseBool(v)
		if parseErr != nil {
			return ectx.JSON(http.StatusBadRequest, analysis.Result{
				Success: false,
				Error:   parseErr.Error(),
				Message: "Invalid continuous parameter",
			})
		}
		continuous = parsed
	}

	batchSize := 0
	if v := ectx.QueryParam("batch_size"); v != "" {
		parsed, parseErr := strconv.Atoi(v)
		if parseErr != nil || parsed <= 0 {
			return ectx.JSON(http.StatusBadRequest, analysis.Result{
				Success: false,
				Error:   fmt.Sprintf("invalid batch_size %q", v),
				Message: "Invalid batch_size parameter",
			})
		}
		batchSize = parsed
	}

	start := time.Now()
	c.logger.Info("Run-analysis triggered", "continuous", continuous, "batch_size", batchSize)

	var result analysis.Result
	if continuous {
		result = c.runner.RunContinuous(ectx.Request().Context(), batchSize)
	} else {
		result = c.runner.RunBatch(ectx.Request().Context(), batchSize)
	}

	c.logger.Info("Run-analysis finished",
		"success", result.Success,
		"images_processed", result.ImagesProcessed,
		"attributions_created", result.AttributionsCreated,
		"duration_ms", time.Since(start).Milliseconds())

	return ectx.JSON(http.StatusOK, result)
}
