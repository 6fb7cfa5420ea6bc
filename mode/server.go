package mode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/pipeline"
	"github.com/khaledhikmat/dfd-go/service/lgr"
)

const serverShutdownTimeout = 5 * time.Second

type analyzeRequest struct {
	URL            string `json:"url"`
	ForceReanalyze bool   `json:"force_reanalyze"`
}

type analyzeResponse struct {
	*model.Verdict
	Cached bool `json:"cached"`
}

// Server exposes the engine over HTTP: health, analyze and stats. Verdicts
// are cached by URL; force_reanalyze bypasses and refreshes the cache.
func Server(canxCtx context.Context, svcs pipeline.ServicesFactory, engine *pipeline.Engine) error {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})

	apiKey := svcs.CfgSvc.GetAPIKey()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"modelLoaded": engine != nil,
			"cacheSize":   svcs.CacheSvc.Len(),
		})
	})

	app.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"engine": engine.Stats(),
			"probes": engine.ProbeStats(),
		})
	})

	app.Post("/analyze", func(c *fiber.Ctx) error {
		// An empty configured key disables auth, for local runs only.
		if apiKey != "" && c.Get("X-API-Key") != apiKey {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid api key",
			})
		}

		var req analyzeRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		if req.URL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "url is required",
			})
		}

		if !req.ForceReanalyze {
			if v, ok := svcs.CacheSvc.Get(req.URL); ok {
				return c.JSON(analyzeResponse{Verdict: v, Cached: true})
			}
		} else {
			svcs.CacheSvc.Delete(req.URL)
		}

		verdict, err := engine.AnalyzeURL(c.UserContext(), req.URL)
		if err != nil {
			lgr.Logger.Error(
				"analysis failed",
				slog.String("url", req.URL),
				slog.Any("error", err),
			)
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		svcs.CacheSvc.Set(req.URL, verdict)
		return c.JSON(analyzeResponse{Verdict: verdict, Cached: false})
	})

	serverResult := make(chan error, 1)
	go func() {
		serverResult <- app.Listen(fmt.Sprintf(":%d", svcs.CfgSvc.GetServerPort()))
	}()

	lgr.Logger.Info(
		"server mode started",
		slog.Int("port", svcs.CfgSvc.GetServerPort()),
	)

	select {
	case <-canxCtx.Done():
		lgr.Logger.Info("server mode context cancelled")
		return app.ShutdownWithTimeout(serverShutdownTimeout)

	case err := <-serverResult:
		return err
	}
}
