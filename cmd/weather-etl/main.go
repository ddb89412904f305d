package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-etl/internal/api/http"
	"github.com/i474232898/weather-etl/internal/config"
	"github.com/i474232898/weather-etl/internal/scheduler"
	"github.com/i474232898/weather-etl/internal/store"
	"github.com/i474232898/weather-etl/internal/weather"
	"github.com/i474232898/weather-etl/internal/weather/providers"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "run without writing to the database")
	interval := flag.Int("interval", 0, "run continuously every N seconds (0 = run once)")
	flag.Parse()

	// Load configuration and the site catalog.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sites, err := config.LoadSites(cfg.SitesFile, cfg.GeocoderAPIKey)
	if err != nil {
		log.Fatalf("failed to load site catalog: %v", err)
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.DB, *dryRun)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if err := st.CreateSchema(ctx); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
	}

	// The archive source runs in batch mode and archives raw payloads; the
	// forecast source streams fixed-size batches as records are normalized.
	var source weather.Source
	batchSize := 0
	keepRaw := false
	switch cfg.SourceName {
	case config.SourceArchive:
		source = providers.NewArchiveSource(httpClient, cfg.ArchiveBaseURL, cfg.APIKey,
			cfg.ArchiveStartDate, cfg.ArchiveEndDate, cfg.RetryPolicy())
		keepRaw = true
	default:
		source = providers.NewForecastSource(httpClient, cfg.ForecastBaseURL, cfg.RetryPolicy())
		batchSize = cfg.StreamingBatchSize
	}

	service := weather.NewService(source, st, batchSize, keepRaw)

	newRunner := func() *scheduler.Runner {
		return scheduler.NewRunner(sites, service, cfg.MaxWorkers, cfg.MaxReportErrors, *dryRun)
	}

	log.Printf("starting ETL - source: %s, dry-run: %v", source.Name(), *dryRun)

	// One-shot mode: a single run, then exit.
	if *interval <= 0 {
		report := newRunner().Run(ctx)
		report.LogSummary()
		return
	}

	// Continuous mode: periodic runs plus a status server.
	driver := scheduler.NewDriver(time.Duration(*interval)*time.Second, newRunner)
	if err := driver.Start(); err != nil {
		log.Fatalf("failed to start driver: %v", err)
	}
	defer driver.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-etl",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-etl",
		})
	})

	httpapi.RegisterRoutes(app, driver, st)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination; interruption takes effect between cycles.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
