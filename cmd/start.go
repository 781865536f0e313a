package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"manhole-tracker/core/loader"
	"manhole-tracker/core/logger"
	"manhole-tracker/core/middleware/auth"
	"manhole-tracker/core/middleware/rayid"
	"manhole-tracker/core/storage"

	"manhole-tracker/feature/integrity"
	"manhole-tracker/feature/tracker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "manhole-tracker/docs/swagger"
)

// @title Manhole Tracker API
// @version 1.0
// @description Read-only API over the reconciled manhole dataset and its scan history.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the read-only HTTP API",
	Long:  `Starts the HTTP server that serves the dataset, the run history and integrity reports.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logg, err := setup()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		db, runs := connectHistory(cfg, logg)

		var store storage.Client
		if client, err := storage.NewClient(cfg.Storage); err != nil {
			logg.Warn("Failed to create storage client", zap.Error(err))
		} else {
			store = client
		}

		svc, err := newTrackerService(cfg, logg, runs, nil)
		if err != nil {
			logg.Fatal("Failed to create tracker service", zap.Error(err))
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		})

		mgr := loader.NewManager(logg)
		mgr.Register(tracker.NewFeature(svc))
		mgr.Register(integrity.NewFeature(cfg.Dataset.OutputPath, store, cfg.Storage.Bucket, db, logg))

		// RayID first so every later log line carries it
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger stays public
		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))
		if !cfg.Server.AuthEnabled() {
			logg.Warn("API key not set, the API is unauthenticated")
		}

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(cfg.Server.Addr()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.ShutdownWithTimeout(time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second)
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
