package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/home-telemetry/netatmo-collector/internal/api/http"
	"github.com/home-telemetry/netatmo-collector/internal/collector"
	"github.com/home-telemetry/netatmo-collector/internal/config"
	"github.com/home-telemetry/netatmo-collector/internal/logging"
	"github.com/home-telemetry/netatmo-collector/internal/netatmo"
	"github.com/home-telemetry/netatmo-collector/internal/readings"
	"github.com/home-telemetry/netatmo-collector/internal/secrets"
	"github.com/home-telemetry/netatmo-collector/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(log)

	// Open the reading store and ensure the schema.
	db, err := store.Open(store.Options{
		DSN:             cfg.SQLiteDSN,
		Path:            cfg.SQLitePath,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo, err := store.NewRepository(db)
	if err != nil {
		log.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}

	if cfg.Mock {
		log.Info("mocking enabled, will not collect data from device")
	} else {
		// Missing credentials are the one fatal data-path condition: there is
		// nothing to collect without them.
		creds, err := loadCredentials(secrets.EnvStore{Environment: cfg.Environment})
		if err != nil {
			log.Error("failed to load station credentials", "error", err)
			os.Exit(1)
		}

		httpClient := &http.Client{Timeout: 30 * time.Second}
		client := netatmo.NewClient(httpClient, creds)

		normalizer := readings.NewNormalizer(readings.DefaultRules(), cfg.OnMissingField, cfg.Environment, log)
		service := collector.NewService(client, normalizer, repo, log)

		sched := collector.NewScheduler(cfg.PollInterval, service.Collect, log)
		if err := sched.Start(); err != nil {
			log.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "netatmo-collector",
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
			"service": "netatmo-collector",
		})
	})

	httpapi.RegisterRoutes(app, repo, log)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

// loadCredentials pulls the four Netatmo credential strings from the secret store.
func loadCredentials(s secrets.Store) (netatmo.Credentials, error) {
	var creds netatmo.Credentials
	var err error

	if creds.ClientID, err = s.GetSecret("NETATMO_CLIENT_ID"); err != nil {
		return netatmo.Credentials{}, err
	}
	if creds.ClientSecret, err = s.GetSecret("NETATMO_CLIENT_SECRET"); err != nil {
		return netatmo.Credentials{}, err
	}
	if creds.Username, err = s.GetSecret("NETATMO_USERNAME"); err != nil {
		return netatmo.Credentials{}, err
	}
	if creds.Password, err = s.GetSecret("NETATMO_PASSWORD"); err != nil {
		return netatmo.Credentials{}, err
	}

	return creds, nil
}
