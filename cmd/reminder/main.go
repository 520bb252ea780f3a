package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"tasknotify/internal/app"
	"tasknotify/internal/bootstrap"
	"tasknotify/internal/config"
	"tasknotify/internal/logging"
)

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(handleLambda)
	} else {
		if err := runLocal(); err != nil {
			os.Exit(1)
		}
	}
}

func handleLambda(ctx context.Context) (app.Stats, error) {
	return run(ctx)
}

func runLocal() error {
	logger := logging.New(logging.DefaultConfig())

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("starting reminder worker in local loop mode",
		"interval", cfg.Worker.Interval.String(),
		"window", cfg.Worker.ReminderWindow.String(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(cfg.Worker.Interval)
	defer ticker.Stop()

	if _, err := run(ctx); err != nil {
		// retried on the next tick
		logger.Error("initial reminder run failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if _, err := run(ctx); err != nil {
				logger.Error("reminder run failed", "error", err)
			}
		case <-ctx.Done():
			logger.Info("shutting down reminder worker", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

func run(ctx context.Context) (app.Stats, error) {
	logger := logging.New(logging.DefaultConfig())

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return app.Stats{}, err
	}

	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return app.Stats{}, err
	}
	defer components.Close()

	application := app.New(app.Options{
		Config:   cfg,
		Logger:   logger,
		Scanner:  components.Store,
		Reminder: components.Tasks,
		Lock:     components.Store,
	})

	return application.Run(ctx)
}
