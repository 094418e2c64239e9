package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/illmade-knight/go-batch/pkg/config"
	"github.com/rs/zerolog"
)

func main() {
	// 1. Parse command-line flags
	configFile := flag.String("config", "", "YAML configuration file. Environment variables override its values.")
	seedCount := flag.Int("seed", 0, "Insert this many generated persons into the SQL source before running.")
	dryRun := flag.Bool("dry-run", false, "Log messages instead of publishing them.")
	pretty := flag.Bool("pretty", false, "Human readable console logs.")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error).")
	setup := flag.Bool("setup", false, "Create the Pub/Sub topic and subscriptions if they are missing.")
	redisAddr := flag.String("redis", "", "Redis address for run ids. Overrides REDIS_ADDR.")
	flag.Parse()

	// 2. Setup logger
	logger := newLogger(*pretty, *logLevel)

	// 3. Load configuration
	if *redisAddr != "" {
		_ = os.Setenv("REDIS_ADDR", *redisAddr)
	}
	cfg, err := config.Load(*configFile)
	if err == nil && !*dryRun {
		err = cfg.ValidatePublisher()
	}
	if err != nil {
		msg := "Failed to load configuration"
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			msg = "Invalid configuration"
		}
		logger.Error().Err(err).Msg(msg)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// 4. Assemble and run the job
	code := run(ctx, cfg, options{seed: *seedCount, dryRun: *dryRun, setup: *setup}, logger)
	stop()
	os.Exit(code)
}

func newLogger(pretty bool, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}
