package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/antenna-analyzer/cmd/analyzer/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	var configPath string
	var opts app.Options
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.BoolVar(&opts.Repeat, "repeat", false, "Repeat the scan 'repeatCount' times")
	flag.BoolVar(&opts.JSON, "json", false, "Write scan results as JSON")
	flag.Parse()

	if configPath == "" {
		logger.Error("no configuration file provided")
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	level, _ := config.Settings.Level()
	logLevel.Set(level)

	opts.Output = os.Stdout

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, opts, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
