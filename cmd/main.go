package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/aerox/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := os.Getenv("AEROX_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	config.ApplyEnv()
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "aerox",
		Usage:    "Control Spotify playback from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	runner.Close()
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrUnauthorized):
		fmt.Fprintf(os.Stderr, "%v\nrun `aerox auth login` to sign in\n", err)
		os.Exit(1)
	case errors.Is(err, shared.ErrNotImplemented):
		logger.Warn("not implemented")
		os.Exit(0)
	default:
		logger.Fatalf("application error: %v", err)
	}
}
