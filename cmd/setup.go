package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/aerox/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes config.toml from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if !cmd.Bool("force") {
			return fmt.Errorf("%w: config file already exists at %s (use --force to overwrite)", shared.ErrInvalidArgument, path)
		}
		if err := shared.SaveConfig(path, shared.DefaultConfig()); err != nil {
			return err
		}
		r.logger.Info("config file overwritten", "path", path)
	} else if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("✓ Wrote %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret, or exchange.url\n")
	r.writePlain("2. Run 'aerox auth login' to sign in\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.writePlain("✓ Database ready at %s (%d migrations applied)\n", r.config.Database.Path, applied)
	return nil
}
