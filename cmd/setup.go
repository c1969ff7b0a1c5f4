package main

import (
	"context"
	"os"

	"github.com/desertthunder/tunepull/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when absent, then initializes
// the history database and runs migrations. With --rollback the newest migration is
// reverted instead.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Config written to %s\n", configPath)
	}

	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", cfg.Database.Path)
	db, err := r.openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		return r.writePlain("✓ Rolled back the latest migration in %s\n", cfg.Database.Path)
	}

	r.writePlain("✓ Database ready at %s\n", cfg.Database.Path)
	if cfg.Credentials.Spotify.ClientID == "" {
		r.writePlain("Next: set credentials.spotify in %s or export SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET\n", configPath)
	}
	return nil
}
