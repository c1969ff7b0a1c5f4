package main

import (
	"context"

	"github.com/desertthunder/tunepull/internal/ledger"
	"github.com/desertthunder/tunepull/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP service until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.Int("port")
	}

	p, err := r.buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	var persisted *ledger.FileLedger
	if cfg.Server.PersistLedger {
		if persisted, err = ledger.Load(cfg.Download.LedgerPath); err != nil {
			return err
		}
		p.engine.Fetcher().Claim(persisted.Keys()...)
	}

	srv := server.New(cfg.Server, p.engine, persisted, cfg.Download.Retries, r.logger)
	return srv.ListenAndServe(ctx)
}
