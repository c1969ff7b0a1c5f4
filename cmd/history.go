package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/tunepull/internal/ledger"
	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/repositories"
	"github.com/desertthunder/tunepull/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// History prints recent acquisition outcomes.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return fmt.Errorf("%w: database.enabled is false", shared.ErrInvalidConfig)
	}

	db, err := r.openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := repositories.NewHistoryRepository(db)

	var rows []*models.Acquisition
	recent := false
	switch {
	case cmd.String("id") != "":
		var a *models.Acquisition
		if a, err = repo.Get(ctx, cmd.String("id")); err == nil {
			rows = []*models.Acquisition{a}
		}
	case cmd.String("run") != "":
		rows, err = repo.ByRun(ctx, cmd.String("run"))
	case cmd.String("track") != "":
		rows, err = repo.ByTrack(ctx, cmd.String("track"))
	default:
		recent = true
		rows, err = repo.Recent(ctx, cmd.Int("limit"))
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}
	if len(rows) == 0 {
		return r.writePlain("No history yet.\n")
	}

	table := make([][]string, 0, len(rows))
	for _, a := range rows {
		table = append(table, []string{
			humanize.Time(a.CreatedAt),
			shortID(a.RunID),
			a.TrackKey,
			string(a.Status),
			a.Error,
		})
	}
	r.writePlain("%s\n", renderTable([]string{"When", "Run", "Track", "Status", "Error"}, table, nil))
	if !recent {
		return nil
	}

	counts, err := repo.StatusCounts(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", renderTable([]string{"Status", "Total"}, totalsRows(counts), []columnAlignment{alignLeft, alignRight}))
}

// totalsRows orders per-status counts for display, skipping statuses never seen.
func totalsRows(counts map[models.Status]int) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, s := range models.Statuses {
		if n, ok := counts[s]; ok {
			rows = append(rows, []string{string(s), humanize.Comma(int64(n))})
		}
	}
	return rows
}

// LedgerList prints every key in the ledger, in recording order.
func (r *Runner) LedgerList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	led, err := ledger.Load(cfg.Download.LedgerPath)
	if err != nil {
		return err
	}

	keys := led.Keys()
	for _, k := range keys {
		r.writePlain("%s\n", k)
	}
	r.logger.Info("ledger", "path", led.Path(), "tracks", len(keys))
	return nil
}

// LedgerForget removes a key so the track is fetched again on the next run.
func (r *Runner) LedgerForget(ctx context.Context, cmd *cli.Command) error {
	key := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if key == "" {
		return fmt.Errorf("%w: track key is required", shared.ErrMissingArgument)
	}

	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	led, err := ledger.Load(cfg.Download.LedgerPath)
	if err != nil {
		return err
	}

	removed, err := led.Forget(key)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %q is not in the ledger", shared.ErrInvalidArgument, key)
	}
	return r.writePlain("✓ Forgot %s\n", key)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
