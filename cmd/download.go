package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/tunepull/internal/formatter"
	"github.com/desertthunder/tunepull/internal/ledger"
	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/shared"
	"github.com/desertthunder/tunepull/internal/tasks"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// Download resolves the given playlists and acquires every track not already in the ledger.
//
// Fatal conditions (bad reference, authentication, playlist fetch, corrupt ledger,
// unusable download directory) are returned; per-track failures only show up in the summary.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	refs := cmd.Args().Slice()
	if len(refs) == 0 {
		return fmt.Errorf("%w: at least one playlist URL is required", shared.ErrMissingArgument)
	}

	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("dir") {
		cfg.Download.Dir = cmd.String("dir")
	}
	if cmd.IsSet("delay-ms") {
		cfg.Download.DelayMS = cmd.Int("delay-ms")
	}
	if cmd.IsSet("retries") {
		cfg.Download.Retries = cmd.Int("retries")
	}

	format := cmd.String("format")
	if err := formatter.Supported(format); err != nil {
		return err
	}

	led, err := ledger.Load(cfg.Download.LedgerPath)
	if err != nil {
		return err
	}

	p, err := r.buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()
	p.engine.Fetcher().Claim(led.Keys()...)

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.reportProgress(progress)
	}()

	result, err := r.acquire(ctx, p.engine, refs, cmd.Int("workers"), tasks.AcquireOpts{
		Ledger:  led,
		Delay:   cfg.Download.Delay(),
		Retries: cfg.Download.Retries,
	}, progress)
	close(progress)
	<-done

	if result != nil {
		r.printSummary(result)
		if path := cmd.String("report"); path != "" {
			written, werr := formatter.WriteReport(result, format, path)
			if werr != nil {
				r.logger.Error("failed to write report", "error", werr)
			} else {
				r.writePlain("Report written to %s\n", written)
			}
		}
	}
	return err
}

func (r *Runner) acquire(ctx context.Context, engine *tasks.Engine, refs []string, workers int, opts tasks.AcquireOpts, progress chan<- tasks.ProgressUpdate) (*models.RunResult, error) {
	pl, err := engine.ResolveAll(ctx, refs, tasks.BulkOpts{NumWorkers: workers}, progress)
	if err != nil {
		return nil, err
	}
	opts.PlaylistID = pl.ID
	opts.Progress = progress
	return engine.Acquire(ctx, pl.Tracks, opts)
}

// reportProgress draws a progress bar on a terminal and prints one line per event otherwise.
func (r *Runner) reportProgress(progress <-chan tasks.ProgressUpdate) {
	f, ok := r.output.(*os.File)
	interactive := ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))

	var bar *progressbar.ProgressBar
	for update := range progress {
		if !interactive {
			switch update.Phase {
			case tasks.ResolvePlaylist, tasks.TrackDone, tasks.Pace:
				r.writePlain("%s\n", update.Message)
			}
			continue
		}

		switch update.Phase {
		case tasks.ResolvePlaylist:
			if update.Total == 0 {
				r.writePlain("%s\n", update.Message)
				continue
			}
			bar = progressbar.NewOptions(update.Total,
				progressbar.OptionSetWriter(r.output),
				progressbar.OptionSetDescription(update.Message),
				progressbar.OptionShowCount(),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionFullWidth(),
			)
		case tasks.SearchTrack, tasks.FetchTrack, tasks.Pace:
			if bar != nil {
				bar.Describe(update.Message)
			}
		case tasks.TrackDone:
			if bar != nil {
				bar.Add(1)
			}
		case tasks.RunComplete:
			if bar != nil {
				bar.Finish()
				r.writePlain("\n")
			}
		}
	}
}

func (r *Runner) printSummary(result *models.RunResult) {
	r.writePlain("\n")
	r.writePlainHeader(fmt.Sprintf("Playlist %s: %s", result.PlaylistID, formatter.FormatDuration(result.Duration())))

	counts := result.Counts()
	rows := make([][]string, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		rows = append(rows, []string{string(s), strconv.Itoa(counts[s])})
	}
	r.writePlain("%s\n", renderTable([]string{"Status", "Tracks"}, rows, []columnAlignment{alignLeft, alignRight}))

	var problems [][]string
	for _, o := range result.Outcomes {
		switch o.Status {
		case models.StatusFailed, models.StatusNoMatch:
			problems = append(problems, []string{o.Key, string(o.Status), o.Error()})
		}
	}
	if len(problems) > 0 {
		r.writePlain("%s\n", renderTable([]string{"Track", "Status", "Error"}, problems, nil))
	}

	for _, o := range result.Fetched() {
		r.logger.Debug("saved", "track", o.Key, "file", filepath.Base(o.Path))
	}
}
