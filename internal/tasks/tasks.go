// package tasks implements the playlist acquisition pipeline.
//
// The core abstraction is Engine, which sequences locate, fetch-transcode, ledger
// bookkeeping and pacing for every track of a resolved playlist.
// Operations emit progress updates via channels for non-blocking status reporting to the CLI.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepull/internal/ledger"
	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/shared"
)

// DefaultRetryBackoff is the pause between fetch attempts when retries are enabled.
const DefaultRetryBackoff = 2 * time.Second

// OutcomeRecorder persists per-track outcomes. Errors are logged and ignored.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, runID, playlistID string, o models.Outcome) error
}

// AcquireOpts parameterizes one run of [Engine.Acquire].
type AcquireOpts struct {
	PlaylistID   string
	Ledger       ledger.Ledger        // defaults to an empty in-memory ledger
	Sink         Sink                 // defaults to a [DiskSink]
	Delay        time.Duration        // pause after every fetch attempt
	Retries      int                  // extra fetch attempts before a track fails
	RetryBackoff time.Duration        // defaults to [DefaultRetryBackoff]
	Progress     chan<- ProgressUpdate // optional, never blocks
}

// Engine runs the acquisition pipeline. Tracks are processed strictly one at a time.
type Engine struct {
	resolver *Resolver
	locator  *Locator
	fetcher  *Fetcher
	recorder OutcomeRecorder
	logger   *log.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewEngine creates a new Engine with the provided components.
func NewEngine(resolver *Resolver, locator *Locator, fetcher *Fetcher, logger *log.Logger) *Engine {
	return &Engine{
		resolver: resolver,
		locator:  locator,
		fetcher:  fetcher,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// WithRecorder sets the optional outcome recorder.
func (e *Engine) WithRecorder(r OutcomeRecorder) *Engine {
	e.recorder = r
	return e
}

// Fetcher returns the engine's fetch-transcode unit.
func (e *Engine) Fetcher() *Fetcher {
	return e.fetcher
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Resolve turns ref into a playlist. All errors are fatal for the run.
func (e *Engine) Resolve(ctx context.Context, ref string, progress chan<- ProgressUpdate) (*Playlist, error) {
	e.sendProgress(progress, resolvingUpdate(ref))
	pl, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, resolvedUpdate(pl))
	return pl, nil
}

// ResolveAll resolves and merges several references. See [Resolver.ResolveAll].
func (e *Engine) ResolveAll(ctx context.Context, refs []string, opts BulkOpts, progress chan<- ProgressUpdate) (*Playlist, error) {
	e.sendProgress(progress, resolvingUpdate(strings.Join(refs, ", ")))
	pl, err := e.resolver.ResolveAll(ctx, refs, opts)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, resolvedUpdate(pl))
	return pl, nil
}

// Run resolves ref and acquires its tracks.
func (e *Engine) Run(ctx context.Context, ref string, opts AcquireOpts) (*models.RunResult, error) {
	pl, err := e.Resolve(ctx, ref, opts.Progress)
	if err != nil {
		return nil, err
	}
	opts.PlaylistID = pl.ID
	return e.Acquire(ctx, pl.Tracks, opts)
}

// Acquire processes tracks in order and returns one outcome per processed track.
//
// Per-track failures never abort the loop. The returned error is non-nil only when the
// download directory cannot be created or ctx is cancelled; the partial result is
// returned alongside it.
func (e *Engine) Acquire(ctx context.Context, tracks []models.Track, opts AcquireOpts) (*models.RunResult, error) {
	if opts.Ledger == nil {
		opts.Ledger = ledger.NewMemory()
	}
	if opts.Sink == nil {
		opts.Sink = NewDiskSink(e.logger)
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}

	result := &models.RunResult{
		RunID:      shared.GenerateID(),
		PlaylistID: opts.PlaylistID,
		StartedAt:  time.Now(),
	}
	logger := shared.WithLogger(e.logger, "run", result.RunID[:8])
	total := len(tracks)

	finish := func(err error) (*models.RunResult, error) {
		result.FinishedAt = time.Now()
		if err == nil {
			e.sendProgress(opts.Progress, completeUpdate(result))
		}
		return result, err
	}

	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", "processed", i, "total", total)
			return finish(err)
		}

		step := i + 1
		outcome, attempted, err := e.acquireOne(ctx, logger, step, total, track, opts)
		if err != nil {
			return finish(err)
		}

		result.Add(outcome)
		e.recordOutcome(ctx, logger, result, outcome)
		e.sendProgress(opts.Progress, doneUpdate(step, total, outcome))

		if attempted && step < total && opts.Delay > 0 {
			e.sendProgress(opts.Progress, paceUpdate(step, total, opts.Delay))
			if err := e.sleep(ctx, opts.Delay); err != nil {
				return finish(err)
			}
		}
	}

	logger.Info("run complete",
		"fetched", result.Count(models.StatusFetched),
		"skipped", result.Count(models.StatusSkipped),
		"no_match", result.Count(models.StatusNoMatch),
		"failed", result.Count(models.StatusFailed))
	return finish(nil)
}

// acquireOne runs the per-track state machine. attempted reports whether a fetch was
// tried, which is what triggers pacing. A non-nil error aborts the run.
func (e *Engine) acquireOne(ctx context.Context, logger *log.Logger, step, total int, track models.Track, opts AcquireOpts) (models.Outcome, bool, error) {
	key := track.Key()
	outcome := models.Outcome{Track: track, Key: key}

	if opts.Ledger.Contains(key) {
		logger.Info("Skipping duplicate", "track", key)
		e.sendProgress(opts.Progress, skipUpdate(step, total, key))
		outcome.Status = models.StatusSkipped
		if sh, ok := opts.Sink.(SkipHandler); ok {
			a := Artifact{Track: track, Key: key, Path: e.fetcher.PathFor(key)}
			if err := sh.Skipped(ctx, a); err != nil {
				logger.Warn("failed to deliver skipped artifact", "track", key, "error", err)
			}
		}
		return outcome, false, nil
	}

	query := track.Query()
	e.sendProgress(opts.Progress, searchUpdate(step, total, query))
	locator, err := e.locator.Locate(ctx, track)
	if locator == "" {
		logger.Info("No results found", "query", query)
		outcome.Status = models.StatusNoMatch
		outcome.Err = err
		return outcome, false, nil
	}
	outcome.Source = locator

	if err := e.fetcher.EnsureOutputDirectory(); err != nil {
		logger.Error("cannot create download directory", "dir", e.fetcher.Dir(), "error", err)
		return outcome, false, err
	}

	logger.Info("Downloading", "query", query, "source", locator)
	e.sendProgress(opts.Progress, fetchUpdate(step, total, query, locator))
	path, err := e.fetchWithRetry(ctx, logger, locator, track, opts)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, true, ctx.Err()
		}
		logger.Error("Error downloading", "track", key, "error", err)
		outcome.Status = models.StatusFailed
		outcome.Err = err
		return outcome, true, nil
	}
	outcome.Path = path
	outcome.Status = models.StatusFetched

	if err := opts.Ledger.Record(key); err != nil {
		logger.Error("ledger write failed; track may be fetched again next run", "track", key, "error", err)
		outcome.Status = models.StatusFailed
		outcome.Err = err
	}

	if err := opts.Sink.Deliver(ctx, Artifact{Track: track, Key: key, Path: path}); err != nil {
		logger.Error("failed to deliver artifact", "track", key, "error", err)
		outcome.Status = models.StatusFailed
		outcome.Err = errors.Join(outcome.Err, fmt.Errorf("deliver: %w", err))
	}

	return outcome, true, nil
}

func (e *Engine) fetchWithRetry(ctx context.Context, logger *log.Logger, locator string, track models.Track, opts AcquireOpts) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, opts.RetryBackoff); err != nil {
				return "", err
			}
			logger.Warn("retrying download", "track", track.Key(), "attempt", attempt+1)
		}

		path, err := e.fetcher.FetchAndTranscode(ctx, locator, track)
		if err == nil {
			return path, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", lastErr
		}
	}
	return "", lastErr
}

func (e *Engine) recordOutcome(ctx context.Context, logger *log.Logger, result *models.RunResult, o models.Outcome) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordOutcome(ctx, result.RunID, result.PlaylistID, o); err != nil {
		logger.Warn("failed to record history", "track", o.Key, "error", err)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
