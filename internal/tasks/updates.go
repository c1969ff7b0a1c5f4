package tasks

import (
	"fmt"

	"github.com/desertthunder/tunepull/internal/models"
)

// ProgressUpdate represents a progress event during a run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current track number (1-based)
	Total   int    // Total tracks in the run
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ResolvePlaylist Phase = iota
	SkipTrack
	SearchTrack
	FetchTrack
	RecordTrack
	TrackDone
	Pace
	RunComplete
)

func (p Phase) String() string {
	switch p {
	case ResolvePlaylist:
		return "resolve_playlist"
	case SkipTrack:
		return "skip_track"
	case SearchTrack:
		return "search_track"
	case FetchTrack:
		return "fetch_track"
	case RecordTrack:
		return "record_track"
	case TrackDone:
		return "track_done"
	case Pace:
		return "pace"
	case RunComplete:
		return "run_complete"
	default:
		return ""
	}
}

func resolvingUpdate(ref string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Message: fmt.Sprintf("Resolving playlist %s...", ref),
	}
}

func resolvedUpdate(pl *Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Total:   len(pl.Tracks),
		Message: fmt.Sprintf("Found playlist %s (%d tracks)", pl.ID, len(pl.Tracks)),
		Data:    pl,
	}
}

func skipUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SkipTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Skipping duplicate: %s", step, total, key),
	}
}

func searchUpdate(step, total int, query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Searching: %s", step, total, query),
	}
}

func fetchUpdate(step, total int, query, locator string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading: %s", step, total, query),
		Data:    locator,
	}
}

func doneUpdate(step, total int, o models.Outcome) ProgressUpdate {
	mark := "✓"
	switch o.Status {
	case models.StatusFailed:
		mark = "✗"
	case models.StatusNoMatch, models.StatusSkipped:
		mark = "-"
	}
	return ProgressUpdate{
		Phase:   TrackDone,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s (%s)", step, total, mark, o.Key, o.Status),
		Data:    o,
	}
}

func paceUpdate(step, total int, d fmt.Stringer) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Pace,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Waiting %s before next track...", step, total, d),
	}
}

func completeUpdate(result *models.RunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: RunComplete,
		Step:  len(result.Outcomes),
		Total: len(result.Outcomes),
		Message: fmt.Sprintf("Done: %d fetched, %d skipped, %d no-match, %d failed",
			result.Count(models.StatusFetched), result.Count(models.StatusSkipped),
			result.Count(models.StatusNoMatch), result.Count(models.StatusFailed)),
		Data: result,
	}
}
