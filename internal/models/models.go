// package models defines the data model for the playlist acquisition pipeline
package models

import (
	"strings"
	"time"
)

// Status is the terminal state of a single track in a run.
type Status string

const (
	StatusSkipped Status = "skipped"  // already present in the ledger
	StatusNoMatch Status = "no-match" // search returned nothing usable
	StatusFetched Status = "fetched"  // artifact produced and recorded
	StatusFailed  Status = "failed"   // fetch, transcode or ledger write failed
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusFetched, StatusSkipped, StatusNoMatch, StatusFailed}

// AudioExt is the extension of every produced artifact.
const AudioExt = ".mp3"

var reserved = strings.NewReplacer(
	"/", "-", "\\", "-", "?", "-", "%", "-", "*", "-",
	":", "-", "|", "-", "\"", "-", "<", "-", ">", "-",
)

// Track describes a playlist entry. Artist holds every credited artist joined by a single space.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Key returns the track identity "{artist} - {title}".
func (t Track) Key() string {
	return t.Artist + " - " + t.Title
}

// Query returns the text used to search for a source, "{title} {artist}".
func (t Track) Query() string {
	return t.Title + " " + t.Artist
}

// Filename returns the artifact name for the track.
func (t Track) Filename() string {
	return Filename(t.Key())
}

// Sanitize replaces filesystem-reserved characters with "-" and trims surrounding whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(reserved.Replace(s))
}

// Filename returns the artifact name for a track key.
func Filename(key string) string {
	return Sanitize(key) + AudioExt
}

// Outcome records what happened to one track.
type Outcome struct {
	Track  Track  `json:"track"`
	Key    string `json:"key"`
	Status Status `json:"status"`
	Source string `json:"source,omitempty"` // matched locator, if any
	Path   string `json:"path,omitempty"`   // artifact path when fetched
	Err    error  `json:"-"`
}

// Error returns the failure message or an empty string.
func (o Outcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// RunResult contains the ordered outcomes of a single pipeline run.
type RunResult struct {
	RunID      string    `json:"run_id"`
	PlaylistID string    `json:"playlist_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Add appends an outcome.
func (r *RunResult) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Count returns how many outcomes have the given status.
func (r *RunResult) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Counts returns the number of outcomes per status.
func (r *RunResult) Counts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Fetched returns the outcomes that produced an artifact, in playlist order.
func (r *RunResult) Fetched() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFetched {
			out = append(out, o)
		}
	}
	return out
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Acquisition is a persisted history record of one outcome.
type Acquisition struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	PlaylistID string    `json:"playlist_id"`
	TrackKey   string    `json:"track_key"`
	Status     Status    `json:"status"`
	Source     string    `json:"source,omitempty"`
	Path       string    `json:"path,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
