// Package models defines the data carried through the acquisition pipeline.
//
//   - [Track] : a playlist entry (title + credited artists) and its derived [Track.Key]
//   - [Outcome] : what happened to one track during a run
//   - [RunResult] : the ordered outcomes of a run with per-status counts
//   - [Acquisition] : a persisted history row recorded for every outcome
//
// The track key is the identity used by the dedup ledger, the history table and the
// output filename stem, so [Track.Key] and [Sanitize] must stay stable across releases.
package models
