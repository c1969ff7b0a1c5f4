// Package tasks runs the playlist acquisition pipeline with real-time progress reporting.
//
// # Pipeline
//
// [Engine.Run] resolves a playlist reference with a [Resolver], then [Engine.Acquire]
// walks the tracks strictly in order:
//
//  1. key already in the ledger: skipped (no search, no pacing)
//  2. [Locator.Locate] finds no source: no-match (no pacing)
//  3. [Fetcher.FetchAndTranscode] succeeds: ledger record, [Sink.Deliver], pace
//  4. fetch fails: failed, logged with the track key, pace
//
// Only an invalid reference, authentication failure, playlist fetch failure, an
// uncreatable download directory or context cancellation end a run early.
//
// # Sinks
//
// [DiskSink] leaves artifacts on disk (batch mode). [ArchiveSink] appends each artifact
// to a zip stream as soon as it is flushed (delivery mode).
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters and a message.
// Updates use select with default to prevent blocking.
//
// # History
//
// The optional [OutcomeRecorder] (repositories.HistoryRepository) stores every outcome.
// Recording errors are logged and ignored.
package tasks
