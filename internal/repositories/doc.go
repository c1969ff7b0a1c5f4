// Package repositories implements SQLite persistence for acquisition history.
//
// Key Implementations:
//   - [HistoryRepository] : one row per track outcome per run, queried by the history command
//
// [HistoryRepository] satisfies tasks.OutcomeRecorder so the engine can record outcomes as
// they happen. Rows are append-only; nothing is updated or deleted outside migrations.
package repositories
