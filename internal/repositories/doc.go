// Package repositories implements SQLite persistence for the run journal.
//
// Runs are stored with soft deletes via deleted_at timestamps; deleted runs are excluded from queries.
//
// Key Implementations:
//   - [RunRepository] : CRUD for [models.FillRun] plus the tracks each run selected
//   - [Journal] : Adapts RunRepository to tasks.RunRecorder so the fill engine can journal runs
//
// The journal is write-only from the pipeline's point of view; only `plbop history` reads it.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
