// Package tasks runs the playlist fill pipeline with real-time progress reporting.
//
// # Pipeline
//
// [FillEngine.Run] performs, in order:
//
//  1. Read the seed playlist and collect its track IDs ([shared.ErrNoSeeds] when empty)
//  2. [SampleSeeds] keeps the most recent seed_window IDs and shuffles them
//  3. [ChunkSeeds] groups them from the end, chunk_size at a time, up to max_chunks groups
//  4. One recommendations request per group; results are de-duplicated with [UniqueTracks]
//  5. Every playlist the user owns is scanned and [RemoveKnown] drops tracks found there
//  6. [ShuffleTruncate] shuffles the survivors and keeps max_tracks of them
//  7. The destination playlist is overwritten unless the request is a dry run
//
// There is no retry. A failed write is logged as "error while creating playlist" and returned.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Run Journal
//
// The optional [RunRecorder] receives every finished run, successful or not.
// Recording errors are logged and never change the run's outcome.
package tasks
