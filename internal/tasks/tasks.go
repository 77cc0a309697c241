// package tasks implements the playlist fill pipeline.
//
// The core abstraction is FillEngine, which reads a seed playlist, gathers recommendations,
// drops tracks the user already owns, and overwrites the destination playlist.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/services"
	"github.com/desertthunder/plbop/internal/shared"
)

// FillRequest names the playlists and account for one run.
type FillRequest struct {
	SeedPlaylistID string // Playlist whose tracks seed the recommendations
	DestPlaylistID string // Playlist that gets overwritten
	UserID         string // Owner whose playlists count as known; resolved from the token when empty
	DryRun         bool   // Skip the final write
}

// FillResult contains all data from a fill run.
type FillResult struct {
	UserID           string           `json:"user_id"`
	SeedPlaylist     *models.Playlist `json:"seed_playlist"`
	DestPlaylistID   string           `json:"dest_playlist_id"`
	SeedCount        int              `json:"seed_count"`   // Track IDs read from the seed playlist
	SampledCount     int              `json:"sampled_count"` // Seeds kept after windowing
	ChunkCount       int              `json:"chunk_count"`   // Recommendation requests made
	ScannedPlaylists int              `json:"scanned_playlists"`
	KnownCount       int              `json:"known_count"` // Distinct track IDs found in owned playlists
	Recommended      []models.Track   `json:"recommended"` // Unique recommendations in request order
	Removed          []models.Track   `json:"removed"`     // Recommendations already known
	Tracks           []models.Track   `json:"tracks"`      // Final list written to the destination
	DryRun           bool             `json:"dry_run"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      time.Time        `json:"completed_at"`
}

// RunRecorder persists a summary of each run.
//
// Recording never affects the outcome of a run; failures are logged and dropped.
type RunRecorder interface {
	RecordRun(ctx context.Context, req FillRequest, result *FillResult, runErr error) error
}

// FillEngine runs the fill pipeline against a [services.Service].
type FillEngine struct {
	service  services.Service
	options  shared.RecommendConfig
	rng      *rand.Rand
	recorder RunRecorder
	logger   *log.Logger
}

// EngineOption configures a [FillEngine].
type EngineOption func(*FillEngine)

// WithRand sets the random source used for shuffling.
func WithRand(rng *rand.Rand) EngineOption {
	return func(e *FillEngine) { e.rng = rng }
}

// WithRecorder journals every run through r.
func WithRecorder(r RunRecorder) EngineOption {
	return func(e *FillEngine) { e.recorder = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *FillEngine) { e.logger = l }
}

// NewFillEngine creates a new FillEngine with the provided service and tuning.
func NewFillEngine(service services.Service, options shared.RecommendConfig, opts ...EngineOption) *FillEngine {
	e := &FillEngine{
		service: service,
		options: options,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *FillEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run executes one fill pass. A partial result is returned alongside any error raised after seeds were read.
func (e *FillEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, req FillRequest) (result *FillResult, err error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if req.SeedPlaylistID == "" {
		return nil, fmt.Errorf("%w: seed playlist", shared.ErrMissingArgument)
	}
	if req.DestPlaylistID == "" && !req.DryRun {
		return nil, fmt.Errorf("%w: destination playlist", shared.ErrMissingArgument)
	}

	result = &FillResult{
		DestPlaylistID: req.DestPlaylistID,
		DryRun:         req.DryRun,
		StartedAt:      time.Now(),
	}

	if e.recorder != nil {
		defer func() {
			result.CompletedAt = time.Now()
			if recErr := e.recorder.RecordRun(ctx, req, result, err); recErr != nil {
				e.logger.Warn("failed to record run", "error", recErr)
			}
		}()
	}

	userID := req.UserID
	if userID == "" {
		if userID, err = e.service.CurrentUserID(ctx); err != nil {
			return result, fmt.Errorf("failed to resolve user: %w", err)
		}
	}
	result.UserID = userID

	seeds, err := e.fetchSeeds(ctx, progress, req.SeedPlaylistID, result)
	if err != nil {
		return result, err
	}

	sample := SampleSeeds(e.rng, seeds, e.options.SeedWindow)
	chunks := ChunkSeeds(sample, e.options.ChunkSize, e.options.MaxChunks)
	result.SampledCount = len(sample)
	result.ChunkCount = len(chunks)

	var recommended []models.Track
	for i, chunk := range chunks {
		e.sendProgress(progress, recommendUpdate(i+1, len(chunks), chunk))

		tracks, recErr := e.service.Recommendations(ctx, chunk, e.options.PerChunk)
		if recErr != nil {
			return result, fmt.Errorf("failed to get recommendations: %w", recErr)
		}
		e.logger.Debug("recommended", "chunk", i+1, "seeds", len(chunk), "tracks", len(tracks))
		recommended = append(recommended, tracks...)
	}
	result.Recommended = UniqueTracks(recommended)
	e.logger.Info("collected recommendations", "count", len(result.Recommended), "requests", len(chunks))

	known, err := e.knownTracks(ctx, progress, userID, result)
	if err != nil {
		return result, err
	}

	kept, removed := RemoveKnown(result.Recommended, known)
	result.Removed = removed
	e.sendProgress(progress, removedUpdate(len(removed), len(kept)))
	e.logger.Info("removed known tracks", "removed", len(removed), "remaining", len(kept))

	e.sendProgress(progress, shuffleUpdate(len(kept), e.options.MaxTracks))
	result.Tracks = ShuffleTruncate(e.rng, kept, e.options.MaxTracks)

	if req.DryRun {
		e.sendProgress(progress, doneUpdate(result))
		return result, nil
	}

	if len(result.Tracks) == 0 {
		e.logger.Warn("no new tracks left, destination will be emptied", "playlist", req.DestPlaylistID)
	}

	e.sendProgress(progress, replaceUpdate(req.DestPlaylistID, len(result.Tracks)))
	ids := make([]string, len(result.Tracks))
	for i, t := range result.Tracks {
		ids[i] = t.ID
	}

	if err = e.service.ReplacePlaylistTracks(ctx, req.DestPlaylistID, ids); err != nil {
		e.logger.Error("error while creating playlist", "playlist", req.DestPlaylistID, "error", err)
		return result, fmt.Errorf("error while creating playlist: %w", err)
	}

	e.sendProgress(progress, doneUpdate(result))
	return result, nil
}

func (e *FillEngine) fetchSeeds(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, result *FillResult) ([]string, error) {
	e.sendProgress(progress, fetchSeedsUpdate(playlistID))

	pl, err := e.service.Playlist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed playlist: %w", err)
	}

	ids, err := e.service.PlaylistTrackIDs(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed playlist: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoSeeds, playlistID)
	}

	pl.TrackCount = len(ids)
	result.SeedPlaylist = pl
	result.SeedCount = len(ids)

	e.sendProgress(progress, foundSeedsUpdate(pl, len(ids)))
	e.logger.Info("read seed playlist", "playlist", pl.Name, "tracks", len(ids))
	return ids, nil
}

// knownTracks collects the track IDs of every playlist the user owns.
func (e *FillEngine) knownTracks(ctx context.Context, progress chan<- ProgressUpdate, userID string, result *FillResult) (mapset.Set[string], error) {
	playlists, err := e.service.UserPlaylists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	var owned []models.Playlist
	for _, pl := range playlists {
		if pl.OwnerID == userID && (pl.Public || e.options.IncludePrivate) {
			owned = append(owned, pl)
		}
	}

	known := mapset.NewThreadUnsafeSet[string]()
	for i, pl := range owned {
		e.sendProgress(progress, scanPlaylistUpdate(i+1, len(owned), pl))

		ids, err := e.service.PlaylistTrackIDs(ctx, pl.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist %s: %w", pl.ID, err)
		}
		known.Append(ids...)
		e.logger.Debug("scanned playlist", "playlist", pl.Name, "tracks", len(ids))
	}

	result.ScannedPlaylists = len(owned)
	result.KnownCount = known.Cardinality()
	return known, nil
}
