package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/shared"
	"golang.org/x/oauth2"
)

type mockService struct {
	userID        string
	playlists     map[string]*models.Playlist
	tracks        map[string][]string
	userPlaylists []models.Playlist
	userErr       error
	listErr       error
	recommendErr  error
	replaceErr    error
	recCalls      [][]string
	replaced      []string
	replaceCalls  int
}

func (m *mockService) Name() string { return "mock" }

func (m *mockService) Authenticate(ctx context.Context, token *oauth2.Token) error { return nil }

func (m *mockService) CurrentUserID(ctx context.Context) (string, error) {
	return m.userID, m.userErr
}

func (m *mockService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if pl, ok := m.playlists[playlistID]; ok {
		cp := *pl
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

func (m *mockService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	if ids, ok := m.tracks[playlistID]; ok {
		return ids, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

func (m *mockService) UserPlaylists(ctx context.Context, userID string) ([]models.Playlist, error) {
	return m.userPlaylists, m.listErr
}

// Recommendations returns one track per seed ("r" + seed) plus a track shared by every chunk.
func (m *mockService) Recommendations(ctx context.Context, seeds []string, limit int) ([]models.Track, error) {
	if m.recommendErr != nil {
		return nil, m.recommendErr
	}
	m.recCalls = append(m.recCalls, slices.Clone(seeds))

	var tracks []models.Track
	for _, s := range seeds {
		tracks = append(tracks, models.Track{ID: "r" + s, Title: "Track " + s, Artist: "Artist"})
	}
	tracks = append(tracks, models.Track{ID: "shared", Title: "Shared", Artist: "Artist"})
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

func (m *mockService) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced = trackIDs
	return nil
}

type recordedRun struct {
	req    FillRequest
	result *FillResult
	err    error
}

type mockRecorder struct {
	runs []recordedRun
	err  error
}

func (r *mockRecorder) RecordRun(ctx context.Context, req FillRequest, result *FillResult, runErr error) error {
	r.runs = append(r.runs, recordedRun{req: req, result: result, err: runErr})
	return r.err
}

func seedIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%d", i+1)
	}
	return ids
}

func newMockService() *mockService {
	return &mockService{
		userID: "alice",
		playlists: map[string]*models.Playlist{
			"seed": {ID: "seed", Name: "Seed Mix", OwnerID: "alice", Public: true},
			"empty": {ID: "empty", Name: "Nothing", OwnerID: "alice", Public: true},
		},
		tracks: map[string][]string{
			"seed":    seedIDs(12),
			"empty":   {},
			"mine":    {"rs1", "rs2"},
			"private": {"rs3"},
			"theirs":  {"rs4"},
			"dest":    {"shared"},
		},
		userPlaylists: []models.Playlist{
			{ID: "mine", Name: "Mine", OwnerID: "alice", Public: true, TrackCount: 2},
			{ID: "private", Name: "Private", OwnerID: "alice", Public: false, TrackCount: 1},
			{ID: "theirs", Name: "Followed", OwnerID: "bob", Public: true, TrackCount: 1},
			{ID: "dest", Name: "Fresh Finds", OwnerID: "alice", Public: true, TrackCount: 1},
		},
	}
}

func defaultOptions() shared.RecommendConfig {
	return shared.RecommendConfig{SeedWindow: 200, ChunkSize: 5, MaxChunks: 10, PerChunk: 10, MaxTracks: 40}
}

func newTestEngine(svc *mockService, options shared.RecommendConfig, opts ...EngineOption) *FillEngine {
	opts = append([]EngineOption{WithRand(rand.New(rand.NewPCG(1, 2))), WithLogger(log.New(io.Discard))}, opts...)
	return NewFillEngine(svc, options, opts...)
}

func trackIDs(tracks []models.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func TestFillEngine_Run(t *testing.T) {
	ctx := context.Background()
	req := FillRequest{SeedPlaylistID: "seed", DestPlaylistID: "dest", UserID: "alice"}

	t.Run("fills destination with unknown recommendations", func(t *testing.T) {
		svc := newMockService()
		result, err := newTestEngine(svc, defaultOptions()).Run(ctx, nil, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.SeedCount != 12 || result.SampledCount != 12 {
			t.Errorf("expected 12 seeds sampled, got %d/%d", result.SeedCount, result.SampledCount)
		}
		if result.ChunkCount != 3 || len(svc.recCalls) != 3 {
			t.Errorf("expected 3 recommendation requests, got %d", len(svc.recCalls))
		}
		if len(result.Recommended) != 13 {
			t.Errorf("expected 13 unique recommendations, got %d", len(result.Recommended))
		}
		if result.ScannedPlaylists != 2 {
			t.Errorf("expected 2 scanned playlists, got %d", result.ScannedPlaylists)
		}
		if result.KnownCount != 3 {
			t.Errorf("expected 3 known tracks, got %d", result.KnownCount)
		}

		removed := trackIDs(result.Removed)
		slices.Sort(removed)
		if strings.Join(removed, ",") != "rs1,rs2,shared" {
			t.Errorf("unexpected removed tracks: %v", removed)
		}

		if len(result.Tracks) != 10 {
			t.Fatalf("expected 10 final tracks, got %d", len(result.Tracks))
		}
		for _, id := range trackIDs(result.Tracks) {
			if slices.Contains(removed, id) {
				t.Errorf("known track %s was written", id)
			}
		}

		if svc.replaceCalls != 1 {
			t.Errorf("expected one write, got %d", svc.replaceCalls)
		}
		if !slices.Equal(svc.replaced, trackIDs(result.Tracks)) {
			t.Errorf("written tracks %v differ from result %v", svc.replaced, trackIDs(result.Tracks))
		}
	})

	t.Run("every request stays within the seed limit", func(t *testing.T) {
		svc := newMockService()
		svc.tracks["seed"] = seedIDs(300)
		if _, err := newTestEngine(svc, defaultOptions()).Run(ctx, nil, req); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(svc.recCalls) != 10 {
			t.Errorf("expected 10 requests, got %d", len(svc.recCalls))
		}
		for _, call := range svc.recCalls {
			if len(call) != 5 {
				t.Errorf("expected 5 seeds per request, got %d", len(call))
			}
		}
	})

	t.Run("seed window keeps the most recent tracks", func(t *testing.T) {
		svc := newMockService()
		opts := defaultOptions()
		opts.SeedWindow = 3

		result, err := newTestEngine(svc, opts).Run(ctx, nil, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.SampledCount != 3 || len(svc.recCalls) != 1 {
			t.Fatalf("expected one request from 3 seeds, got %d requests", len(svc.recCalls))
		}

		got := slices.Clone(svc.recCalls[0])
		slices.Sort(got)
		if strings.Join(got, ",") != "s10,s11,s12" {
			t.Errorf("expected last three seeds, got %v", got)
		}
	})

	t.Run("private playlists count when enabled", func(t *testing.T) {
		svc := newMockService()
		opts := defaultOptions()
		opts.IncludePrivate = true

		result, err := newTestEngine(svc, opts).Run(ctx, nil, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.ScannedPlaylists != 3 {
			t.Errorf("expected 3 scanned playlists, got %d", result.ScannedPlaylists)
		}
		if len(result.Tracks) != 9 {
			t.Errorf("expected 9 final tracks, got %d", len(result.Tracks))
		}
	})

	t.Run("truncates to max tracks", func(t *testing.T) {
		svc := newMockService()
		opts := defaultOptions()
		opts.MaxTracks = 4

		result, err := newTestEngine(svc, opts).Run(ctx, nil, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Tracks) != 4 || len(svc.replaced) != 4 {
			t.Errorf("expected 4 tracks, got %d written %d", len(result.Tracks), len(svc.replaced))
		}
	})

	t.Run("same random source gives same result", func(t *testing.T) {
		first, err := newTestEngine(newMockService(), defaultOptions()).Run(ctx, nil, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := newTestEngine(newMockService(), defaultOptions()).Run(ctx, nil, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !slices.Equal(trackIDs(first.Tracks), trackIDs(second.Tracks)) {
			t.Errorf("expected identical selections, got %v and %v", trackIDs(first.Tracks), trackIDs(second.Tracks))
		}
	})

	t.Run("dry run skips the write", func(t *testing.T) {
		svc := newMockService()
		result, err := newTestEngine(svc, defaultOptions()).Run(ctx, nil, FillRequest{SeedPlaylistID: "seed", UserID: "alice", DryRun: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.replaceCalls != 0 {
			t.Errorf("expected no writes, got %d", svc.replaceCalls)
		}
		if !result.DryRun || len(result.Tracks) == 0 {
			t.Errorf("expected dry run result with tracks, got %+v", result)
		}
	})

	t.Run("resolves user from token", func(t *testing.T) {
		svc := newMockService()
		result, err := newTestEngine(svc, defaultOptions()).Run(ctx, nil, FillRequest{SeedPlaylistID: "seed", DestPlaylistID: "dest"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.UserID != "alice" {
			t.Errorf("expected alice, got %s", result.UserID)
		}
	})

	t.Run("user override changes ownership filter", func(t *testing.T) {
		svc := newMockService()
		result, err := newTestEngine(svc, defaultOptions()).Run(ctx, nil, FillRequest{SeedPlaylistID: "seed", DestPlaylistID: "dest", UserID: "bob"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.ScannedPlaylists != 1 {
			t.Errorf("expected bob's single playlist scanned, got %d", result.ScannedPlaylists)
		}
		if len(result.Removed) != 1 || result.Removed[0].ID != "rs4" {
			t.Errorf("expected rs4 removed, got %v", trackIDs(result.Removed))
		}
	})

	t.Run("reports progress for every phase", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 100)
		if _, err := newTestEngine(newMockService(), defaultOptions()).Run(ctx, progress, req); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		seen := map[Phase]bool{}
		for u := range progress {
			seen[u.Phase] = true
		}
		for _, phase := range []Phase{FetchSeeds, Recommend, ScanKnown, Shuffle, Replace, Done} {
			if !seen[phase] {
				t.Errorf("expected progress for phase %s", phase)
			}
		}
	})

	t.Run("full progress channel does not block", func(t *testing.T) {
		progress := make(chan ProgressUpdate)
		if _, err := newTestEngine(newMockService(), defaultOptions()).Run(ctx, progress, req); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestFillEngine_RunErrors(t *testing.T) {
	ctx := context.Background()
	req := FillRequest{SeedPlaylistID: "seed", DestPlaylistID: "dest", UserID: "alice"}

	t.Run("nil service", func(t *testing.T) {
		engine := NewFillEngine(nil, defaultOptions())
		if _, err := engine.Run(ctx, nil, req); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	tc := []struct {
		name    string
		req     FillRequest
		mutate  func(*mockService)
		wantErr error
	}{
		{name: "missing seed", req: FillRequest{DestPlaylistID: "dest"}, wantErr: shared.ErrMissingArgument},
		{name: "missing destination", req: FillRequest{SeedPlaylistID: "seed"}, wantErr: shared.ErrMissingArgument},
		{name: "seed not found", req: FillRequest{SeedPlaylistID: "nope", DestPlaylistID: "dest", UserID: "alice"}, wantErr: shared.ErrPlaylistNotFound},
		{name: "empty seed playlist", req: FillRequest{SeedPlaylistID: "empty", DestPlaylistID: "dest", UserID: "alice"}, wantErr: shared.ErrNoSeeds},
		{
			name:    "user lookup fails",
			req:     FillRequest{SeedPlaylistID: "seed", DestPlaylistID: "dest"},
			mutate:  func(m *mockService) { m.userErr = shared.ErrTokenExpired },
			wantErr: shared.ErrTokenExpired,
		},
		{
			name:    "recommendations fail",
			req:     req,
			mutate:  func(m *mockService) { m.recommendErr = fmt.Errorf("%w: boom", shared.ErrAPIRequest) },
			wantErr: shared.ErrAPIRequest,
		},
		{
			name:    "listing playlists fails",
			req:     req,
			mutate:  func(m *mockService) { m.listErr = fmt.Errorf("%w: boom", shared.ErrAPIRequest) },
			wantErr: shared.ErrAPIRequest,
		},
		{
			name:    "scanning a playlist fails",
			req:     req,
			mutate:  func(m *mockService) { delete(m.tracks, "mine") },
			wantErr: shared.ErrPlaylistNotFound,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			if tt.mutate != nil {
				tt.mutate(svc)
			}

			_, err := newTestEngine(svc, defaultOptions()).Run(ctx, nil, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if svc.replaceCalls != 0 {
				t.Errorf("expected no writes, got %d", svc.replaceCalls)
			}
		})
	}

	t.Run("failed write is reported", func(t *testing.T) {
		svc := newMockService()
		svc.replaceErr = fmt.Errorf("%w: status 403", shared.ErrAPIRequest)

		result, err := newTestEngine(svc, defaultOptions()).Run(ctx, nil, req)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "error while creating playlist") {
			t.Errorf("unexpected message: %v", err)
		}
		if result == nil || len(result.Tracks) == 0 {
			t.Error("expected partial result with selected tracks")
		}
		if svc.replaceCalls != 1 {
			t.Errorf("expected a single write attempt, got %d", svc.replaceCalls)
		}
	})
}

func TestFillEngine_Recorder(t *testing.T) {
	ctx := context.Background()
	req := FillRequest{SeedPlaylistID: "seed", DestPlaylistID: "dest", UserID: "alice"}

	t.Run("records successful run", func(t *testing.T) {
		rec := &mockRecorder{}
		result, err := newTestEngine(newMockService(), defaultOptions(), WithRecorder(rec)).Run(ctx, nil, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(rec.runs) != 1 {
			t.Fatalf("expected one recorded run, got %d", len(rec.runs))
		}
		if rec.runs[0].result != result || rec.runs[0].err != nil {
			t.Errorf("unexpected recorded run: %+v", rec.runs[0])
		}
		if result.CompletedAt.IsZero() {
			t.Error("expected completion time")
		}
	})

	t.Run("records failed run", func(t *testing.T) {
		rec := &mockRecorder{}
		svc := newMockService()
		svc.replaceErr = shared.ErrAPIRequest

		_, err := newTestEngine(svc, defaultOptions(), WithRecorder(rec)).Run(ctx, nil, req)
		if err == nil {
			t.Fatal("expected error")
		}
		if len(rec.runs) != 1 || !errors.Is(rec.runs[0].err, shared.ErrAPIRequest) {
			t.Errorf("expected failed run recorded, got %+v", rec.runs)
		}
	})

	t.Run("recorder failure does not fail the run", func(t *testing.T) {
		rec := &mockRecorder{err: errors.New("disk full")}
		if _, err := newTestEngine(newMockService(), defaultOptions(), WithRecorder(rec)).Run(ctx, nil, req); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}
