// package testing contains shared testing utilities: service fakes, failing writers and file helpers
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/shared"
	"golang.org/x/oauth2"
)

// MockService is a test double for [services.Service].
//
// Playlists and Tracks are keyed by playlist ID. Recommendations returns Recs in order, cut to the requested limit.
type MockService struct {
	User       string
	Playlists  map[string]models.Playlist
	Tracks     map[string][]string
	Owned      []models.Playlist
	Recs       []models.Track
	AuthErr    error
	ReplaceErr error

	Token    *oauth2.Token
	Replaced map[string][]string
}

func (m *MockService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if m.AuthErr != nil {
		return m.AuthErr
	}
	m.Token = token
	return nil
}

func (m *MockService) CurrentUserID(ctx context.Context) (string, error) {
	return m.User, nil
}

func (m *MockService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if pl, ok := m.Playlists[playlistID]; ok {
		return &pl, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

func (m *MockService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	if ids, ok := m.Tracks[playlistID]; ok {
		return ids, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

func (m *MockService) UserPlaylists(ctx context.Context, userID string) ([]models.Playlist, error) {
	return m.Owned, nil
}

func (m *MockService) Recommendations(ctx context.Context, seeds []string, limit int) ([]models.Track, error) {
	if len(m.Recs) > limit {
		return m.Recs[:limit], nil
	}
	return m.Recs, nil
}

func (m *MockService) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	if m.Replaced == nil {
		m.Replaced = map[string][]string{}
	}
	m.Replaced[playlistID] = trackIDs
	return nil
}

func (m *MockService) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
