// package services defines interface Service for interacting with HTTP APIs
//
// Spotify
package services

import (
	"context"

	"github.com/desertthunder/plbop/internal/models"
	"golang.org/x/oauth2"
)

// Service defines the operations the fill pipeline needs from a music provider.
type Service interface {
	// Authenticate builds an authorized client from a stored or freshly exchanged token.
	Authenticate(ctx context.Context, token *oauth2.Token) error

	// CurrentUserID returns the ID of the authorized user.
	CurrentUserID(ctx context.Context) (string, error)

	// Playlist retrieves playlist metadata by ID.
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// PlaylistTrackIDs returns every track ID in a playlist, in playlist order.
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)

	// UserPlaylists retrieves every playlist visible on a user's profile.
	UserPlaylists(ctx context.Context, userID string) ([]models.Playlist, error)

	// Recommendations returns up to limit tracks seeded by at most five track IDs.
	Recommendations(ctx context.Context, seeds []string, limit int) ([]models.Track, error)

	// ReplacePlaylistTracks overwrites a playlist with the given track IDs.
	ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// MaxSeeds is the largest number of seed tracks one recommendation request accepts.
const MaxSeeds = 5

// maxWriteBatch is the number of tracks one playlist write accepts.
const maxWriteBatch = 100
