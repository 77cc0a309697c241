package services

import (
	"errors"
	"testing"

	"github.com/desertthunder/plbop/internal/shared"
)

func TestParsePlaylistID(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  string
		err   bool
	}{
		{name: "bare id", input: "37i9dQZF1DXcBWIGoYBM5M", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{name: "padded id", input: "  abc123 ", want: "abc123"},
		{name: "uri", input: "spotify:playlist:abc123", want: "abc123"},
		{name: "user uri", input: "spotify:user:bob:playlist:abc123", want: "abc123"},
		{name: "url", input: "https://open.spotify.com/playlist/abc123?si=xyz", want: "abc123"},
		{name: "localized url", input: "https://open.spotify.com/intl-de/playlist/abc123", want: "abc123"},
		{name: "empty", input: "", err: true},
		{name: "album uri", input: "spotify:album:abc123", err: true},
		{name: "other host", input: "https://example.com/playlist/abc123", err: true},
		{name: "track url", input: "https://open.spotify.com/track/abc123", err: true},
		{name: "bad characters", input: "abc/123", err: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlaylistID(tt.input)
			if tt.err {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
