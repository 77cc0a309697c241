package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/plbop/internal/shared"
)

// ParsePlaylistID extracts a playlist ID from a bare ID, an open.spotify.com URL or a spotify:playlist: URI.
func ParsePlaylistID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: playlist id is empty", shared.ErrInvalidArgument)
	}

	if rest, ok := strings.CutPrefix(input, "spotify:"); ok {
		parts := strings.Split(rest, ":")
		for i := 0; i+1 < len(parts); i++ {
			if parts[i] == "playlist" {
				return checkPlaylistID(parts[i+1])
			}
		}
		return "", fmt.Errorf("%w: %q is not a playlist URI", shared.ErrInvalidArgument, input)
	}

	if strings.Contains(input, "://") {
		u, err := url.Parse(input)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		if !strings.HasSuffix(u.Hostname(), "spotify.com") {
			return "", fmt.Errorf("%w: %q is not a Spotify URL", shared.ErrInvalidArgument, input)
		}

		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := 0; i+1 < len(segments); i++ {
			if segments[i] == "playlist" {
				return checkPlaylistID(segments[i+1])
			}
		}
		return "", fmt.Errorf("%w: %q is not a playlist URL", shared.ErrInvalidArgument, input)
	}

	return checkPlaylistID(input)
}

func checkPlaylistID(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: playlist id is empty", shared.ErrInvalidArgument)
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", fmt.Errorf("%w: invalid playlist id %q", shared.ErrInvalidArgument, id)
		}
	}
	return id, nil
}
