// Package services defines the [Service] interface used by the fill pipeline and implements it for Spotify.
//
// # Spotify Implementation
//
// [SpotifyService] wraps [spotify.Client] from github.com/zmb3/spotify/v2. The HTTP client underneath is
// an [oauth2.Transport] whose token source refreshes expired tokens and reports each new token through
// the callback set with [SpotifyService.SetTokenRefreshCallback], so the caller can persist it.
//
// When pacing is configured, requests pass through a [rate.Limiter] before reaching the network.
// Nothing retries: a 429 or 5xx surfaces as [shared.ErrAPIRequest].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called or no token stored
//   - [shared.ErrTokenExpired] : HTTP 401, reauthorization needed
//   - [shared.ErrAPIRequest] : any other failed request
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
//   - [shared.ErrNoSeeds], [shared.ErrTooManySeeds] : recommendation seeds out of range
//
// # Playlist IDs
//
// [ParsePlaylistID] accepts a bare ID, an open.spotify.com URL or a spotify:playlist: URI.
package services
