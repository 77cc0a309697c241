// Spotify API implementation of [Service]
//
// Requests go through [spotify.Client]; this file maps its types onto [models].
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/shared"
	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const defaultRedirectURI = "http://127.0.0.1:3000/callback"

// pageSize is the largest page the playlist endpoints return.
const pageSize = 50

// Scopes requested during authorization.
var Scopes = []string{
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopePlaylistReadPrivate,
}

// SpotifyService implements the Service interface for Spotify API interactions.
// Uses [oauth2] for authentication and [spotify.Client] for the Web API.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	client         *spotify.Client
	httpClient     *http.Client
	apiBaseURL     string
	market         string
	rps            float64
	burst          int
	onTokenRefresh func(*oauth2.Token)
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithAPIBaseURL points the Web API client at another host. The URL must end with a slash.
func WithAPIBaseURL(u string) Option {
	return func(s *SpotifyService) { s.apiBaseURL = u }
}

// WithHTTPClient sets the client used for token exchange and as the base transport for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithEndpoint overrides the OAuth2 authorize and token URLs.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(s *SpotifyService) { s.config.Endpoint = e }
}

// WithPacing limits outgoing API requests to rps per second. Zero disables pacing.
func WithPacing(rps float64, burst int) Option {
	return func(s *SpotifyService) {
		s.rps = rps
		s.burst = burst
	}
}

// WithMarket restricts recommendations to tracks playable in an ISO 3166-1 alpha-2 market.
func WithMarket(market string) Option {
	return func(s *SpotifyService) { s.market = market }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...Option) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the underlying OAuth2 configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenRefreshCallback registers fn to receive every token the service obtains.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Authenticate builds the API client from token. Expired tokens are refreshed on first use.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: no token available, run 'plbop auth'", shared.ErrNotAuthenticated)
	}

	source := &refreshableTokenSource{
		source:   s.config.TokenSource(s.oauthContext(ctx), token),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}

	base := s.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	httpClient := &http.Client{
		Timeout: s.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, source),
			Base:   newPacedTransport(base, s.rps, s.burst),
		},
	}

	var clientOpts []spotify.ClientOption
	if s.apiBaseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(s.apiBaseURL))
	}

	s.token = token
	s.client = spotify.New(httpClient, clientOpts...)
	return nil
}

func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *SpotifyService) api() (*spotify.Client, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.client, nil
}

// CurrentUserID returns the ID of the authorized user.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	api, err := s.api()
	if err != nil {
		return "", err
	}

	user, err := api.CurrentUser(ctx)
	if err != nil {
		return "", wrapAPIError(err, "current user")
	}
	return user.ID, nil
}

// Playlist retrieves a playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	api, err := s.api()
	if err != nil {
		return nil, err
	}

	p, err := api.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields("id,name,owner(id),public"))
	if err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, wrapAPIError(err, "playlist %s", playlistID)
	}

	return &models.Playlist{
		ID:      p.ID.String(),
		Name:    p.Name,
		OwnerID: p.Owner.ID,
		Public:  p.IsPublic,
	}, nil
}

// PlaylistTrackIDs pages through a playlist and returns its track IDs.
// Local files and podcast episodes have no track ID and are skipped.
func (s *SpotifyService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	api, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := api.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(pageSize))
	if err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, wrapAPIError(err, "playlist items %s", playlistID)
	}

	var ids []string
	for {
		for _, item := range page.Items {
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			ids = append(ids, item.Track.Track.ID.String())
		}

		err := api.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, wrapAPIError(err, "playlist items %s", playlistID)
		}
	}
	return ids, nil
}

// UserPlaylists pages through the playlists on a user's profile.
func (s *SpotifyService) UserPlaylists(ctx context.Context, userID string) ([]models.Playlist, error) {
	api, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := api.GetPlaylistsForUser(ctx, userID, spotify.Limit(pageSize))
	if err != nil {
		return nil, wrapAPIError(err, "playlists for %s", userID)
	}

	var playlists []models.Playlist
	for {
		for _, p := range page.Playlists {
			playlists = append(playlists, models.Playlist{
				ID:         p.ID.String(),
				Name:       p.Name,
				OwnerID:    p.Owner.ID,
				TrackCount: int(p.Tracks.Total),
				Public:     p.IsPublic,
			})
		}

		err := api.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, wrapAPIError(err, "playlists for %s", userID)
		}
	}
	return playlists, nil
}

// Recommendations requests up to limit tracks seeded by the given track IDs.
func (s *SpotifyService) Recommendations(ctx context.Context, seeds []string, limit int) ([]models.Track, error) {
	switch {
	case len(seeds) == 0:
		return nil, shared.ErrNoSeeds
	case len(seeds) > MaxSeeds:
		return nil, fmt.Errorf("%w: got %d, max %d", shared.ErrTooManySeeds, len(seeds), MaxSeeds)
	}

	api, err := s.api()
	if err != nil {
		return nil, err
	}

	opts := []spotify.RequestOption{spotify.Limit(limit)}
	if s.market != "" {
		opts = append(opts, spotify.Market(s.market))
	}

	seedIDs := lo.Map(seeds, func(id string, _ int) spotify.ID { return spotify.ID(id) })
	recs, err := api.GetRecommendations(ctx, spotify.Seeds{Tracks: seedIDs}, spotify.NewTrackAttributes(), opts...)
	if err != nil {
		return nil, wrapAPIError(err, "recommendations")
	}

	tracks := make([]models.Track, 0, len(recs.Tracks))
	for _, t := range recs.Tracks {
		track := models.Track{
			ID:       t.ID.String(),
			Title:    t.Name,
			Duration: int(t.Duration) / 1000,
		}
		if len(t.Artists) > 0 {
			track.Artist = t.Artists[0].Name
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// ReplacePlaylistTracks overwrites a playlist. The first batch replaces the
// contents; any remaining tracks are appended in batches.
func (s *SpotifyService) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	api, err := s.api()
	if err != nil {
		return err
	}

	ids := lo.Map(trackIDs, func(id string, _ int) spotify.ID { return spotify.ID(id) })
	first := ids[:min(len(ids), maxWriteBatch)]

	if err := api.ReplacePlaylistTracks(ctx, spotify.ID(playlistID), first...); err != nil {
		return wrapAPIError(err, "replace tracks in %s", playlistID)
	}

	if len(ids) <= maxWriteBatch {
		return nil
	}

	for _, batch := range lo.Chunk(ids[maxWriteBatch:], maxWriteBatch) {
		if _, err := api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...); err != nil {
			return wrapAPIError(err, "add tracks to %s", playlistID)
		}
	}
	return nil
}

func hasStatus(err error, status int) bool {
	var apiErr spotify.Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// refreshRejected reports whether the token endpoint refused a refresh, which is how a revoked
// refresh token surfaces before any request reaches the Web API.
func refreshRejected(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return false
	}
	if retrieveErr.ErrorCode == "invalid_grant" {
		return true
	}
	if resp := retrieveErr.Response; resp != nil {
		return resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized
	}
	return false
}

func wrapAPIError(err error, format string, args ...any) error {
	op := fmt.Sprintf(format, args...)
	if hasStatus(err, http.StatusUnauthorized) || refreshRejected(err) {
		return fmt.Errorf("%w: %s: %v", shared.ErrTokenExpired, op, err)
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
}
