package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/plbop/internal/models"
	"github.com/desertthunder/plbop/internal/server"
	"github.com/desertthunder/plbop/internal/services"
	"github.com/desertthunder/plbop/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// oauthService is a [services.Service] that can run the authorization-code flow.
type oauthService interface {
	services.Service
	server.Exchanger
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
}

var _ oauthService = (*services.SpotifyService)(nil)

// Auth performs OAuth2 authentication flow for Spotify and saves the tokens to the config file.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: set client_id and client_secret in %s or .env", shared.ErrMissingCredentials, r.configPath)
	}

	svc, ok := r.spotify.(oauthService)
	if !ok {
		return fmt.Errorf("%w: %s does not support OAuth2", shared.ErrServiceUnavailable, r.spotify.Name())
	}

	token, err := r.doOAuth(ctx, svc, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath != "" {
		r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	}
	r.writePlain("You can now use: plbop fill -p <playlist>\n")

	return nil
}

// Playlists lists the playlists visible for a user, marking the ones they own.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.authenticate(ctx); err != nil {
		return err
	}

	var (
		user      string
		playlists []models.Playlist
	)
	err := r.withReauth(ctx, func() error {
		var err error
		if user, err = r.resolveUser(ctx, cmd.String("user")); err != nil {
			return err
		}
		playlists, err = r.spotify.UserPlaylists(ctx, user)
		return err
	})
	if err != nil {
		return err
	}

	r.logger.Info("listed playlists", "user", user, "count", len(playlists))

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	r.writePlain("Found %d playlists for %s:\n\n", len(playlists), user)
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.OwnerID == user {
			r.writePlain("   Owner: %s (counts as known)\n", p.OwnerID)
		} else {
			r.writePlain("   Owner: %s\n", p.OwnerID)
		}
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// resolveUser picks the flag value, then the configured user, then the token owner.
func (r *Runner) resolveUser(ctx context.Context, flagUser string) (string, error) {
	if flagUser != "" {
		return flagUser, nil
	}
	if r.config.Spotify.User != "" {
		return r.config.Spotify.User, nil
	}
	return r.spotify.CurrentUserID(ctx)
}

// withReauth runs fn, and when it fails with an expired token runs the OAuth2 flow once and retries.
func (r *Runner) withReauth(ctx context.Context, fn func() error) error {
	err := fn()
	if !errors.Is(err, shared.ErrTokenExpired) {
		return err
	}

	if authErr := r.reauthorize(ctx); authErr != nil {
		return fmt.Errorf("reauthorization failed: %w", authErr)
	}
	return fn()
}

// reauthorize replaces a token that can no longer be refreshed.
func (r *Runner) reauthorize(ctx context.Context) error {
	svc, ok := r.spotify.(oauthService)
	if !ok {
		return fmt.Errorf("%w: %s does not support reauthorization", shared.ErrTokenExpired, r.spotify.Name())
	}

	r.writePlainln("⚠ Authentication token expired. Starting reauthorization...")

	token, err := r.doOAuth(ctx, svc, "reauthorization")
	if err != nil {
		return err
	}
	if err := r.saveTokens(token); err != nil {
		return err
	}
	if err := svc.Authenticate(ctx, token); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...")
	return nil
}

// doOAuth executes the OAuth2 authorization flow.
//
// A redirect URI on this machine is served by a temporary callback server.
// Any other redirect URI falls back to asking the user to paste the URL the browser landed on.
func (r *Runner) doOAuth(ctx context.Context, svc oauthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := svc.GetAuthURL(state)
	redirect := svc.GetOAuthConfig().RedirectURL

	if addr, path, ok := server.LocalCallback(redirect); ok {
		return r.waitForCallback(ctx, svc, state, authURL, addr, path, prefix)
	}
	return r.pasteCallback(ctx, svc, state, authURL, prefix)
}

func (r *Runner) promptBrowser(authURL, prefix string) {
	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}
}

// waitForCallback serves the redirect URI locally until the callback arrives or the auth timeout passes.
func (r *Runner) waitForCallback(ctx context.Context, svc oauthService, state, authURL, addr, path, prefix string) (*oauth2.Token, error) {
	oauthHandler := server.NewOAuthHandler(svc, state, path)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)
	r.logger.Debug("callback routes", "patterns", router.Patterns())

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot listen on %s: %v", shared.ErrServiceUnavailable, addr, err)
	}

	httpServer := server.NewServer(addr, router)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, addr)
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.promptBrowser(authURL, prefix)
	r.writePlain("→ Waiting for authorization (%v timeout)...\n", r.authTimeout)

	timeout := time.NewTimer(r.authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, r.authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// pasteCallback reads the redirected URL from input and exchanges the code it carries.
func (r *Runner) pasteCallback(ctx context.Context, svc oauthService, state, authURL, prefix string) (*oauth2.Token, error) {
	r.promptBrowser(authURL, prefix)
	r.writePlain("After approving access, paste the URL your browser was redirected to:\n> ")

	scanner := bufio.NewScanner(r.input)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read redirect URL: %w", err)
		}
		return nil, fmt.Errorf("%w: redirect URL", shared.ErrMissingArgument)
	}

	code, err := server.ParseCallbackURL(scanner.Text(), state)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}

	return svc.Exchange(ctx, code)
}
