package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/unavoidables/internal/server"
	"github.com/desertthunder/unavoidables/internal/services"
	"github.com/desertthunder/unavoidables/internal/shared"
)

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map(), services.WithSpotifyLogger(r.logger))
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, svc, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	if r.config.Spotify.UserID == "" {
		svc.UseToken(context.WithValue(ctx, oauth2.HTTPClient, r.httpClient), token)
		if _, id, err := svc.CurrentUser(ctx); err != nil {
			r.logger.Warn("could not look up the authorized user", "error", err)
		} else {
			r.config.Spotify.UserID = id
		}
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: %s run\n", appName)
	return nil
}

// SpotifyStatus reports the authorized user and the state of the synchronized playlist.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.spotifyService(ctx)
	if err != nil {
		return err
	}
	defer r.persistToken()

	name, id, err := svc.CurrentUser(ctx)
	if err != nil {
		return err
	}
	r.writePlain("✓ Authorized as %s (%s)\n", name, id)

	playlist, err := svc.FindPlaylist(ctx, r.config.Spotify.PlaylistName)
	switch {
	case errors.Is(err, shared.ErrPlaylistNotFound):
		r.writePlain("⚠ Playlist %q not found, create it before syncing\n", r.config.Spotify.PlaylistName)
		return nil
	case err != nil:
		return err
	}

	r.writePlain("Playlist: %s\n", playlist.Name)
	r.writePlain("   ID: %s\n", playlist.ID)
	r.writePlain("   Tracks: %d\n", playlist.TrackCount)
	if playlist.Description != "" {
		r.writePlain("   Description: %s\n", playlist.Description)
	}
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local callback server.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, timeout time.Duration) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	config := oauthSrv.OAuthConfig()
	handler := server.NewOAuthHandler(config, state)
	addr := server.CallbackAddr(config.RedirectURL, r.config.Server.Host, r.config.Server.Port)

	srv := server.NewCallbackServer(addr, handler, r.logger)
	if err := srv.Start(); err != nil {
		return nil, err
	}
	r.logger.Infof("started OAuth callback server at %v", srv.Addr())

	authURL := oauthSrv.GetAuthURL(state)
	r.writePlainln("→ Opening browser for Spotify authorization...")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	if timeout <= 0 {
		timeout = server.DefaultAuthTimeout
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	return srv.Wait(ctx, timeout)
}
