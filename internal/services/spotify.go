// Spotify Web API implementation of [Searcher] and [PlaylistService]
//
// Reads go through github.com/zmb3/spotify/v2. Position-aware adds use a raw authenticated request.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1/"

	playlistPageSize = 50
	itemsPageSize    = 100
	// MaxAddBatch is the most identifiers one add request accepts.
	MaxAddBatch = 100
)

// SpotifyService talks to the Spotify Web API on behalf of one user.
//
// Uses [oauth2] for authentication; the token source refreshes expired access tokens.
type SpotifyService struct {
	config     *oauth2.Config
	tokens     oauth2.TokenSource
	httpClient *http.Client
	client     *spotify.Client
	baseURL    string
	ownerID    string
	logger     *log.Logger
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the service at another API root, used against test servers.
func WithBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		s.baseURL = baseURL
	}
}

// WithOwner restricts playlist lookups to playlists owned by userID.
func WithOwner(userID string) SpotifyOption {
	return func(s *SpotifyService) { s.ownerID = userID }
}

// WithSpotifyLogger sets the logger used for ingress warnings.
func WithSpotifyLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) { s.logger = l }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes: []string{
				"user-read-private",
				"playlist-read-private",
				"playlist-read-collaborative",
				"playlist-modify-public",
				"playlist-modify-private",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		baseURL: spotifyBaseURL,
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

// OAuthConfig returns the oauth2 configuration.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// Authenticate sets up the API client from credentials.
//
// Accepts an "access_token" (optionally with "refresh_token") or an "auth_code" to exchange.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		s.UseToken(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    credentials["token_type"],
		})
		return nil
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.UseToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code in credentials", shared.ErrMissingCredentials)
}

// UseToken builds the API client around token. Expired tokens are refreshed on first use.
func (s *SpotifyService) UseToken(ctx context.Context, token *oauth2.Token) {
	s.tokens = s.config.TokenSource(ctx, token)
	s.httpClient = oauth2.NewClient(ctx, s.tokens)
	s.client = spotify.New(s.httpClient, spotify.WithBaseURL(s.baseURL))
}

// Token returns the current token, refreshed if it had expired.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.tokens == nil {
		return nil, shared.ErrNotAuthenticated
	}
	token, err := s.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}
	return token, nil
}

func (s *SpotifyService) ready() error {
	if s.client == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return nil
}

// CurrentUser returns the display name and id of the authenticated user.
func (s *SpotifyService) CurrentUser(ctx context.Context) (name, id string, err error) {
	if err := s.ready(); err != nil {
		return "", "", err
	}
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return user.DisplayName, user.ID, nil
}

// SearchTracks implements [Searcher].
//
// Malformed items are dropped and counted in [SearchResult.Rejected].
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if err := s.ready(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	res, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %v", shared.ErrTransport, query, err)
	}

	result := &SearchResult{}
	if res.Tracks == nil {
		return result, nil
	}

	result.TotalCount = int(res.Tracks.Total)
	for _, track := range res.Tracks.Tracks {
		candidate := candidateFromTrack(track)
		if err := candidate.Validate(); err != nil {
			result.Rejected++
			if s.logger != nil {
				s.logger.Warn("dropping search result", "query", query, "err", err)
			}
			continue
		}
		result.Items = append(result.Items, candidate)
	}

	return result, nil
}

func candidateFromTrack(t spotify.FullTrack) models.CatalogCandidate {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return models.CatalogCandidate{
		Title:      t.Name,
		Artists:    artists,
		Identifier: string(t.URI),
	}
}

// FindPlaylist implements [PlaylistService] by paging through the current user's playlists.
func (s *SpotifyService) FindPlaylist(ctx context.Context, name string) (*Playlist, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	page, err := s.client.CurrentUsersPlaylists(ctx, spotify.Limit(playlistPageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list playlists: %v", shared.ErrAPIRequest, err)
	}

	for {
		for _, p := range page.Playlists {
			if p.Name != name {
				continue
			}
			if s.ownerID != "" && p.Owner.ID != s.ownerID {
				continue
			}
			return &Playlist{
				ID:          string(p.ID),
				Name:        p.Name,
				Description: p.Description,
				TrackCount:  int(p.Tracks.Total),
				Public:      p.IsPublic,
			}, nil
		}

		err := s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list playlists: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
}

// PlaylistItems implements [PlaylistService]. Episodes and local files without a track are skipped.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(itemsPageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read playlist items: %v", shared.ErrAPIRequest, err)
	}

	var uris []string
	for {
		for _, item := range page.Items {
			if item.Track.Track == nil {
				continue
			}
			uris = append(uris, string(item.Track.Track.URI))
		}

		err := s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read playlist items: %v", shared.ErrAPIRequest, err)
		}
	}

	return uris, nil
}

type addItemsRequest struct {
	URIs     []string `json:"uris"`
	Position *int     `json:"position,omitempty"`
}

// AddItems implements [PlaylistService]. At most [MaxAddBatch] identifiers per call.
func (s *SpotifyService) AddItems(ctx context.Context, playlistID string, identifiers []string, position *int) error {
	if len(identifiers) == 0 {
		return nil
	}
	if len(identifiers) > MaxAddBatch {
		return fmt.Errorf("%w: at most %d items per request, got %d", shared.ErrInvalidArgument, MaxAddBatch, len(identifiers))
	}

	endpoint := fmt.Sprintf("playlists/%s/tracks", playlistID)
	body := addItemsRequest{URIs: identifiers, Position: position}
	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// UpdateDescription implements [PlaylistService].
func (s *SpotifyService) UpdateDescription(ctx context.Context, playlistID, description string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.client.ChangePlaylistDescription(ctx, spotify.ID(playlistID), description); err != nil {
		return fmt.Errorf("%w: failed to update description: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// doRequest performs an authenticated JSON request relative to the API root.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if err := s.ready(); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", shared.ErrTokenExpired, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: spotify status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
