// package services defines the catalog search and playlist interfaces and their HTTP implementations
//
// Spotify Web API, chart page fetching
package services

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/desertthunder/unavoidables/internal/models"
)

// Searcher is a catalog that can be searched by free text for tracks.
type Searcher interface {
	// SearchTracks returns at most limit track candidates for query, in the catalog's own order.
	// Zero results is not an error. Any failure to ask the catalog is wrapped with [shared.ErrTransport].
	SearchTracks(ctx context.Context, query string, limit int) (*SearchResult, error)
}

// PlaylistService reads and writes the synchronized playlist.
type PlaylistService interface {
	// FindPlaylist returns the current user's playlist with the given name or [shared.ErrPlaylistNotFound].
	FindPlaylist(ctx context.Context, name string) (*Playlist, error)

	// PlaylistItems returns the identifiers of every track in the playlist, in playlist order.
	PlaylistItems(ctx context.Context, playlistID string) ([]string, error)

	// AddItems adds identifiers to the playlist. A nil position appends.
	AddItems(ctx context.Context, playlistID string, identifiers []string, position *int) error

	// UpdateDescription replaces the playlist description.
	UpdateDescription(ctx context.Context, playlistID, description string) error
}

// OAuthService is a provider that supports the authorization code flow.
type OAuthService interface {
	// GetAuthURL returns the URL the user visits to grant access.
	GetAuthURL(state string) string

	// OAuthConfig exposes the oauth2 configuration used by the callback handler.
	OAuthConfig() *oauth2.Config
}

// SearchResult is one page of catalog search results.
type SearchResult struct {
	TotalCount int
	Items      []models.CatalogCandidate
	Rejected   int // items dropped on ingress because they were malformed
}

// Playlist represents a playlist on the catalog service.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}
