// Package services implements the HTTP clients behind catalog search, playlist writes and chart fetching.
//
// # Interfaces
//
// [Searcher] and [PlaylistService] are what the resolver and the playlist sync depend on, so both
// can be replaced with hand-written fakes in tests.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2.Client] refreshes expired tokens with the stored refresh token; [SpotifyService.Token]
// returns the possibly refreshed token so callers can write it back to the config.
// Searches, playlist lookups and item paging go through github.com/zmb3/spotify/v2.
// Adding items at a position is a raw POST since the client library has no position parameter.
//
// # Chart Pages
//
// [ChartService] downloads the archive page for a decade. Parsing lives in the scraper package.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrTransport] : the catalog search could not be performed
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : the API rejected the token
//   - [shared.ErrAPIRequest] : a playlist request failed
//   - [shared.ErrPlaylistNotFound] : no playlist with that name
//   - [shared.ErrServiceUnavailable] : the chart site could not be reached
package services
