// Package server runs the short-lived local HTTP server that completes the Spotify authorization.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [Middleware] wraps handlers in
// reverse order (last added executes first). [BasicRouter] uses [http.ServeMux] method patterns.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback. It validates the state parameter, exchanges
// the code for a token and sends the result through a channel. Only the first callback is processed.
//
// # Callback Server
//
// [CallbackServer] binds the redirect address, serves the handler and shuts down once a result arrives,
// the context ends or the timeout passes. The "spotify auth" command stores the resulting token in the
// config file so later runs can refresh it without a browser.
package server
