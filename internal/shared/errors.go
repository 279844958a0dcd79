package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrTransport          = fmt.Errorf("search transport failed")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Data errors
	ErrMalformedRecord    = fmt.Errorf("malformed record")
	ErrMalformedCandidate = fmt.Errorf("malformed candidate")
	ErrMalformedPage      = fmt.Errorf("malformed page")
	ErrInvalidCatalog     = fmt.Errorf("invalid catalog table")
	ErrLocked             = fmt.Errorf("catalog is locked by another run")
	ErrIncompleteRun      = fmt.Errorf("run finished with unresolvable records")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
