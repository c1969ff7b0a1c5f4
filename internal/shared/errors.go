package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Run-level (fatal) errors
	ErrInvalidPlaylistRef = fmt.Errorf("invalid playlist reference")
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrPlaylistFetch      = fmt.Errorf("playlist fetch failed")
	ErrCorruptLedger      = fmt.Errorf("corrupt ledger")

	// Per-track errors
	ErrSearch         = fmt.Errorf("search failed")
	ErrFetchTranscode = fmt.Errorf("fetch/transcode failed")
	ErrLedgerWrite    = fmt.Errorf("ledger write failed")
	ErrFilesystem     = fmt.Errorf("filesystem operation failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
