package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Remote feed / stats errors. ErrTransport covers network and parse
	// failures; during an incremental fetch it triggers the full-listing
	// fallback, during a full fetch it aborts the pass.
	ErrTransport = fmt.Errorf("transport error")

	// ErrNotFound covers both missing catalog rows and remote items that
	// no longer exist.
	ErrNotFound = fmt.Errorf("not found")

	// Local file errors are logged and never abort a sync pass.
	ErrFilesystem = fmt.Errorf("filesystem error")

	// Download errors
	ErrDownloadFailed = fmt.Errorf("download failed")

	// Store errors
	ErrFolderCycle = fmt.Errorf("folder hierarchy cycle")
	ErrDuplicate   = fmt.Errorf("already exists")

	// Provider errors
	ErrUnknownProvider = fmt.Errorf("unknown provider")
	ErrInvalidURL      = fmt.Errorf("URL not recognized by any provider")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
