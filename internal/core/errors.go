package core

import "errors"

var (
	// ErrMissingRequiredField is returned when a scrape has no prompt or seed.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrUnsupportedSource is returned for source pages outside the configured site.
	ErrUnsupportedSource = errors.New("unsupported source url")
	ErrNothingToExport   = errors.New("no images to export")
	ErrInvalidImport     = errors.New("invalid import file format")
	ErrInvalidEdit       = errors.New("title and prompt are required")
	// ErrThumbnailsDisabled is returned by RefreshThumbnails when generation is turned off.
	ErrThumbnailsDisabled = errors.New("thumbnail generation is disabled")
)
