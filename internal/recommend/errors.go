package recommend

import "errors"

var (
	// ErrConfig marks an invalid recommendation configuration. Raised before
	// any network traffic.
	ErrConfig = errors.New("invalid recommendation config")

	// ErrLibraryUnavailable means no library papers could be retrieved.
	ErrLibraryUnavailable = errors.New("library unavailable")

	// ErrIndexUnavailable means the bibliographic index could not serve the
	// candidate search.
	ErrIndexUnavailable = errors.New("bibliographic index unavailable")
)
