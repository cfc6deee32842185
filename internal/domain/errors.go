package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the OpenList server is unreachable
	ErrServerOffline = errors.New("server is unreachable")

	// ErrUnauthorized indicates the token is missing or rejected
	ErrUnauthorized = errors.New("authentication token is invalid")

	// ErrRequestFailed indicates the server answered with a non-success code
	ErrRequestFailed = errors.New("request failed")

	// ErrUnsupportedKind indicates the operation is not available for a media kind
	ErrUnsupportedKind = errors.New("operation not supported for media kind")

	// ErrNoCurrentItem indicates an action needs a selected track but none is selected
	ErrNoCurrentItem = errors.New("no track selected")

	// ErrFolderNotFound indicates no favorites folder matched a lookup
	ErrFolderNotFound = errors.New("favorites folder not found")

	// ErrInvalidPath indicates a server path without its leading storage segment
	ErrInvalidPath = errors.New("path must be absolute")

	// ErrPlayerNotFound indicates no usable mpv executable was found
	ErrPlayerNotFound = errors.New("mpv executable not found")

	// ErrWidgetClosed indicates the playback widget was destroyed
	ErrWidgetClosed = errors.New("playback widget is closed")
)
