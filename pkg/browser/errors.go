package browser

import "errors"

var (
	// ErrSessionStart indicates the browser process could not be launched
	ErrSessionStart = errors.New("failed to start browser session")

	// ErrSessionDisconnected indicates the shared browser session is gone
	ErrSessionDisconnected = errors.New("browser session disconnected")

	// ErrPageClosed indicates the tab backing this page no longer exists
	ErrPageClosed = errors.New("page is closed")

	// ErrNavigation indicates a page navigation failed
	ErrNavigation = errors.New("navigation failed")
)
