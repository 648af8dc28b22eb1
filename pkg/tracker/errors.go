package tracker

import "errors"

var (
	// ErrUpdateInFlight indicates a poll fired while the previous one was
	// still running; the caller should lower the polling rate or page count
	ErrUpdateInFlight = errors.New("poll already in flight")

	// ErrTrackerStopped indicates the tracker reached its terminal state
	ErrTrackerStopped = errors.New("tracker is stopped")

	// ErrDriverDisconnected indicates the shared browser session is gone;
	// recovery belongs to the supervisor, not the tracker
	ErrDriverDisconnected = errors.New("driver disconnected")

	// ErrSnapshotInvalid indicates the fetched listing failed validation
	ErrSnapshotInvalid = errors.New("listing snapshot failed validation")

	// ErrSnapshotEmpty indicates the first listing page carried no articles
	// at all; the cycle is aborted so a site glitch cannot wipe the baseline
	ErrSnapshotEmpty = errors.New("listing snapshot is empty")
)
