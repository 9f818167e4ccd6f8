package scorestore

import "errors"

var (
	// ErrNoEntry indicates the player has no score on the board.
	ErrNoEntry = errors.New("no score entry for player")

	// ErrUnavailable indicates a transient storage failure; the write may
	// be retried.
	ErrUnavailable = errors.New("score store unavailable")
)
