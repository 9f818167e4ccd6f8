package registry

import "errors"

var (
	// ErrNotFound indicates the leaderboard does not exist or has been
	// soft-deleted.
	ErrNotFound = errors.New("leaderboard not found")

	// ErrAuthenticationFailed indicates the supplied credentials do not
	// match the board secret or the submission signature.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrPlayerNotFound indicates the player is not registered.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrInvalidOrdering indicates an unknown ordering value.
	ErrInvalidOrdering = errors.New("invalid ordering")

	// ErrInvalidUpdatePolicy indicates an unknown update policy value.
	ErrInvalidUpdatePolicy = errors.New("invalid update policy")

	// ErrEmptyName indicates a missing leaderboard name.
	ErrEmptyName = errors.New("leaderboard name required")
)
