package rankindex

import "errors"

// Sentinel kinds for rank index errors.
var (
	ErrNotRanked     = errors.New("player not ranked")
	ErrInvalidLimit  = errors.New("invalid top limit")
	ErrInvalidWindow = errors.New("invalid around window")
)
