// Package scorestore persists submitted scores and serves the current
// per-player projection used for ranking. Writes are durable before the
// rank index sees them; the stored projection is the source of truth a
// rank index can always be rebuilt from.
package scorestore

import (
	"context"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
)

// Store is the persistence contract for score history and the current
// per-player projection.
type Store interface {
	// Put applies the board's update policy to the candidate entry and
	// persists the outcome. It returns the player's current entry after
	// the write and whether ranking state changed. A policy no-op is not
	// an error; it returns the retained entry with changed=false.
	Put(ctx context.Context, board model.Leaderboard, entry model.ScoreEntry) (model.ScoreEntry, bool, error)

	// GetCurrent returns the player's current entry on the board.
	// ErrNoEntry when the player has never scored there.
	GetCurrent(ctx context.Context, boardID, playerID uuid.UUID) (model.ScoreEntry, error)

	// History returns all retained entries for the player, oldest first.
	// Only keep-all boards retain superseded entries.
	History(ctx context.Context, boardID, playerID uuid.UUID) ([]model.ScoreEntry, error)

	// CurrentEntries returns the full current projection of the board,
	// one entry per player. Feeds rank index rebuilds.
	CurrentEntries(ctx context.Context, boardID uuid.UUID) ([]model.ScoreEntry, error)
}
