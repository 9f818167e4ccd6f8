// Package registry manages leaderboard definitions and the player
// directory. Boards are addressed by a public id and guarded by a secret
// key; players hold a private key used to verify signed submissions.
package registry

import (
	"context"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
)

// Registry is the contract for board and player lookups and admin
// operations.
type Registry interface {
	// Resolve returns the board. ErrNotFound when absent or soft-deleted.
	Resolve(ctx context.Context, id uuid.UUID) (model.Leaderboard, error)

	// Authenticate compares the supplied key against the board secret in
	// constant time. ErrNotFound when the board is absent or soft-deleted.
	Authenticate(ctx context.Context, id uuid.UUID, suppliedKey string) (bool, error)

	// List returns all boards that are not soft-deleted.
	List(ctx context.Context) ([]model.Leaderboard, error)

	// Provision creates a board with a generated id and secret. Empty
	// ordering and update policy fall back to higher-is-better keep-best.
	Provision(ctx context.Context, name string, ordering policy.Ordering, updatePolicy policy.UpdatePolicy) (model.Leaderboard, error)

	// RotateKey replaces the board secret and returns the new one.
	RotateKey(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

	// UpdateMeta renames the board. Ordering and update policy are fixed
	// at provisioning time.
	UpdateMeta(ctx context.Context, id uuid.UUID, name string) error

	// SoftDelete hides the board from resolution. Score data is retained.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// CreatePlayer registers a player with a generated id and key. A blank
	// name gets a generated one.
	CreatePlayer(ctx context.Context, name string) (model.Player, error)

	// Player returns the player. ErrPlayerNotFound when absent.
	Player(ctx context.Context, id uuid.UUID) (model.Player, error)
}
