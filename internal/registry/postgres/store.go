// Package postgres provides the durable pgx-backed registry.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
	"github.com/rparrett/jornet/internal/registry"
	"github.com/rparrett/jornet/pkg/namegen"
)

// Store persists leaderboard definitions and players in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the provided pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const (
	boardSelectSQL = `
SELECT id, secret, name, ordering, update_policy, deleted, created_at
FROM leaderboards
WHERE id = @id;
`

	boardListSQL = `
SELECT id, secret, name, ordering, update_policy, deleted, created_at
FROM leaderboards
WHERE NOT deleted
ORDER BY created_at ASC;
`

	boardInsertSQL = `
INSERT INTO leaderboards (id, secret, name, ordering, update_policy, deleted, created_at)
VALUES (@id, @secret, @name, @ordering, @update_policy, FALSE, @created_at);
`

	boardRotateSQL = `
UPDATE leaderboards
SET secret = @secret
WHERE id = @id AND NOT deleted;
`

	boardRenameSQL = `
UPDATE leaderboards
SET name = @name
WHERE id = @id AND NOT deleted;
`

	boardSoftDeleteSQL = `
UPDATE leaderboards
SET deleted = TRUE
WHERE id = @id AND NOT deleted;
`

	playerInsertSQL = `
INSERT INTO players (id, key, name, created_at)
VALUES (@id, @key, @name, NOW());
`

	playerSelectSQL = `
SELECT id, key, name
FROM players
WHERE id = @id;
`
)

// Resolve implements registry.Registry.
func (s *Store) Resolve(ctx context.Context, id uuid.UUID) (model.Leaderboard, error) {
	board, err := s.fetch(ctx, id)
	if err != nil {
		return model.Leaderboard{}, err
	}
	if board.Deleted {
		return model.Leaderboard{}, registry.ErrNotFound
	}
	return board, nil
}

func (s *Store) fetch(ctx context.Context, id uuid.UUID) (model.Leaderboard, error) {
	var board model.Leaderboard
	row := s.pool.QueryRow(ctx, boardSelectSQL, pgx.NamedArgs{"id": id})
	err := row.Scan(&board.ID, &board.Secret, &board.Name, &board.Ordering, &board.UpdatePolicy, &board.Deleted, &board.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Leaderboard{}, registry.ErrNotFound
	}
	if err != nil {
		return model.Leaderboard{}, fmt.Errorf("registry: scan leaderboard: %w", err)
	}
	board.CreatedAt = board.CreatedAt.UTC()
	return board, nil
}

// Authenticate implements registry.Registry.
func (s *Store) Authenticate(ctx context.Context, id uuid.UUID, suppliedKey string) (bool, error) {
	board, err := s.Resolve(ctx, id)
	if err != nil {
		return false, err
	}
	return registry.SecretMatches(board.Secret, suppliedKey), nil
}

// List implements registry.Registry.
func (s *Store) List(ctx context.Context) ([]model.Leaderboard, error) {
	rows, err := s.pool.Query(ctx, boardListSQL)
	if err != nil {
		return nil, fmt.Errorf("registry: list leaderboards: %w", err)
	}
	defer rows.Close()

	var boards []model.Leaderboard
	for rows.Next() {
		var board model.Leaderboard
		if err := rows.Scan(&board.ID, &board.Secret, &board.Name, &board.Ordering, &board.UpdatePolicy, &board.Deleted, &board.CreatedAt); err != nil {
			return nil, fmt.Errorf("registry: scan leaderboard: %w", err)
		}
		board.CreatedAt = board.CreatedAt.UTC()
		boards = append(boards, board)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: iterate leaderboards: %w", err)
	}
	return boards, nil
}

// Provision implements registry.Registry.
func (s *Store) Provision(ctx context.Context, name string, ordering policy.Ordering, updatePolicy policy.UpdatePolicy) (model.Leaderboard, error) {
	board, err := registry.NewBoard(name, ordering, updatePolicy)
	if err != nil {
		return model.Leaderboard{}, err
	}
	args := pgx.NamedArgs{
		"id":            board.ID,
		"secret":        board.Secret,
		"name":          board.Name,
		"ordering":      string(board.Ordering),
		"update_policy": string(board.UpdatePolicy),
		"created_at":    board.CreatedAt,
	}
	if _, err := s.pool.Exec(ctx, boardInsertSQL, args); err != nil {
		return model.Leaderboard{}, fmt.Errorf("registry: insert leaderboard: %w", err)
	}
	return board, nil
}

// RotateKey implements registry.Registry.
func (s *Store) RotateKey(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	secret := uuid.New()
	tag, err := s.pool.Exec(ctx, boardRotateSQL, pgx.NamedArgs{"id": id, "secret": secret})
	if err != nil {
		return uuid.Nil, fmt.Errorf("registry: rotate key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, registry.ErrNotFound
	}
	return secret, nil
}

// UpdateMeta implements registry.Registry.
func (s *Store) UpdateMeta(ctx context.Context, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return registry.ErrEmptyName
	}
	tag, err := s.pool.Exec(ctx, boardRenameSQL, pgx.NamedArgs{"id": id, "name": name})
	if err != nil {
		return fmt.Errorf("registry: rename leaderboard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// SoftDelete implements registry.Registry.
func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, boardSoftDeleteSQL, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("registry: soft delete leaderboard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// CreatePlayer implements registry.Registry.
func (s *Store) CreatePlayer(ctx context.Context, name string) (model.Player, error) {
	player := model.Player{
		ID:   uuid.New(),
		Key:  uuid.New(),
		Name: strings.TrimSpace(name),
	}
	if player.Name == "" {
		player.Name = namegen.New()
	}
	args := pgx.NamedArgs{
		"id":   player.ID,
		"key":  player.Key,
		"name": player.Name,
	}
	if _, err := s.pool.Exec(ctx, playerInsertSQL, args); err != nil {
		return model.Player{}, fmt.Errorf("registry: insert player: %w", err)
	}
	return player, nil
}

// Player implements registry.Registry.
func (s *Store) Player(ctx context.Context, id uuid.UUID) (model.Player, error) {
	var player model.Player
	row := s.pool.QueryRow(ctx, playerSelectSQL, pgx.NamedArgs{"id": id})
	err := row.Scan(&player.ID, &player.Key, &player.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Player{}, registry.ErrPlayerNotFound
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("registry: scan player: %w", err)
	}
	return player, nil
}
