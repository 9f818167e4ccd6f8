package registry

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
	"github.com/rparrett/jornet/pkg/namegen"
)

// Memory is an in-memory Registry for tests and local development. Safe
// for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	boards  map[uuid.UUID]model.Leaderboard
	players map[uuid.UUID]model.Player
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		boards:  make(map[uuid.UUID]model.Leaderboard),
		players: make(map[uuid.UUID]model.Player),
	}
}

// Resolve implements Registry.
func (m *Memory) Resolve(ctx context.Context, id uuid.UUID) (model.Leaderboard, error) {
	if err := ctx.Err(); err != nil {
		return model.Leaderboard{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	board, ok := m.boards[id]
	if !ok || board.Deleted {
		return model.Leaderboard{}, ErrNotFound
	}
	return board, nil
}

// Authenticate implements Registry.
func (m *Memory) Authenticate(ctx context.Context, id uuid.UUID, suppliedKey string) (bool, error) {
	board, err := m.Resolve(ctx, id)
	if err != nil {
		return false, err
	}
	return SecretMatches(board.Secret, suppliedKey), nil
}

// SecretMatches compares a supplied key against the board secret in
// constant time.
func SecretMatches(secret uuid.UUID, suppliedKey string) bool {
	supplied, err := uuid.Parse(strings.TrimSpace(suppliedKey))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(supplied[:], secret[:]) == 1
}

// List implements Registry.
func (m *Memory) List(ctx context.Context) ([]model.Leaderboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Leaderboard, 0, len(m.boards))
	for _, board := range m.boards {
		if !board.Deleted {
			out = append(out, board)
		}
	}
	return out, nil
}

// Provision implements Registry.
func (m *Memory) Provision(ctx context.Context, name string, ordering policy.Ordering, updatePolicy policy.UpdatePolicy) (model.Leaderboard, error) {
	if err := ctx.Err(); err != nil {
		return model.Leaderboard{}, err
	}
	board, err := NewBoard(name, ordering, updatePolicy)
	if err != nil {
		return model.Leaderboard{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[board.ID] = board
	return board, nil
}

// NewBoard validates inputs and builds a leaderboard record with generated
// credentials. Shared by registry implementations.
func NewBoard(name string, ordering policy.Ordering, updatePolicy policy.UpdatePolicy) (model.Leaderboard, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Leaderboard{}, ErrEmptyName
	}
	if ordering == "" {
		ordering = policy.HigherIsBetter
	}
	if !ordering.Valid() {
		return model.Leaderboard{}, ErrInvalidOrdering
	}
	if updatePolicy == "" {
		updatePolicy = policy.KeepBest
	}
	if !updatePolicy.Valid() {
		return model.Leaderboard{}, ErrInvalidUpdatePolicy
	}
	return model.Leaderboard{
		ID:           uuid.New(),
		Secret:       uuid.New(),
		Name:         name,
		Ordering:     ordering,
		UpdatePolicy: updatePolicy,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// RotateKey implements Registry.
func (m *Memory) RotateKey(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	board, ok := m.boards[id]
	if !ok || board.Deleted {
		return uuid.Nil, ErrNotFound
	}
	board.Secret = uuid.New()
	m.boards[id] = board
	return board.Secret, nil
}

// UpdateMeta implements Registry.
func (m *Memory) UpdateMeta(ctx context.Context, id uuid.UUID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	board, ok := m.boards[id]
	if !ok || board.Deleted {
		return ErrNotFound
	}
	board.Name = name
	m.boards[id] = board
	return nil
}

// SoftDelete implements Registry.
func (m *Memory) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	board, ok := m.boards[id]
	if !ok || board.Deleted {
		return ErrNotFound
	}
	board.Deleted = true
	m.boards[id] = board
	return nil
}

// CreatePlayer implements Registry.
func (m *Memory) CreatePlayer(ctx context.Context, name string) (model.Player, error) {
	if err := ctx.Err(); err != nil {
		return model.Player{}, err
	}
	player := model.Player{
		ID:   uuid.New(),
		Key:  uuid.New(),
		Name: strings.TrimSpace(name),
	}
	if player.Name == "" {
		player.Name = namegen.New()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[player.ID] = player
	return player, nil
}

// Player implements Registry.
func (m *Memory) Player(ctx context.Context, id uuid.UUID) (model.Player, error) {
	if err := ctx.Err(); err != nil {
		return model.Player{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	player, ok := m.players[id]
	if !ok {
		return model.Player{}, ErrPlayerNotFound
	}
	return player, nil
}
