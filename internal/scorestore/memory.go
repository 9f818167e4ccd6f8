package scorestore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
)

// playerScores holds one player's retained entries on one board.
type playerScores struct {
	current    model.ScoreEntry
	hasCurrent bool
	history    []model.ScoreEntry
}

// Memory is an in-memory Store for tests and local development. Safe for
// concurrent use.
type Memory struct {
	mu     sync.RWMutex
	boards map[uuid.UUID]map[uuid.UUID]*playerScores
}

// NewMemory creates an empty in-memory score store.
func NewMemory() *Memory {
	return &Memory{
		boards: make(map[uuid.UUID]map[uuid.UUID]*playerScores),
	}
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, board model.Leaderboard, entry model.ScoreEntry) (model.ScoreEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.ScoreEntry{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	players, ok := m.boards[board.ID]
	if !ok {
		players = make(map[uuid.UUID]*playerScores)
		m.boards[board.ID] = players
	}
	ps, ok := players[entry.PlayerID]
	if !ok {
		ps = &playerScores{}
		players[entry.PlayerID] = ps
	}

	decision := policy.Decide(board.UpdatePolicy, board.Ordering, ps.hasCurrent, ps.current.Value, entry.Value)
	switch decision {
	case policy.KeepCurrent:
		return ps.current, false, nil
	case policy.ReplaceCurrent:
		ps.history = append(ps.history[:0], entry)
		ps.current = entry
		ps.hasCurrent = true
		return ps.current, true, nil
	case policy.AppendHistory:
		ps.history = append(ps.history, entry)
		if supersedes(board.Ordering, ps.hasCurrent, ps.current, entry) {
			ps.current = entry
			ps.hasCurrent = true
			return ps.current, true, nil
		}
		return ps.current, false, nil
	}
	return ps.current, false, nil
}

// supersedes reports whether candidate becomes the current entry: strictly
// better under the ordering, or equal with an earlier timestamp.
func supersedes(o policy.Ordering, hasCurrent bool, current, candidate model.ScoreEntry) bool {
	if !hasCurrent {
		return true
	}
	if o.Better(candidate.Value, current.Value) {
		return true
	}
	return candidate.Value == current.Value && candidate.Timestamp.Before(current.Timestamp)
}

// GetCurrent implements Store.
func (m *Memory) GetCurrent(ctx context.Context, boardID, playerID uuid.UUID) (model.ScoreEntry, error) {
	if err := ctx.Err(); err != nil {
		return model.ScoreEntry{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ps, ok := m.boards[boardID][playerID]
	if !ok || !ps.hasCurrent {
		return model.ScoreEntry{}, ErrNoEntry
	}
	return ps.current, nil
}

// History implements Store.
func (m *Memory) History(ctx context.Context, boardID, playerID uuid.UUID) ([]model.ScoreEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ps, ok := m.boards[boardID][playerID]
	if !ok || len(ps.history) == 0 {
		return nil, ErrNoEntry
	}
	out := make([]model.ScoreEntry, len(ps.history))
	copy(out, ps.history)
	return out, nil
}

// CurrentEntries implements Store.
func (m *Memory) CurrentEntries(ctx context.Context, boardID uuid.UUID) ([]model.ScoreEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	players := m.boards[boardID]
	out := make([]model.ScoreEntry, 0, len(players))
	for _, ps := range players {
		if ps.hasCurrent {
			out = append(out, ps.current)
		}
	}
	return out, nil
}
