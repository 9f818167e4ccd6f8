// Package query serves read-side leaderboard views. Reads go to the rank
// index and never block behind the write pipeline beyond the index lock.
package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
	"github.com/rparrett/jornet/internal/rankindex"
	"github.com/rparrett/jornet/internal/registry"
	"github.com/rparrett/jornet/internal/scorestore"
)

// IndexProvider yields the rank index serving a board. Callers pass the
// resolved board's ordering so first-use creation cannot default wrong.
type IndexProvider interface {
	Index(boardID uuid.UUID, ordering policy.Ordering) *rankindex.Index
}

// Service answers leaderboard queries.
type Service struct {
	registry registry.Registry
	store    scorestore.Store
	indexes  IndexProvider
}

// New creates a query service.
func New(reg registry.Registry, store scorestore.Store, indexes IndexProvider) *Service {
	return &Service{registry: reg, store: store, indexes: indexes}
}

// Top returns the first n ranked entries of the board.
func (s *Service) Top(ctx context.Context, boardID uuid.UUID, n int) ([]model.RankedEntry, error) {
	board, err := s.registry.Resolve(ctx, boardID)
	if err != nil {
		return nil, err
	}
	entries, err := s.indexes.Index(board.ID, board.Ordering).Top(n)
	if err != nil {
		return nil, err
	}
	return ranked(entries), nil
}

// Around returns the window of entries surrounding the player, clamped to
// the board edges.
func (s *Service) Around(ctx context.Context, boardID, playerID uuid.UUID, window int) ([]model.RankedEntry, error) {
	board, err := s.registry.Resolve(ctx, boardID)
	if err != nil {
		return nil, err
	}
	entries, err := s.indexes.Index(board.ID, board.Ordering).Around(playerID, window)
	if err != nil {
		return nil, err
	}
	return ranked(entries), nil
}

// Rank returns the player's current ranked entry.
func (s *Service) Rank(ctx context.Context, boardID, playerID uuid.UUID) (model.RankedEntry, error) {
	board, err := s.registry.Resolve(ctx, boardID)
	if err != nil {
		return model.RankedEntry{}, err
	}
	entry, err := s.indexes.Index(board.ID, board.Ordering).RankOf(playerID)
	if err != nil {
		return model.RankedEntry{}, err
	}
	return rankedOne(entry), nil
}

// History returns the player's retained score entries, oldest first. Only
// keep-all boards hold more than the current entry.
func (s *Service) History(ctx context.Context, boardID, playerID uuid.UUID) ([]model.ScoreEntry, error) {
	board, err := s.registry.Resolve(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return s.store.History(ctx, board.ID, playerID)
}

func ranked(entries []rankindex.Entry) []model.RankedEntry {
	out := make([]model.RankedEntry, len(entries))
	for i, e := range entries {
		out[i] = rankedOne(e)
	}
	return out
}

func rankedOne(e rankindex.Entry) model.RankedEntry {
	return model.RankedEntry{
		Rank:       e.Rank,
		PlayerID:   e.PlayerID,
		PlayerName: e.PlayerName,
		Value:      e.Score,
		Timestamp:  e.Timestamp,
		Meta:       e.Meta,
	}
}
