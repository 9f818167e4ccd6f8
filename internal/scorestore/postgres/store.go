// Package postgres provides the durable pgx-backed score store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
	"github.com/rparrett/jornet/internal/scorestore"
)

// Store persists score entries in Postgres. The per-player current entry is
// tracked with an is_current flag; keep-all boards retain every row while
// other policies keep only the current one.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the provided pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const (
	currentSelectForUpdateSQL = `
SELECT player_name, value, submitted_at, meta
FROM scores
WHERE leaderboard_id = @leaderboard_id
  AND player_id = @player_id
  AND is_current
FOR UPDATE;
`

	currentSelectSQL = `
SELECT player_name, value, submitted_at, meta
FROM scores
WHERE leaderboard_id = @leaderboard_id
  AND player_id = @player_id
  AND is_current;
`

	historySelectSQL = `
SELECT player_name, value, submitted_at, meta
FROM scores
WHERE leaderboard_id = @leaderboard_id
  AND player_id = @player_id
ORDER BY submitted_at ASC, id ASC;
`

	projectionSelectSQL = `
SELECT player_id, player_name, value, submitted_at, meta
FROM scores
WHERE leaderboard_id = @leaderboard_id
  AND is_current;
`

	supersededDeleteSQL = `
DELETE FROM scores
WHERE leaderboard_id = @leaderboard_id
  AND player_id = @player_id;
`

	currentUnsetSQL = `
UPDATE scores
SET is_current = FALSE
WHERE leaderboard_id = @leaderboard_id
  AND player_id = @player_id
  AND is_current;
`

	scoreInsertSQL = `
INSERT INTO scores (
    leaderboard_id,
    player_id,
    player_name,
    value,
    submitted_at,
    meta,
    is_current,
    created_at
)
VALUES (
    @leaderboard_id,
    @player_id,
    @player_name,
    @value,
    @submitted_at,
    @meta,
    @is_current,
    NOW()
);
`
)

// Put implements scorestore.Store. The policy decision and the write happen
// in one transaction with the current row locked, so concurrent submissions
// for the same player serialize at the database.
func (s *Store) Put(ctx context.Context, board model.Leaderboard, entry model.ScoreEntry) (model.ScoreEntry, bool, error) {
	if s.pool == nil {
		return model.ScoreEntry{}, false, fmt.Errorf("score store: nil pool")
	}

	var (
		current model.ScoreEntry
		changed bool
	)
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		ids := pgx.NamedArgs{
			"leaderboard_id": board.ID,
			"player_id":      entry.PlayerID,
		}

		prev, hasPrev, err := scanCurrent(tx.QueryRow(ctx, currentSelectForUpdateSQL, ids), entry.PlayerID)
		if err != nil {
			return err
		}

		decision := policy.Decide(board.UpdatePolicy, board.Ordering, hasPrev, prev.Value, entry.Value)
		switch decision {
		case policy.KeepCurrent:
			current, changed = prev, false
			return nil

		case policy.ReplaceCurrent:
			if _, err := tx.Exec(ctx, supersededDeleteSQL, ids); err != nil {
				return fmt.Errorf("score store: delete superseded: %w", err)
			}
			if err := insertEntry(ctx, tx, board.ID, entry, true); err != nil {
				return err
			}
			current, changed = entry, true
			return nil

		case policy.AppendHistory:
			takesOver := !hasPrev ||
				board.Ordering.Better(entry.Value, prev.Value) ||
				(entry.Value == prev.Value && entry.Timestamp.Before(prev.Timestamp))
			if takesOver {
				if _, err := tx.Exec(ctx, currentUnsetSQL, ids); err != nil {
					return fmt.Errorf("score store: unset current: %w", err)
				}
			}
			if err := insertEntry(ctx, tx, board.ID, entry, takesOver); err != nil {
				return err
			}
			if takesOver {
				current, changed = entry, true
			} else {
				current, changed = prev, false
			}
			return nil
		}
		return fmt.Errorf("score store: unknown policy decision %d", decision)
	})
	if err != nil {
		return model.ScoreEntry{}, false, markUnavailable(err)
	}
	return current, changed, nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, boardID uuid.UUID, entry model.ScoreEntry, isCurrent bool) error {
	args := pgx.NamedArgs{
		"leaderboard_id": boardID,
		"player_id":      entry.PlayerID,
		"player_name":    entry.PlayerName,
		"value":          entry.Value,
		"submitted_at":   entry.Timestamp,
		"meta":           entry.Meta,
		"is_current":     isCurrent,
	}
	if _, err := tx.Exec(ctx, scoreInsertSQL, args); err != nil {
		return fmt.Errorf("score store: insert score: %w", err)
	}
	return nil
}

// GetCurrent implements scorestore.Store.
func (s *Store) GetCurrent(ctx context.Context, boardID, playerID uuid.UUID) (model.ScoreEntry, error) {
	args := pgx.NamedArgs{
		"leaderboard_id": boardID,
		"player_id":      playerID,
	}
	entry, ok, err := scanCurrent(s.pool.QueryRow(ctx, currentSelectSQL, args), playerID)
	if err != nil {
		return model.ScoreEntry{}, markUnavailable(err)
	}
	if !ok {
		return model.ScoreEntry{}, scorestore.ErrNoEntry
	}
	return entry, nil
}

// History implements scorestore.Store.
func (s *Store) History(ctx context.Context, boardID, playerID uuid.UUID) ([]model.ScoreEntry, error) {
	args := pgx.NamedArgs{
		"leaderboard_id": boardID,
		"player_id":      playerID,
	}
	rows, err := s.pool.Query(ctx, historySelectSQL, args)
	if err != nil {
		return nil, markUnavailable(fmt.Errorf("score store: query history: %w", err))
	}
	defer rows.Close()

	var entries []model.ScoreEntry
	for rows.Next() {
		entry := model.ScoreEntry{PlayerID: playerID}
		if err := rows.Scan(&entry.PlayerName, &entry.Value, &entry.Timestamp, &entry.Meta); err != nil {
			return nil, fmt.Errorf("score store: scan history: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, markUnavailable(fmt.Errorf("score store: iterate history: %w", err))
	}
	if len(entries) == 0 {
		return nil, scorestore.ErrNoEntry
	}
	return entries, nil
}

// CurrentEntries implements scorestore.Store.
func (s *Store) CurrentEntries(ctx context.Context, boardID uuid.UUID) ([]model.ScoreEntry, error) {
	args := pgx.NamedArgs{"leaderboard_id": boardID}
	rows, err := s.pool.Query(ctx, projectionSelectSQL, args)
	if err != nil {
		return nil, markUnavailable(fmt.Errorf("score store: query projection: %w", err))
	}
	defer rows.Close()

	var entries []model.ScoreEntry
	for rows.Next() {
		var entry model.ScoreEntry
		if err := rows.Scan(&entry.PlayerID, &entry.PlayerName, &entry.Value, &entry.Timestamp, &entry.Meta); err != nil {
			return nil, fmt.Errorf("score store: scan projection: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, markUnavailable(fmt.Errorf("score store: iterate projection: %w", err))
	}
	return entries, nil
}

func scanCurrent(row pgx.Row, playerID uuid.UUID) (model.ScoreEntry, bool, error) {
	entry := model.ScoreEntry{PlayerID: playerID}
	err := row.Scan(&entry.PlayerName, &entry.Value, &entry.Timestamp, &entry.Meta)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ScoreEntry{}, false, nil
	}
	if err != nil {
		return model.ScoreEntry{}, false, fmt.Errorf("score store: scan current: %w", err)
	}
	entry.Timestamp = entry.Timestamp.UTC()
	return entry, true, nil
}

// markUnavailable tags database failures as retryable unless the caller
// cancelled the operation.
func markUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", scorestore.ErrUnavailable, err)
}
