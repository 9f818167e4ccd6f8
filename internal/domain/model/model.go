// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/policy"
)

// Leaderboard is a named, independently ranked collection of player scores,
// addressed by a public id and guarded by a secret key.
type Leaderboard struct {
	ID           uuid.UUID
	Secret       uuid.UUID
	Name         string
	Ordering     policy.Ordering
	UpdatePolicy policy.UpdatePolicy
	Deleted      bool // soft-delete marker; score data is retained
	CreatedAt    time.Time
}

// Player identifies a score submitter. The key authenticates signed
// submissions from returning players.
type Player struct {
	ID   uuid.UUID
	Key  uuid.UUID
	Name string
}

// ScoreEntry is a single submitted score. Entries are immutable once
// written; superseded entries are logically removed unless the board keeps
// full history.
type ScoreEntry struct {
	PlayerID   uuid.UUID
	PlayerName string
	Value      float64
	Timestamp  time.Time
	Meta       string
}

// Submission is an incoming score write before authentication and policy
// evaluation. Exactly one of Key or Signature authenticates it.
type Submission struct {
	LeaderboardID uuid.UUID
	PlayerID      uuid.UUID
	PlayerName    string
	Value         float64
	Timestamp     time.Time
	Meta          string

	// Key is the leaderboard secret supplied directly.
	Key string
	// Signature is a hex HMAC-SHA256 over the submission fields, keyed by
	// the player key.
	Signature string
}

// RankedEntry is a score entry annotated with its 1-indexed rank.
type RankedEntry struct {
	Rank       int
	PlayerID   uuid.UUID
	PlayerName string
	Value      float64
	Timestamp  time.Time
	Meta       string
}
