package smoketest

import (
	"sync/atomic"
	"time"
)

// Config controls a smoke run against a live service.
type Config struct {
	// BaseURL of the service under test.
	BaseURL string
	// AdminToken authorizes leaderboard provisioning.
	AdminToken string
	// NumPlayers to register.
	NumPlayers int
	// SubmissionsPerPlayer sends this many scores for each player.
	SubmissionsPerPlayer int
	// Workers submitting concurrently.
	Workers int
	// TopN entries to fetch and verify.
	TopN int
	// Timeout per HTTP request.
	Timeout time.Duration
	// Verbose logs every submission.
	Verbose bool
}

// Stats accumulates counters across the run.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Submitted atomic.Int64
	Accepted  atomic.Int64
	NoOps     atomic.Int64
	Failed    atomic.Int64
}
