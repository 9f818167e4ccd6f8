// Package service wires the leaderboard components together and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	rebuildqueue "github.com/rparrett/jornet/internal/adapters/mq/queue"
	workerpool "github.com/rparrett/jornet/internal/adapters/mq/worker"
	"github.com/rparrett/jornet/internal/domain/dedupe"
	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
	"github.com/rparrett/jornet/internal/gateway"
	"github.com/rparrett/jornet/internal/query"
	"github.com/rparrett/jornet/internal/rankindex"
	"github.com/rparrett/jornet/internal/registry"
	"github.com/rparrett/jornet/internal/scorestore"
	"github.com/rparrett/jornet/pkg/logger"
	"github.com/rparrett/jornet/pkg/metrics"
)

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry     registry.Registry
	store        scorestore.Store
	gateway      *gateway.Gateway
	queries      *query.Service
	deduper      dedupe.Deduper
	rebuildQueue rebuildqueue.Queue
	workerPool   *workerpool.Pool

	// Per-board rank indexes
	indexMu sync.RWMutex
	indexes map[uuid.UUID]*rankindex.Index

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	submitRetries int
	retryInitial  time.Duration
	retryMaxDelay time.Duration

	// State
	started           bool
	playersRegistered atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		indexes:       make(map[uuid.UUID]*rankindex.Index),
		workerCount:   2,
		queueSize:     1024,
		dedupeSize:    50000,
		submitRetries: 4,
		retryInitial:  50 * time.Millisecond,
		retryMaxDelay: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the components and recovers rank indexes from the
// stored projections. Boards serve queries only after their rebuild.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	if s.registry == nil {
		s.registry = registry.NewMemory()
		s.logger.Info(ctx, "using in-memory registry")
	}
	if s.store == nil {
		s.store = scorestore.NewMemory()
		s.logger.Info(ctx, "using in-memory score store")
	}
	s.deduper = dedupe.New(dedupe.WithMaxSize(s.dedupeSize))
	s.rebuildQueue = rebuildqueue.NewInMemoryQueue(
		rebuildqueue.WithCapacity(s.queueSize),
		rebuildqueue.WithBufferSize(s.queueSize),
	)

	s.gateway = gateway.New(s.registry, s.store, s,
		gateway.WithDeduper(s.deduper),
		gateway.WithRebuildNotifier(s),
		gateway.WithMaxAttempts(s.submitRetries),
		gateway.WithRetryInterval(s.retryInitial, s.retryMaxDelay),
	)
	s.queries = query.New(s.registry, s.store, s)

	if err := s.recover(ctx); err != nil {
		return fmt.Errorf("recover rank indexes: %w", err)
	}

	s.workerPool = workerpool.NewPool(s.workerCount, s.rebuildQueue, s)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// recover rebuilds every known board's index before the service accepts
// traffic. A board whose projection cannot be read fails startup rather
// than serving stale ranks.
func (s *Service) recover(ctx context.Context) error {
	boards, err := s.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list leaderboards: %w", err)
	}
	for _, board := range boards {
		if err := s.Rebuild(ctx, board.ID, "startup"); err != nil {
			return fmt.Errorf("rebuild leaderboard %s: %w", board.ID, err)
		}
	}
	metrics.UpdateLeaderboardsTotal(len(boards))
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service...")

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}
	if s.rebuildQueue != nil {
		_ = s.rebuildQueue.Close()
	}
	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// Index returns the rank index serving a board, creating it on first use
// with the ordering the caller resolved from the registry. An index is
// never created from a guessed ordering; callers that do not hold the
// board resolve it first.
func (s *Service) Index(boardID uuid.UUID, ordering policy.Ordering) *rankindex.Index {
	s.indexMu.RLock()
	ix, ok := s.indexes[boardID]
	s.indexMu.RUnlock()
	if ok {
		return ix
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if ix, ok = s.indexes[boardID]; ok {
		return ix
	}
	ix = rankindex.New(ordering)
	s.indexes[boardID] = ix
	return ix
}

// NotifyRebuild enqueues a rebuild job. Jobs dropped on a full queue are
// retried the next time an inconsistency is observed.
func (s *Service) NotifyRebuild(boardID uuid.UUID, reason string) {
	ctx := context.Background()
	if !s.rebuildQueue.Enqueue(ctx, rebuildqueue.Job{LeaderboardID: boardID, Reason: reason}) {
		s.logger.Warn(ctx, "rebuild job dropped",
			logger.String("leaderboard", boardID.String()),
			logger.String("reason", reason),
		)
	}
}

// Rebuild reloads one board's rank index from the stored projection. The
// board must resolve; a rebuild never materializes an index for a board
// whose ordering is unknown.
func (s *Service) Rebuild(ctx context.Context, boardID uuid.UUID, reason string) error {
	board, err := s.registry.Resolve(ctx, boardID)
	if err != nil {
		return fmt.Errorf("resolve leaderboard: %w", err)
	}
	entries, err := s.store.CurrentEntries(ctx, boardID)
	if err != nil {
		return fmt.Errorf("load projection: %w", err)
	}

	indexed := make([]rankindex.Entry, len(entries))
	for i, e := range entries {
		indexed[i] = rankindex.Entry{
			PlayerID:   e.PlayerID,
			PlayerName: e.PlayerName,
			Score:      e.Value,
			Timestamp:  e.Timestamp,
			Meta:       e.Meta,
		}
	}

	ix := s.Index(board.ID, board.Ordering)
	ix.Rebuild(indexed)
	metrics.UpdateRankIndexSize(boardID.String(), ix.Len())
	s.logger.Debug(ctx, "rank index rebuilt",
		logger.String("leaderboard", boardID.String()),
		logger.String("reason", reason),
		logger.Int("players", len(indexed)),
	)
	return nil
}

// Submit drives a score submission through the write pipeline.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (gateway.Result, error) {
	return s.gateway.Submit(ctx, sub)
}

// Top returns the first n ranked entries of a board.
func (s *Service) Top(ctx context.Context, boardID uuid.UUID, n int) ([]model.RankedEntry, error) {
	return s.queries.Top(ctx, boardID, n)
}

// Around returns the ranked window surrounding a player.
func (s *Service) Around(ctx context.Context, boardID, playerID uuid.UUID, window int) ([]model.RankedEntry, error) {
	return s.queries.Around(ctx, boardID, playerID, window)
}

// Rank returns a player's current ranked entry.
func (s *Service) Rank(ctx context.Context, boardID, playerID uuid.UUID) (model.RankedEntry, error) {
	return s.queries.Rank(ctx, boardID, playerID)
}

// History returns a player's retained score entries.
func (s *Service) History(ctx context.Context, boardID, playerID uuid.UUID) ([]model.ScoreEntry, error) {
	return s.queries.History(ctx, boardID, playerID)
}

// CreatePlayer registers a player, generating a name when none is given.
func (s *Service) CreatePlayer(ctx context.Context, name string) (model.Player, error) {
	player, err := s.registry.CreatePlayer(ctx, name)
	if err != nil {
		return model.Player{}, err
	}
	metrics.UpdatePlayersTotal(int(s.playersRegistered.Add(1)))
	return player, nil
}

// Player returns a registered player.
func (s *Service) Player(ctx context.Context, id uuid.UUID) (model.Player, error) {
	return s.registry.Player(ctx, id)
}

// CreateLeaderboard provisions a board with generated credentials.
func (s *Service) CreateLeaderboard(ctx context.Context, name string, ordering policy.Ordering, updatePolicy policy.UpdatePolicy) (model.Leaderboard, error) {
	board, err := s.registry.Provision(ctx, name, ordering, updatePolicy)
	if err != nil {
		return model.Leaderboard{}, err
	}
	// Materialize the index now so the first submission does not pay for
	// the ordering lookup.
	s.indexMu.Lock()
	s.indexes[board.ID] = rankindex.New(board.Ordering)
	s.indexMu.Unlock()
	return board, nil
}

// Leaderboards lists all live boards.
func (s *Service) Leaderboards(ctx context.Context) ([]model.Leaderboard, error) {
	return s.registry.List(ctx)
}

// RotateLeaderboardKey replaces a board secret.
func (s *Service) RotateLeaderboardKey(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	return s.registry.RotateKey(ctx, id)
}

// RenameLeaderboard updates a board's name.
func (s *Service) RenameLeaderboard(ctx context.Context, id uuid.UUID, name string) error {
	return s.registry.UpdateMeta(ctx, id, name)
}

// DeleteLeaderboard soft-deletes a board. Score data is retained; the
// in-memory index is released.
func (s *Service) DeleteLeaderboard(ctx context.Context, id uuid.UUID) error {
	if err := s.registry.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.indexMu.Lock()
	delete(s.indexes, id)
	s.indexMu.Unlock()
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if !s.started {
		return stats
	}

	stats["rebuildQueueLength"] = s.rebuildQueue.Len(ctx)
	stats["dedupeEntries"] = s.deduper.Size()
	stats["playersRegistered"] = s.playersRegistered.Load()

	boards, err := s.registry.List(ctx)
	if err == nil {
		stats["leaderboards"] = len(boards)
		metrics.UpdateLeaderboardsTotal(len(boards))

		perBoard := make(map[string]int, len(boards))
		for _, board := range boards {
			perBoard[board.Name] = s.Index(board.ID, board.Ordering).Len()
		}
		stats["rankedPlayers"] = perBoard
	}

	return stats
}
