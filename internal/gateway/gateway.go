// Package gateway runs the submission pipeline: authenticate, validate,
// persist, index, acknowledge. Persistence always completes before the
// rank index is touched, so the stored projection never lags behind what
// queries can observe.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/dedupe"
	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
	"github.com/rparrett/jornet/internal/rankindex"
	"github.com/rparrett/jornet/internal/registry"
	"github.com/rparrett/jornet/internal/scorestore"
	"github.com/rparrett/jornet/pkg/logger"
	"github.com/rparrett/jornet/pkg/metrics"
)

const lockStripes = 256

// IndexProvider yields the rank index serving a board. The caller passes
// the resolved board's ordering so a first-use index is always created
// with the ordering the board was provisioned with.
type IndexProvider interface {
	Index(boardID uuid.UUID, ordering policy.Ordering) *rankindex.Index
}

// RebuildNotifier is told when a board's index disagrees with the stored
// projection and should be rebuilt.
type RebuildNotifier interface {
	NotifyRebuild(boardID uuid.UUID, reason string)
}

// Result is the acknowledgement returned for an accepted submission.
type Result struct {
	// Entry is the player's current entry after the write. For a policy
	// no-op this is the retained entry, not the submitted one.
	Entry model.ScoreEntry
	// Rank is the player's resulting 1-indexed rank, 0 when unknown.
	Rank int
	// Changed reports whether ranking state changed.
	Changed bool
	// Duplicate reports whether the submission was answered from the
	// idempotency cache.
	Duplicate bool
}

// Gateway accepts score submissions and drives them through the write
// pipeline.
type Gateway struct {
	registry registry.Registry
	store    scorestore.Store
	indexes  IndexProvider

	deduper  dedupe.Deduper
	notifier RebuildNotifier
	log      logger.Logger

	maxAttempts   int
	retryInitial  time.Duration
	retryMaxDelay time.Duration

	locks [lockStripes]sync.Mutex
}

// New creates a gateway over the given registry, score store and rank
// indexes.
func New(reg registry.Registry, store scorestore.Store, indexes IndexProvider, opts ...Option) *Gateway {
	g := &Gateway{
		registry:      reg,
		store:         store,
		indexes:       indexes,
		deduper:       dedupe.New(),
		log:           logger.Named("gateway"),
		maxAttempts:   defaultMaxAttempts,
		retryInitial:  defaultRetryInitial,
		retryMaxDelay: defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit runs one submission through the pipeline. The caller is
// acknowledged only after the write is durable and indexed; rejected and
// failed submissions leave no visible state behind.
func (g *Gateway) Submit(ctx context.Context, sub model.Submission) (Result, error) {
	board, err := g.authenticate(ctx, &sub)
	if err != nil {
		return Result{}, err
	}

	if err := validate(sub); err != nil {
		metrics.RecordSubmission(metrics.OutcomeRejected, "malformed")
		return Result{}, err
	}
	if sub.Timestamp.IsZero() {
		sub.Timestamp = time.Now()
	}
	sub.Timestamp = sub.Timestamp.UTC()

	fingerprint := fmt.Sprintf("%s|%s|%g|%d", sub.LeaderboardID, sub.PlayerID, sub.Value, sub.Timestamp.UnixMicro())
	if g.deduper.SeenAndRecord(ctx, fingerprint) {
		if res, ok := g.answerDuplicate(ctx, board, sub); ok {
			metrics.RecordSubmission(metrics.OutcomeDuplicate, "")
			return res, nil
		}
	}

	lock := &g.locks[stripeFor(sub.LeaderboardID, sub.PlayerID)]
	lock.Lock()
	defer lock.Unlock()

	// Last cancellation point; from here the write runs to completion.
	if err := ctx.Err(); err != nil {
		g.deduper.Unrecord(ctx, fingerprint)
		return Result{}, err
	}

	entry := model.ScoreEntry{
		PlayerID:   sub.PlayerID,
		PlayerName: sub.PlayerName,
		Value:      sub.Value,
		Timestamp:  sub.Timestamp,
		Meta:       sub.Meta,
	}

	current, changed, err := g.persist(ctx, board, entry)
	if err != nil {
		g.deduper.Unrecord(ctx, fingerprint)
		metrics.RecordSubmission(metrics.OutcomeFailed, "storage")
		g.log.Error(ctx, "submission persist failed",
			logger.String("leaderboard", board.ID.String()),
			logger.String("player", sub.PlayerID.String()),
			logger.Error(err))
		return Result{}, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	res := Result{Entry: current, Changed: changed}
	index := g.indexes.Index(board.ID, board.Ordering)

	start := time.Now()
	if changed {
		index.Upsert(current.PlayerID, current.PlayerName, current.Value, current.Timestamp, current.Meta)
		metrics.UpdateRankIndexSize(board.ID.String(), index.Len())
	}
	ranked, err := index.RankOf(current.PlayerID)
	switch {
	case err == nil:
		res.Rank = ranked.Rank
	case errors.Is(err, rankindex.ErrNotRanked):
		// Index disagrees with the stored projection; serve the write and
		// have the board rebuilt.
		if g.notifier != nil {
			g.notifier.NotifyRebuild(board.ID, "rank_lookup_miss")
		}
	default:
		g.log.Warn(ctx, "rank lookup failed", logger.String("leaderboard", board.ID.String()), logger.Error(err))
	}
	metrics.RecordSubmissionStageLatency("index", float64(time.Since(start).Microseconds())/1000)

	if changed {
		metrics.RecordSubmission(metrics.OutcomeAccepted, "")
	} else {
		metrics.RecordSubmission(metrics.OutcomeNoOp, "")
	}
	return res, nil
}

// authenticate resolves the board and checks the submission credentials.
// Exactly one of the board secret or a player-key signature must verify.
func (g *Gateway) authenticate(ctx context.Context, sub *model.Submission) (model.Leaderboard, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSubmissionStageLatency("authenticate", float64(time.Since(start).Microseconds())/1000)
	}()

	board, err := g.registry.Resolve(ctx, sub.LeaderboardID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			metrics.RecordSubmission(metrics.OutcomeRejected, "unknown_board")
		}
		return model.Leaderboard{}, err
	}

	switch {
	case sub.Key != "":
		ok, err := g.registry.Authenticate(ctx, board.ID, sub.Key)
		if err != nil || !ok {
			metrics.RecordSubmission(metrics.OutcomeRejected, "bad_key")
			return model.Leaderboard{}, registry.ErrAuthenticationFailed
		}
	case sub.Signature != "":
		player, err := g.registry.Player(ctx, sub.PlayerID)
		if err != nil {
			metrics.RecordSubmission(metrics.OutcomeRejected, "unknown_player")
			return model.Leaderboard{}, registry.ErrAuthenticationFailed
		}
		if !verifySignature(sub.Signature, player.Key, board.Secret, sub.PlayerID, sub.Value, sub.Timestamp, sub.Meta) {
			metrics.RecordSubmission(metrics.OutcomeRejected, "bad_signature")
			return model.Leaderboard{}, registry.ErrAuthenticationFailed
		}
		if sub.PlayerName == "" {
			sub.PlayerName = player.Name
		}
	default:
		metrics.RecordSubmission(metrics.OutcomeRejected, "no_credentials")
		return model.Leaderboard{}, registry.ErrAuthenticationFailed
	}
	return board, nil
}

func validate(sub model.Submission) error {
	if sub.LeaderboardID == uuid.Nil {
		return fmt.Errorf("%w: missing leaderboard id", ErrMalformedSubmission)
	}
	if sub.PlayerID == uuid.Nil {
		return fmt.Errorf("%w: missing player id", ErrMalformedSubmission)
	}
	if math.IsNaN(sub.Value) || math.IsInf(sub.Value, 0) {
		return fmt.Errorf("%w: score must be finite", ErrMalformedSubmission)
	}
	return nil
}

// persist writes the entry with bounded exponential backoff on transient
// storage failures.
func (g *Gateway) persist(ctx context.Context, board model.Leaderboard, entry model.ScoreEntry) (model.ScoreEntry, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSubmissionStageLatency("persist", float64(time.Since(start).Microseconds())/1000)
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.retryInitial
	bo.MaxInterval = g.retryMaxDelay
	bo.Reset()

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		current, changed, err := g.store.Put(ctx, board, entry)
		if err == nil {
			return current, changed, nil
		}
		lastErr = err
		if !errors.Is(err, scorestore.ErrUnavailable) {
			break
		}
		if attempt == g.maxAttempts {
			break
		}
		metrics.RecordStorageRetry()
		g.log.Warn(ctx, "score store unavailable, retrying",
			logger.String("leaderboard", board.ID.String()),
			logger.Int("attempt", attempt),
			logger.Error(err))
		time.Sleep(bo.NextBackOff())
	}
	return model.ScoreEntry{}, false, lastErr
}

// answerDuplicate serves a resubmitted fingerprint from current state.
func (g *Gateway) answerDuplicate(ctx context.Context, board model.Leaderboard, sub model.Submission) (Result, bool) {
	current, err := g.store.GetCurrent(ctx, board.ID, sub.PlayerID)
	if err != nil {
		// Seen fingerprint without a stored entry; reprocess.
		return Result{}, false
	}
	res := Result{Entry: current, Duplicate: true}
	if ranked, err := g.indexes.Index(board.ID, board.Ordering).RankOf(sub.PlayerID); err == nil {
		res.Rank = ranked.Rank
	}
	return res, true
}

func stripeFor(boardID, playerID uuid.UUID) int {
	h := fnv.New32a()
	h.Write(boardID[:])
	h.Write(playerID[:])
	return int(h.Sum32() % lockStripes)
}
