// Package rankindex implements the per-leaderboard order-statistics index
// that answers top-N, rank-of and around-player queries in O(log n).
package rankindex

import (
	"bytes"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/policy"
	"github.com/rparrett/jornet/pkg/metrics"
)

// Treap keyed by (score, timestamp, player id) with subtree sizes.
//
// The comparator sorts better scores first per the board's ordering policy,
// then earlier timestamps, then player id ascending. That chain is a strict
// total order, so ranks are always distinct and consecutive and repeated
// queries on unchanged data are deterministic.

// scoreScale controls fixed-point scaling from float64. Nine decimal places
// comfortably cover game score precision while staying far from overflow
// for realistic magnitudes.
const scoreScale = 1_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	scaled := math.Round(x * scoreScale)
	if scaled >= float64(math.MaxInt64) {
		return scoreFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return scoreFP(math.MinInt64)
	}
	return scoreFP(scaled)
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// key is the composite rank ordering key for one player's current entry.
type key struct {
	score scoreFP
	ts    int64 // unix microseconds of the current entry's submission
	pid   uuid.UUID
}

// record carries the payload surfaced on reads alongside the key.
type record struct {
	key  key
	name string
	meta string
}

// Entry is a ranked leaderboard row.
type Entry struct {
	Rank       int
	PlayerID   uuid.UUID
	PlayerName string
	Score      float64
	Timestamp  time.Time
	Meta       string
}

type node struct {
	rec   record
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// Index is the order-statistics container for a single leaderboard.
// A RWMutex guards the tree; indexes for different leaderboards are
// independent, so unrelated boards never serialize on each other.
type Index struct {
	mu       sync.RWMutex
	ordering policy.Ordering
	root     *node
	byPlayer map[uuid.UUID]record
}

// New constructs an empty index with the given ordering policy.
func New(ordering policy.Ordering) *Index {
	return &Index{
		ordering: ordering,
		byPlayer: make(map[uuid.UUID]record),
	}
}

// Ordering returns the ordering policy the index sorts by.
func (ix *Index) Ordering() policy.Ordering {
	return ix.ordering
}

// less reports whether a ranks strictly before b.
func (ix *Index) less(a, b key) bool {
	if a.score != b.score {
		if ix.ordering == policy.LowerIsBetter {
			return a.score < b.score
		}
		return a.score > b.score
	}
	if a.ts != b.ts {
		return a.ts < b.ts
	}
	return bytes.Compare(a.pid[:], b.pid[:]) < 0
}

func (ix *Index) insert(n *node, rec record) *node {
	if n == nil {
		return &node{rec: rec, prio: rand.Uint64(), size: 1}
	}
	if ix.less(rec.key, n.rec.key) {
		n.left = ix.insert(n.left, rec)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = ix.insert(n.right, rec)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func (ix *Index) delete(n *node, k key) *node {
	if n == nil {
		return nil
	}
	switch {
	case k == n.rec.key:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = ix.delete(n.right, k)
		} else {
			n = rotateLeft(n)
			n.left = ix.delete(n.left, k)
		}
	case ix.less(k, n.rec.key):
		n.left = ix.delete(n.left, k)
	default:
		n.right = ix.delete(n.right, k)
	}
	fix(n)
	return n
}

// Upsert inserts or moves a player's current entry. O(log n).
func (ix *Index) Upsert(playerID uuid.UUID, name string, value float64, ts time.Time, meta string) {
	start := time.Now()
	defer func() {
		metrics.RecordRankIndexUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	rec := record{
		key:  key{score: toFixedPoint(value), ts: ts.UnixMicro(), pid: playerID},
		name: name,
		meta: meta,
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.byPlayer[playerID]; ok {
		if old.key == rec.key {
			// Same rank position; refresh the payload only.
			ix.byPlayer[playerID] = rec
			ix.updatePayload(ix.root, rec)
			return
		}
		ix.root = ix.delete(ix.root, old.key)
	}
	ix.byPlayer[playerID] = rec
	ix.root = ix.insert(ix.root, rec)
}

// updatePayload rewrites name/meta on the node holding rec's key.
func (ix *Index) updatePayload(n *node, rec record) {
	for n != nil {
		switch {
		case rec.key == n.rec.key:
			n.rec = rec
			return
		case ix.less(rec.key, n.rec.key):
			n = n.left
		default:
			n = n.right
		}
	}
}

// Remove drops a player's entry if present.
func (ix *Index) Remove(playerID uuid.UUID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.byPlayer[playerID]; ok {
		ix.root = ix.delete(ix.root, old.key)
		delete(ix.byPlayer, playerID)
	}
}

// Len returns the number of ranked players.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byPlayer)
}

// Contains reports whether a player is ranked.
func (ix *Index) Contains(playerID uuid.UUID) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.byPlayer[playerID]
	return ok
}

// Top returns the first n entries in rank order, 1-indexed.
func (ix *Index) Top(n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankIndexQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hi := n
	if total := nsize(ix.root); hi > total {
		hi = total
	}
	out := make([]Entry, 0, hi)
	collectRange(ix.root, 1, hi, 1, &out)
	return out, nil
}

// RankOf returns the player's entry with its current rank. O(log n).
func (ix *Index) RankOf(playerID uuid.UUID) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankIndexQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.rankOfLocked(playerID)
}

func (ix *Index) rankOfLocked(playerID uuid.UUID) (Entry, error) {
	rec, ok := ix.byPlayer[playerID]
	if !ok {
		return Entry{}, ErrNotRanked
	}

	rank := 1
	n := ix.root
	for n != nil {
		switch {
		case rec.key == n.rec.key:
			rank += nsize(n.left)
			return entryFromRecord(rec, rank), nil
		case ix.less(rec.key, n.rec.key):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	// The map and tree disagree; surface as not ranked so the caller can
	// trigger a rebuild.
	return Entry{}, ErrNotRanked
}

// Around returns up to window entries above and below the player, the
// player's own entry included, in rank order.
func (ix *Index) Around(playerID uuid.UUID, window int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankIndexQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if window < 0 {
		return nil, ErrInvalidWindow
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	center, err := ix.rankOfLocked(playerID)
	if err != nil {
		return nil, err
	}

	lo := center.Rank - window
	if lo < 1 {
		lo = 1
	}
	hi := center.Rank + window
	if total := nsize(ix.root); hi > total {
		hi = total
	}

	out := make([]Entry, 0, hi-lo+1)
	collectRange(ix.root, lo, hi, lo, &out)
	return out, nil
}

// Rebuild replaces the index contents from a current-entry projection.
// Used on recovery and when an inconsistency with the score store is found.
func (ix *Index) Rebuild(entries []Entry) {
	root := (*node)(nil)
	byPlayer := make(map[uuid.UUID]record, len(entries))
	for _, e := range entries {
		rec := record{
			key:  key{score: toFixedPoint(e.Score), ts: e.Timestamp.UnixMicro(), pid: e.PlayerID},
			name: e.PlayerName,
			meta: e.Meta,
		}
		if _, dup := byPlayer[e.PlayerID]; dup {
			continue
		}
		byPlayer[e.PlayerID] = rec
		root = ix.insert(root, rec)
	}

	ix.mu.Lock()
	ix.root = root
	ix.byPlayer = byPlayer
	ix.mu.Unlock()
}

// collectRange appends the entries at 1-indexed in-order positions
// [lo, hi] of the subtree. baseRank is the global rank of position lo.
func collectRange(n *node, lo, hi, baseRank int, out *[]Entry) {
	if n == nil || lo > hi {
		return
	}
	leftSize := nsize(n.left)
	pos := leftSize + 1

	if lo <= leftSize {
		end := hi
		if end > leftSize {
			end = leftSize
		}
		collectRange(n.left, lo, end, baseRank, out)
	}
	if lo <= pos && pos <= hi {
		*out = append(*out, entryFromRecord(n.rec, baseRank+(pos-lo)))
	}
	if hi > pos {
		nlo := lo - pos
		base := baseRank
		if nlo < 1 {
			nlo = 1
			base = baseRank + (pos - lo) + 1
		}
		collectRange(n.right, nlo, hi-pos, base, out)
	}
}

func entryFromRecord(rec record, rank int) Entry {
	return Entry{
		Rank:       rank,
		PlayerID:   rec.key.pid,
		PlayerName: rec.name,
		Score:      toFloat(rec.key.score),
		Timestamp:  time.UnixMicro(rec.key.ts).UTC(),
		Meta:       rec.meta,
	}
}
