package rankindex

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/policy"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func pid(n byte) uuid.UUID {
	var id uuid.UUID
	id[15] = n
	return id
}

func TestBasicOperations(t *testing.T) {
	ix := New(policy.HigherIsBetter)

	if got := ix.Len(); got != 0 {
		t.Errorf("expected empty index, got %d", got)
	}
	if _, err := ix.RankOf(pid(1)); !errors.Is(err, ErrNotRanked) {
		t.Errorf("expected ErrNotRanked, got %v", err)
	}

	ix.Upsert(pid(1), "alice", 100, baseTime, "")
	ix.Upsert(pid(2), "bob", 150, baseTime.Add(time.Second), "")

	entry, err := ix.RankOf(pid(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Score != 150 || entry.PlayerName != "bob" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	entry, err = ix.RankOf(pid(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 2 {
		t.Errorf("expected rank 2 for alice, got %d", entry.Rank)
	}

	top, err := ix.Top(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 2 || top[0].PlayerName != "bob" || top[1].PlayerName != "alice" {
		t.Errorf("unexpected top order: %+v", top)
	}
}

func TestUpsertMovesPlayer(t *testing.T) {
	ix := New(policy.HigherIsBetter)

	ix.Upsert(pid(1), "alice", 100, baseTime, "")
	ix.Upsert(pid(2), "bob", 150, baseTime, "")

	// Alice overtakes bob.
	ix.Upsert(pid(1), "alice", 200, baseTime.Add(time.Minute), "")

	if got := ix.Len(); got != 2 {
		t.Fatalf("expected 2 players after move, got %d", got)
	}
	entry, err := ix.RankOf(pid(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Score != 200 {
		t.Errorf("expected alice rank 1 score 200, got %+v", entry)
	}
}

func TestLowerIsBetterOrdering(t *testing.T) {
	ix := New(policy.LowerIsBetter)

	ix.Upsert(pid(1), "alice", 62.3, baseTime, "")
	ix.Upsert(pid(2), "bob", 58.9, baseTime, "")
	ix.Upsert(pid(3), "carol", 71.0, baseTime, "")

	top, err := ix.Top(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"bob", "alice", "carol"}
	for i, name := range want {
		if top[i].PlayerName != name || top[i].Rank != i+1 {
			t.Errorf("position %d: expected %s rank %d, got %+v", i, name, i+1, top[i])
		}
	}
}

func TestTieBreakTimestampThenPlayerID(t *testing.T) {
	ix := New(policy.HigherIsBetter)

	// Same score, distinct timestamps: earliest submission ranks first.
	ix.Upsert(pid(2), "late", 100, baseTime.Add(time.Hour), "")
	ix.Upsert(pid(1), "early", 100, baseTime, "")
	// Same score and timestamp: player id ascending.
	ix.Upsert(pid(9), "tie-b", 50, baseTime, "")
	ix.Upsert(pid(8), "tie-a", 50, baseTime, "")

	top, err := ix.Top(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOrder := []string{"early", "late", "tie-a", "tie-b"}
	for i, name := range wantOrder {
		if top[i].PlayerName != name {
			t.Errorf("position %d: expected %s, got %s", i, name, top[i].PlayerName)
		}
		if top[i].Rank != i+1 {
			t.Errorf("position %d: expected distinct consecutive rank %d, got %d", i, i+1, top[i].Rank)
		}
	}
}

func TestTopIsPrefixOfLargerTop(t *testing.T) {
	ix := New(policy.HigherIsBetter)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 64; i++ {
		ix.Upsert(pid(byte(i+1)), fmt.Sprintf("p%d", i), float64(rng.IntN(20)), baseTime.Add(time.Duration(i)*time.Second), "")
	}

	for n := 1; n < 64; n++ {
		smaller, err := ix.Top(n)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		larger, err := ix.Top(n + 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := range smaller {
			if smaller[i] != larger[i] {
				t.Fatalf("top(%d) is not a prefix of top(%d) at %d: %+v vs %+v", n, n+1, i, smaller[i], larger[i])
			}
		}
	}
}

func TestRanksArePermutation(t *testing.T) {
	ix := New(policy.HigherIsBetter)
	rng := rand.New(rand.NewPCG(7, 11))

	const players = 100
	for i := 0; i < players; i++ {
		ix.Upsert(pid(byte(i+1)), fmt.Sprintf("p%d", i), float64(rng.IntN(10)), baseTime.Add(time.Duration(rng.IntN(1000))*time.Millisecond), "")
	}

	seen := make(map[int]bool)
	for i := 0; i < players; i++ {
		entry, err := ix.RankOf(pid(byte(i + 1)))
		if err != nil {
			t.Fatalf("unexpected error for player %d: %v", i, err)
		}
		if entry.Rank < 1 || entry.Rank > players {
			t.Errorf("rank %d out of range", entry.Rank)
		}
		if seen[entry.Rank] {
			t.Errorf("duplicate rank %d", entry.Rank)
		}
		seen[entry.Rank] = true
	}
}

func TestRankOfMatchesTopPosition(t *testing.T) {
	ix := New(policy.HigherIsBetter)
	rng := rand.New(rand.NewPCG(3, 5))

	const players = 50
	for i := 0; i < players; i++ {
		ix.Upsert(pid(byte(i+1)), fmt.Sprintf("p%d", i), float64(rng.IntN(25)), baseTime.Add(time.Duration(i)*time.Millisecond), "")
	}

	top, err := ix.Top(players)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, e := range top {
		if e.Rank != i+1 {
			t.Errorf("top position %d has rank %d", i, e.Rank)
		}
		byRank, err := ix.RankOf(e.PlayerID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if byRank != e {
			t.Errorf("RankOf disagrees with Top at %d: %+v vs %+v", i, byRank, e)
		}
	}
}

func TestAround(t *testing.T) {
	ix := New(policy.HigherIsBetter)
	for i := 1; i <= 10; i++ {
		ix.Upsert(pid(byte(i)), fmt.Sprintf("p%d", i), float64(100-i), baseTime, "")
	}
	// p1 has the best score (99), p10 the worst (90); rank i belongs to pi.

	t.Run("interior window", func(t *testing.T) {
		got, err := ix.Around(pid(5), 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("expected 5 entries, got %d", len(got))
		}
		for i, e := range got {
			wantRank := 3 + i
			if e.Rank != wantRank || e.PlayerName != fmt.Sprintf("p%d", wantRank) {
				t.Errorf("position %d: expected p%d rank %d, got %+v", i, wantRank, wantRank, e)
			}
		}
	})

	t.Run("clamped at the top", func(t *testing.T) {
		got, err := ix.Around(pid(1), 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 4 || got[0].Rank != 1 || got[3].Rank != 4 {
			t.Errorf("unexpected window: %+v", got)
		}
	})

	t.Run("clamped at the bottom", func(t *testing.T) {
		got, err := ix.Around(pid(10), 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 4 || got[0].Rank != 7 || got[3].Rank != 10 {
			t.Errorf("unexpected window: %+v", got)
		}
	})

	t.Run("zero window returns only the player", func(t *testing.T) {
		got, err := ix.Around(pid(4), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Rank != 4 {
			t.Errorf("unexpected window: %+v", got)
		}
	})

	t.Run("unknown player", func(t *testing.T) {
		if _, err := ix.Around(pid(99), 2); !errors.Is(err, ErrNotRanked) {
			t.Errorf("expected ErrNotRanked, got %v", err)
		}
	})

	t.Run("negative window", func(t *testing.T) {
		if _, err := ix.Around(pid(4), -1); !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("expected ErrInvalidWindow, got %v", err)
		}
	})
}

func TestInvalidLimit(t *testing.T) {
	ix := New(policy.HigherIsBetter)
	if _, err := ix.Top(0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	ix := New(policy.HigherIsBetter)
	ix.Upsert(pid(1), "alice", 100, baseTime, "")
	ix.Upsert(pid(2), "bob", 150, baseTime, "")

	ix.Remove(pid(2))
	if ix.Contains(pid(2)) {
		t.Error("bob should be removed")
	}
	entry, err := ix.RankOf(pid(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 {
		t.Errorf("expected alice promoted to rank 1, got %d", entry.Rank)
	}

	// Removing an absent player is a no-op.
	ix.Remove(pid(9))
	if got := ix.Len(); got != 1 {
		t.Errorf("expected 1 player, got %d", got)
	}
}

func TestRebuild(t *testing.T) {
	ix := New(policy.HigherIsBetter)
	ix.Upsert(pid(1), "stale", 1, baseTime, "")

	ix.Rebuild([]Entry{
		{PlayerID: pid(2), PlayerName: "bob", Score: 150, Timestamp: baseTime},
		{PlayerID: pid(3), PlayerName: "carol", Score: 120, Timestamp: baseTime},
	})

	if ix.Contains(pid(1)) {
		t.Error("rebuild should drop entries absent from the projection")
	}
	top, err := ix.Top(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 2 || top[0].PlayerName != "bob" || top[1].PlayerName != "carol" {
		t.Errorf("unexpected contents after rebuild: %+v", top)
	}
}

func TestConcurrentDistinctPlayers(t *testing.T) {
	ix := New(policy.HigherIsBetter)

	const players = 200
	var wg sync.WaitGroup
	for i := 1; i <= players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ix.Upsert(pid(byte(i%250)+1), fmt.Sprintf("p%d", i), float64(i), baseTime.Add(time.Duration(i)*time.Millisecond), "")
		}(i)
	}
	wg.Wait()

	top, err := ix.Top(players)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(top); i++ {
		if top[i-1].Score < top[i].Score {
			t.Fatalf("top not sorted at %d: %v then %v", i, top[i-1].Score, top[i].Score)
		}
	}
}
