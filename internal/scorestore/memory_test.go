package scorestore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
)

func board(p policy.UpdatePolicy, o policy.Ordering) model.Leaderboard {
	return model.Leaderboard{
		ID:           uuid.New(),
		Secret:       uuid.New(),
		Name:         "test",
		Ordering:     o,
		UpdatePolicy: p,
	}
}

func entry(pid uuid.UUID, value float64, ts time.Time) model.ScoreEntry {
	return model.ScoreEntry{PlayerID: pid, PlayerName: "p", Value: value, Timestamp: ts}
}

func TestMemoryPut(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	alice := uuid.New()

	Convey("Given a keep-best higher-is-better board", t, func() {
		b := board(policy.KeepBest, policy.HigherIsBetter)
		store := NewMemory()

		Convey("The first score becomes current", func() {
			cur, changed, err := store.Put(ctx, b, entry(alice, 100, t0))
			So(err, ShouldBeNil)
			So(changed, ShouldBeTrue)
			So(cur.Value, ShouldEqual, 100)
		})

		Convey("A better score replaces the current one", func() {
			_, _, _ = store.Put(ctx, b, entry(alice, 100, t0))
			cur, changed, err := store.Put(ctx, b, entry(alice, 150, t0.Add(time.Minute)))
			So(err, ShouldBeNil)
			So(changed, ShouldBeTrue)
			So(cur.Value, ShouldEqual, 150)
		})

		Convey("A worse score is acknowledged without changing state", func() {
			_, _, _ = store.Put(ctx, b, entry(alice, 150, t0))
			cur, changed, err := store.Put(ctx, b, entry(alice, 100, t0.Add(time.Minute)))
			So(err, ShouldBeNil)
			So(changed, ShouldBeFalse)
			So(cur.Value, ShouldEqual, 150)
			So(cur.Timestamp, ShouldEqual, t0)
		})

		Convey("An equal score does not replace the current one", func() {
			_, _, _ = store.Put(ctx, b, entry(alice, 150, t0))
			cur, changed, err := store.Put(ctx, b, entry(alice, 150, t0.Add(time.Minute)))
			So(err, ShouldBeNil)
			So(changed, ShouldBeFalse)
			So(cur.Timestamp, ShouldEqual, t0)
		})
	})

	Convey("Given a keep-best lower-is-better board", t, func() {
		b := board(policy.KeepBest, policy.LowerIsBetter)
		store := NewMemory()

		Convey("A lower score replaces the current one", func() {
			_, _, _ = store.Put(ctx, b, entry(alice, 62.3, t0))
			cur, changed, err := store.Put(ctx, b, entry(alice, 58.9, t0.Add(time.Minute)))
			So(err, ShouldBeNil)
			So(changed, ShouldBeTrue)
			So(cur.Value, ShouldEqual, 58.9)
		})
	})

	Convey("Given a keep-latest board", t, func() {
		b := board(policy.KeepLatest, policy.HigherIsBetter)
		store := NewMemory()

		Convey("A worse score still replaces the current one", func() {
			_, _, _ = store.Put(ctx, b, entry(alice, 150, t0))
			cur, changed, err := store.Put(ctx, b, entry(alice, 100, t0.Add(time.Minute)))
			So(err, ShouldBeNil)
			So(changed, ShouldBeTrue)
			So(cur.Value, ShouldEqual, 100)
		})

		Convey("Only the latest entry is retained", func() {
			_, _, _ = store.Put(ctx, b, entry(alice, 150, t0))
			_, _, _ = store.Put(ctx, b, entry(alice, 100, t0.Add(time.Minute)))
			hist, err := store.History(ctx, b.ID, alice)
			So(err, ShouldBeNil)
			So(hist, ShouldHaveLength, 1)
			So(hist[0].Value, ShouldEqual, 100)
		})
	})

	Convey("Given a keep-all board", t, func() {
		b := board(policy.KeepAll, policy.HigherIsBetter)
		store := NewMemory()

		Convey("Every entry is retained and the best is current", func() {
			_, _, _ = store.Put(ctx, b, entry(alice, 100, t0))
			_, _, _ = store.Put(ctx, b, entry(alice, 150, t0.Add(time.Minute)))
			cur, changed, err := store.Put(ctx, b, entry(alice, 120, t0.Add(2*time.Minute)))
			So(err, ShouldBeNil)
			So(changed, ShouldBeFalse)
			So(cur.Value, ShouldEqual, 150)

			hist, err := store.History(ctx, b.ID, alice)
			So(err, ShouldBeNil)
			So(hist, ShouldHaveLength, 3)
		})

		Convey("Ties go to the earliest submission", func() {
			_, _, _ = store.Put(ctx, b, entry(alice, 150, t0))
			cur, changed, err := store.Put(ctx, b, entry(alice, 150, t0.Add(time.Minute)))
			So(err, ShouldBeNil)
			So(changed, ShouldBeFalse)
			So(cur.Timestamp, ShouldEqual, t0)
		})
	})
}

func TestMemoryReads(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a board with several players", t, func() {
		b := board(policy.KeepBest, policy.HigherIsBetter)
		store := NewMemory()
		alice, bob := uuid.New(), uuid.New()
		_, _, _ = store.Put(ctx, b, entry(alice, 100, t0))
		_, _, _ = store.Put(ctx, b, entry(bob, 150, t0))

		Convey("GetCurrent returns the player's entry", func() {
			cur, err := store.GetCurrent(ctx, b.ID, alice)
			So(err, ShouldBeNil)
			So(cur.Value, ShouldEqual, 100)
		})

		Convey("GetCurrent on an unknown player reports no entry", func() {
			_, err := store.GetCurrent(ctx, b.ID, uuid.New())
			So(err, ShouldEqual, ErrNoEntry)
		})

		Convey("History on an unknown player reports no entry", func() {
			_, err := store.History(ctx, b.ID, uuid.New())
			So(err, ShouldEqual, ErrNoEntry)
		})

		Convey("CurrentEntries returns one entry per player", func() {
			entries, err := store.CurrentEntries(ctx, b.ID)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
		})

		Convey("CurrentEntries on an unknown board is empty", func() {
			entries, err := store.CurrentEntries(ctx, uuid.New())
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})

		Convey("A cancelled context aborts the write", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, _, err := store.Put(cctx, b, entry(alice, 200, t0))
			So(err, ShouldNotBeNil)
		})
	})
}
