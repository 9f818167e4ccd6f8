package rankindex

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/policy"
)

func populate(ix *Index, n int) []uuid.UUID {
	rng := rand.New(rand.NewPCG(42, 42))
	ids := make([]uuid.UUID, n)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range ids {
		ids[i] = uuid.New()
		ix.Upsert(ids[i], "player", rng.Float64()*1000, base.Add(time.Duration(i)*time.Millisecond), "")
	}
	return ids
}

func BenchmarkUpsert(b *testing.B) {
	ix := New(policy.HigherIsBetter)
	ids := populate(ix, 100_000)
	rng := rand.New(rand.NewPCG(1, 1))
	base := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Upsert(ids[rng.IntN(len(ids))], "player", rng.Float64()*1000, base.Add(time.Duration(i)), "")
	}
}

func BenchmarkRankOf(b *testing.B) {
	ix := New(policy.HigherIsBetter)
	ids := populate(ix, 100_000)
	rng := rand.New(rand.NewPCG(2, 2))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ix.RankOf(ids[rng.IntN(len(ids))])
	}
}

func BenchmarkTop100(b *testing.B) {
	ix := New(policy.HigherIsBetter)
	populate(ix, 100_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ix.Top(100)
	}
}

func BenchmarkAround(b *testing.B) {
	ix := New(policy.HigherIsBetter)
	ids := populate(ix, 100_000)
	rng := rand.New(rand.NewPCG(3, 3))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ix.Around(ids[rng.IntN(len(ids))], 10)
	}
}
