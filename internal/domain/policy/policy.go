// Package policy defines leaderboard ordering and update policies and the
// pure decision function applied to every score submission.
package policy

// Ordering controls whether higher or lower score values rank better.
type Ordering string

const (
	HigherIsBetter Ordering = "higher_is_better"
	LowerIsBetter  Ordering = "lower_is_better"
)

// Valid reports whether o is a known ordering.
func (o Ordering) Valid() bool {
	return o == HigherIsBetter || o == LowerIsBetter
}

// Better reports whether a strictly beats b under the ordering.
func (o Ordering) Better(a, b float64) bool {
	if o == LowerIsBetter {
		return a < b
	}
	return a > b
}

// UpdatePolicy controls how a new submission interacts with the player's
// existing score history.
type UpdatePolicy string

const (
	// KeepBest retains only the best entry per player; worse submissions
	// are acknowledged but do not change ranking state.
	KeepBest UpdatePolicy = "keep_best"
	// KeepLatest always replaces the player's current entry.
	KeepLatest UpdatePolicy = "keep_latest"
	// KeepAll retains full history; the current entry for ranking is the
	// best one, ties resolved by earliest timestamp.
	KeepAll UpdatePolicy = "keep_all"
)

// Valid reports whether p is a known update policy.
func (p UpdatePolicy) Valid() bool {
	return p == KeepBest || p == KeepLatest || p == KeepAll
}

// Decision is the outcome of applying an update policy to a submission.
type Decision int

const (
	// KeepCurrent leaves the ranking state unchanged; the write is
	// acknowledged with the retained current entry.
	KeepCurrent Decision = iota
	// ReplaceCurrent supersedes the player's current entry.
	ReplaceCurrent
	// AppendHistory retains the entry in history; whether it becomes
	// current depends on the ordering applied over the full history.
	AppendHistory
)

// Decide applies the update policy to a candidate value against the current
// one. hasCurrent is false when the player has no entry yet, in which case
// the candidate always becomes current (or starts the history).
func Decide(p UpdatePolicy, o Ordering, hasCurrent bool, current, candidate float64) Decision {
	if p == KeepAll {
		return AppendHistory
	}
	if !hasCurrent {
		return ReplaceCurrent
	}
	switch p {
	case KeepLatest:
		return ReplaceCurrent
	case KeepBest:
		if o.Better(candidate, current) {
			return ReplaceCurrent
		}
		return KeepCurrent
	default:
		return KeepCurrent
	}
}
