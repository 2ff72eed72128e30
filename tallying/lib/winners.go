package lib

import (
	"math"
	"sort"

	"golang.org/x/xerrors"
)

var (
	// ErrElectionUnresolved is returned when not all talliers delivered
	// their accumulator, so no result can be computed at all.
	ErrElectionUnresolved = xerrors.New("election unresolved")
	// ErrIncompleteAggregate flags an attempt to resolve winners from an
	// aggregate that was never fully combined.
	ErrIncompleteAggregate = xerrors.New("incomplete aggregate")
)

// Aggregate is the election result reconstructed by the coordinator: the
// component-wise sum mod p of all D tallier accumulators. For the pairwise
// rules Counts is the flattened preference matrix, otherwise one count per
// candidate.
type Aggregate struct {
	// Counts has length Election.VectorLen.
	Counts []uint32
	// Voters is the accepted-voter count every tallier agreed on.
	Voters uint32
	// Complete is set once all D accumulators went into Counts. Winner
	// resolution refuses to run without it.
	Complete bool
}

// CandidateScore is one candidate's resolved score.
type CandidateScore struct {
	// Name is the candidate name from the election definition.
	Name string
	// Index is the candidate's position in the definition.
	Index int
	// Score under the election rule. Maximin margins can be negative.
	Score int64
}

// Scores computes the per-candidate scores of a complete aggregate under the
// election's rule, in candidate input order.
func Scores(e *Election, agg *Aggregate) ([]CandidateScore, error) {
	if agg == nil || !agg.Complete {
		return nil, xerrors.Errorf("aggregate not finalized: %w", ErrIncompleteAggregate)
	}
	if len(agg.Counts) != e.VectorLen() {
		return nil, xerrors.Errorf("aggregate length %d, rule %v wants %d: %w",
			len(agg.Counts), e.Rule, e.VectorLen(), ErrIncompleteAggregate)
	}

	m := e.M()
	scores := make([]CandidateScore, m)
	for c := range scores {
		scores[c] = CandidateScore{Name: e.Candidates[c], Index: c}
	}

	switch e.Rule {
	case Plurality, Range, Approval, Borda:
		for c := 0; c < m; c++ {
			scores[c].Score = int64(agg.Counts[c])
		}
	case Veto:
		// The accumulator counts vetoes, so the score subtracts them from
		// the voter total.
		for c := 0; c < m; c++ {
			scores[c].Score = int64(agg.Voters) - int64(agg.Counts[c])
		}
	case Copeland:
		for i := 0; i < m; i++ {
			var wins int64
			for j := 0; j < m; j++ {
				if j == i {
					continue
				}
				if agg.Counts[PairIndex(m, i, j)] > agg.Counts[PairIndex(m, j, i)] {
					wins++
				}
			}
			scores[i].Score = wins
		}
	case Maximin:
		for i := 0; i < m; i++ {
			worst := int64(math.MaxInt64)
			for j := 0; j < m; j++ {
				if j == i {
					continue
				}
				margin := int64(agg.Counts[PairIndex(m, i, j)]) -
					int64(agg.Counts[PairIndex(m, j, i)])
				if margin < worst {
					worst = margin
				}
			}
			scores[i].Score = worst
		}
	default:
		return nil, xerrors.Errorf("unknown rule %d", e.Rule)
	}
	return scores, nil
}

// Winners resolves the K winners of a complete aggregate: the top-scoring
// candidates, ties broken toward the lower candidate index so that the
// outcome is deterministic across runs and platforms.
func Winners(e *Election, agg *Aggregate) ([]CandidateScore, error) {
	scores, err := Scores(e, agg)
	if err != nil {
		return nil, err
	}
	ranked := make([]CandidateScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	return ranked[:e.Winners], nil
}
