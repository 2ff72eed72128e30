package lib

import (
	"golang.org/x/xerrors"
)

// PairIndex flattens the ordered candidate pair (i, j), i != j, into the
// pairwise vector layout: row-major over the m*(m-1) off-diagonal entries of
// the preference matrix.
func PairIndex(m, i, j int) int {
	if j > i {
		return i*(m-1) + j - 1
	}
	return i*(m-1) + j
}

// OneHot returns a vector of length m with a single one at choice. It is the
// ballot shape of Plurality (choice = the supported candidate) and Veto
// (choice = the vetoed candidate).
func OneHot(m, choice int) ([]uint32, error) {
	if choice < 0 || choice >= m {
		return nil, xerrors.Errorf("candidate index %d outside [0, %d)", choice, m)
	}
	b := make([]uint32, m)
	b[choice] = 1
	return b, nil
}

// BordaFromRanking turns a strict ranking (candidate indices, best first)
// into the Borda weight vector: the top candidate weighs m-1, the last 0.
func BordaFromRanking(ranking []int) ([]uint32, error) {
	m := len(ranking)
	if err := validateRanking(m, ranking); err != nil {
		return nil, err
	}
	b := make([]uint32, m)
	for pos, c := range ranking {
		b[c] = uint32(m - 1 - pos)
	}
	return b, nil
}

// PairwiseFromRanking turns a strict ranking into the flattened
// pairwise-preference matrix: entry (i, j) is 1 exactly when i is ranked
// above j. It is the ballot shape of Copeland and Maximin.
func PairwiseFromRanking(ranking []int) ([]uint32, error) {
	m := len(ranking)
	if err := validateRanking(m, ranking); err != nil {
		return nil, err
	}
	pos := make([]int, m)
	for p, c := range ranking {
		pos[c] = p
	}
	b := make([]uint32, m*(m-1))
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if i != j && pos[i] < pos[j] {
				b[PairIndex(m, i, j)] = 1
			}
		}
	}
	return b, nil
}

func validateRanking(m int, ranking []int) error {
	if m < 2 {
		return xerrors.Errorf("ranking over %d candidates", m)
	}
	seen := make([]bool, m)
	for _, c := range ranking {
		if c < 0 || c >= m || seen[c] {
			return xerrors.Errorf("ranking is not a permutation of 0..%d", m-1)
		}
		seen[c] = true
	}
	return nil
}

// ValidateBallot checks a plaintext ballot against the election's rule. This
// runs in the voter client before splitting: a tallier only ever sees opaque
// shares and can re-check nothing beyond length and field range.
func ValidateBallot(e *Election, ballot []uint32) error {
	if len(ballot) != e.VectorLen() {
		return xerrors.Errorf("ballot length %d, rule %v wants %d",
			len(ballot), e.Rule, e.VectorLen())
	}
	f, err := e.Field()
	if err != nil {
		return err
	}
	if err := f.ValidVec(ballot); err != nil {
		return err
	}

	switch e.Rule {
	case Plurality, Veto:
		if err := binary(ballot); err != nil {
			return err
		}
		if sum(ballot) != 1 {
			return xerrors.Errorf("%v ballot must select exactly one candidate", e.Rule)
		}
	case Approval:
		if err := binary(ballot); err != nil {
			return err
		}
	case Range:
		for c, v := range ballot {
			if v > e.MaxRating {
				return xerrors.Errorf("rating %d for candidate %d above max %d",
					v, c, e.MaxRating)
			}
		}
	case Borda:
		seen := make([]bool, e.M())
		for _, v := range ballot {
			if v >= uint32(e.M()) || seen[v] {
				return xerrors.Errorf("borda ballot is not a permutation of weights 0..%d",
					e.M()-1)
			}
			seen[v] = true
		}
	case Copeland, Maximin:
		if err := binary(ballot); err != nil {
			return err
		}
		m := e.M()
		for i := 0; i < m; i++ {
			for j := i + 1; j < m; j++ {
				if ballot[PairIndex(m, i, j)]+ballot[PairIndex(m, j, i)] != 1 {
					return xerrors.Errorf("preference between %d and %d is not antisymmetric",
						i, j)
				}
			}
		}
	default:
		return xerrors.Errorf("unknown rule %d", e.Rule)
	}
	return nil
}

func binary(v []uint32) error {
	for c, x := range v {
		if x > 1 {
			return xerrors.Errorf("component %d is %d, must be 0 or 1", c, x)
		}
	}
	return nil
}

func sum(v []uint32) uint64 {
	var s uint64
	for _, x := range v {
		s += uint64(x)
	}
	return s
}
