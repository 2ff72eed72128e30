package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairIndex(t *testing.T) {
	// Row-major over the off-diagonal entries of a 3x3 matrix.
	assert.Equal(t, 0, PairIndex(3, 0, 1))
	assert.Equal(t, 1, PairIndex(3, 0, 2))
	assert.Equal(t, 2, PairIndex(3, 1, 0))
	assert.Equal(t, 3, PairIndex(3, 1, 2))
	assert.Equal(t, 4, PairIndex(3, 2, 0))
	assert.Equal(t, 5, PairIndex(3, 2, 1))
}

func TestOneHot(t *testing.T) {
	b, err := OneHot(3, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 0}, b)

	_, err = OneHot(3, 3)
	require.Error(t, err)
	_, err = OneHot(3, -1)
	require.Error(t, err)
}

func TestBordaFromRanking(t *testing.T) {
	b, err := BordaFromRanking([]int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 0, 2}, b)

	_, err = BordaFromRanking([]int{0, 0, 1})
	require.Error(t, err)
}

func TestPairwiseFromRanking(t *testing.T) {
	b, err := PairwiseFromRanking([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, b)

	b, err = PairwiseFromRanking([]int{2, 0, 1})
	require.NoError(t, err)
	// 2 beats 0 and 1, 0 beats 1.
	assert.Equal(t, uint32(1), b[PairIndex(3, 2, 0)])
	assert.Equal(t, uint32(1), b[PairIndex(3, 2, 1)])
	assert.Equal(t, uint32(1), b[PairIndex(3, 0, 1)])
	assert.Equal(t, uint32(0), b[PairIndex(3, 0, 2)])
	assert.Equal(t, uint32(0), b[PairIndex(3, 1, 2)])
	assert.Equal(t, uint32(0), b[PairIndex(3, 1, 0)])

	_, err = PairwiseFromRanking([]int{0, 2})
	require.Error(t, err)
}

func TestValidateBallotPlurality(t *testing.T) {
	e := genElection(Plurality)
	require.NoError(t, ValidateBallot(e, []uint32{0, 1, 0}))
	require.Error(t, ValidateBallot(e, []uint32{1, 1, 0}))
	require.Error(t, ValidateBallot(e, []uint32{0, 0, 0}))
	require.Error(t, ValidateBallot(e, []uint32{0, 2, 0}))
	require.Error(t, ValidateBallot(e, []uint32{0, 1}))
}

func TestValidateBallotApproval(t *testing.T) {
	e := genElection(Approval)
	require.NoError(t, ValidateBallot(e, []uint32{1, 1, 0}))
	require.NoError(t, ValidateBallot(e, []uint32{0, 0, 0}))
	require.Error(t, ValidateBallot(e, []uint32{0, 3, 0}))
}

func TestValidateBallotVeto(t *testing.T) {
	e := genElection(Veto)
	require.NoError(t, ValidateBallot(e, []uint32{0, 0, 1}))
	require.Error(t, ValidateBallot(e, []uint32{1, 0, 1}))
	require.Error(t, ValidateBallot(e, []uint32{0, 0, 0}))
}

func TestValidateBallotRange(t *testing.T) {
	e := genElection(Range)
	require.NoError(t, ValidateBallot(e, []uint32{0, 5, 3}))
	require.Error(t, ValidateBallot(e, []uint32{0, 6, 3}))
}

func TestValidateBallotBorda(t *testing.T) {
	e := genElection(Borda)
	require.NoError(t, ValidateBallot(e, []uint32{2, 0, 1}))
	require.Error(t, ValidateBallot(e, []uint32{2, 2, 1}))
	require.Error(t, ValidateBallot(e, []uint32{3, 0, 1}))
}

func TestValidateBallotPairwise(t *testing.T) {
	e := genElection(Copeland)
	b, err := PairwiseFromRanking([]int{0, 1, 2})
	require.NoError(t, err)
	require.NoError(t, ValidateBallot(e, b))

	// Claiming both directions of one pair breaks antisymmetry.
	b[PairIndex(3, 1, 0)] = 1
	require.Error(t, ValidateBallot(e, b))

	e = genElection(Maximin)
	b, _ = PairwiseFromRanking([]int{2, 1, 0})
	require.NoError(t, ValidateBallot(e, b))
	require.Error(t, ValidateBallot(e, []uint32{1, 0, 1}))
}
