package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func pairwiseCounts(m int, wins map[[2]int]uint32) []uint32 {
	counts := make([]uint32, m*(m-1))
	for pair, n := range wins {
		counts[PairIndex(m, pair[0], pair[1])] = n
	}
	return counts
}

func TestWinnersPlurality(t *testing.T) {
	e := genElection(Plurality)
	agg := &Aggregate{Counts: []uint32{2, 1, 0}, Voters: 3, Complete: true}
	winners, err := Winners(e, agg)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, "ada", winners[0].Name)
	assert.Equal(t, int64(2), winners[0].Score)
}

func TestWinnersRange(t *testing.T) {
	e := genElection(Range)
	agg := &Aggregate{Counts: []uint32{7, 9, 4}, Voters: 2, Complete: true}
	winners, err := Winners(e, agg)
	require.NoError(t, err)
	assert.Equal(t, "grace", winners[0].Name)
	assert.Equal(t, int64(9), winners[0].Score)
}

func TestWinnersApproval(t *testing.T) {
	e := genElection(Approval)
	agg := &Aggregate{Counts: []uint32{2, 3, 3}, Voters: 4, Complete: true}
	winners, err := Winners(e, agg)
	require.NoError(t, err)
	// Tie between grace and edsger resolves to the lower index.
	assert.Equal(t, "grace", winners[0].Name)
}

func TestWinnersVeto(t *testing.T) {
	e := genElection(Veto)
	// Counts are vetoes, the best candidate is the least vetoed one.
	agg := &Aggregate{Counts: []uint32{1, 2, 0}, Voters: 3, Complete: true}
	winners, err := Winners(e, agg)
	require.NoError(t, err)
	assert.Equal(t, "edsger", winners[0].Name)
	assert.Equal(t, int64(3), winners[0].Score)
}

func TestWinnersBorda(t *testing.T) {
	e := genElection(Borda)
	agg := &Aggregate{Counts: []uint32{4, 2, 3}, Voters: 3, Complete: true}
	winners, err := Winners(e, agg)
	require.NoError(t, err)
	assert.Equal(t, "ada", winners[0].Name)
	assert.Equal(t, int64(4), winners[0].Score)
}

func TestWinnersCopeland(t *testing.T) {
	e := genElection(Copeland)
	counts := pairwiseCounts(3, map[[2]int]uint32{
		{0, 1}: 2, {1, 0}: 1,
		{0, 2}: 2, {2, 0}: 1,
		{1, 2}: 0, {2, 1}: 3,
	})
	agg := &Aggregate{Counts: counts, Voters: 3, Complete: true}
	scores, err := Scores(e, agg)
	require.NoError(t, err)
	assert.Equal(t, int64(2), scores[0].Score)
	assert.Equal(t, int64(0), scores[1].Score)
	assert.Equal(t, int64(1), scores[2].Score)

	winners, err := Winners(e, agg)
	require.NoError(t, err)
	assert.Equal(t, "ada", winners[0].Name)
}

func TestWinnersMaximin(t *testing.T) {
	e := genElection(Maximin)
	counts := pairwiseCounts(3, map[[2]int]uint32{
		{0, 1}: 2, {1, 0}: 1,
		{0, 2}: 2, {2, 0}: 1,
		{1, 2}: 0, {2, 1}: 3,
	})
	agg := &Aggregate{Counts: counts, Voters: 3, Complete: true}
	scores, err := Scores(e, agg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scores[0].Score)
	assert.Equal(t, int64(-3), scores[1].Score)
	assert.Equal(t, int64(-1), scores[2].Score)

	winners, err := Winners(e, agg)
	require.NoError(t, err)
	assert.Equal(t, "ada", winners[0].Name)
	assert.Equal(t, int64(1), winners[0].Score)
}

func TestWinnersTieBreak(t *testing.T) {
	e := genElection(Plurality)
	e.Winners = 2
	agg := &Aggregate{Counts: []uint32{2, 2, 2}, Voters: 6, Complete: true}
	winners, err := Winners(e, agg)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, 0, winners[0].Index)
	assert.Equal(t, 1, winners[1].Index)
}

func TestWinnersIncomplete(t *testing.T) {
	e := genElection(Plurality)

	_, err := Winners(e, nil)
	require.True(t, xerrors.Is(err, ErrIncompleteAggregate))

	_, err = Winners(e, &Aggregate{Counts: []uint32{1, 1, 1}, Voters: 3})
	require.True(t, xerrors.Is(err, ErrIncompleteAggregate))

	_, err = Winners(e, &Aggregate{Counts: []uint32{1, 1}, Voters: 2, Complete: true})
	require.True(t, xerrors.Is(err, ErrIncompleteAggregate))
}
