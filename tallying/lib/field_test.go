package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

func TestNewField(t *testing.T) {
	_, err := NewField(MinFieldSize - 1)
	require.True(t, xerrors.Is(err, ErrInvalidFieldValue))

	_, err = NewField(MaxFieldSize + 1)
	require.True(t, xerrors.Is(err, ErrInvalidFieldValue))

	f, err := NewField(DefaultFieldSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<31-1), f.P)

	_, err = NewField(MinFieldSize)
	require.NoError(t, err)
	_, err = NewField(MaxFieldSize)
	require.NoError(t, err)
}

func TestFieldValid(t *testing.T) {
	f, _ := NewField(MinFieldSize)
	require.NoError(t, f.Valid(MinFieldSize-1))
	require.True(t, xerrors.Is(f.Valid(MinFieldSize), ErrInvalidFieldValue))
	require.NoError(t, f.ValidVec([]uint32{0, 1, MinFieldSize - 1}))
	require.Error(t, f.ValidVec([]uint32{0, MinFieldSize}))
}

func TestFieldAddSub(t *testing.T) {
	// The largest field exercises the intermediate widths: one more bit
	// than uint32 can hold.
	f, _ := NewField(MaxFieldSize)
	a := uint32(1<<32 - 1)
	assert.Equal(t, uint32(1<<32-2), f.Add(a, a))
	assert.Equal(t, uint32(0), f.Sub(a, a))
	assert.Equal(t, a, f.Sub(0, 1))

	f, _ = NewField(DefaultFieldSize)
	assert.Equal(t, uint32(0), f.Add(DefaultFieldSize-1, 1))
	assert.Equal(t, uint32(DefaultFieldSize-1), f.Sub(0, 1))
	assert.Equal(t, uint32(5), f.Add(2, 3))
}

func TestFieldAddVec(t *testing.T) {
	f, _ := NewField(DefaultFieldSize)
	dst := []uint32{1, DefaultFieldSize - 1}
	require.NoError(t, f.AddVec(dst, []uint32{1, 1}))
	assert.Equal(t, []uint32{2, 0}, dst)

	err := f.AddVec(dst, []uint32{1})
	require.True(t, xerrors.Is(err, ErrMalformedShare))
}

func TestFieldRandom(t *testing.T) {
	f, _ := NewField(MinFieldSize)
	for i := 0; i < 100; i++ {
		require.NoError(t, f.Valid(f.Random(random.New())))
	}
}
