package lib

import (
	"crypto/cipher"

	"golang.org/x/xerrors"
)

// ErrMalformedShare flags a share vector of the wrong length or with a
// component outside the field.
var ErrMalformedShare = xerrors.New("malformed share")

// Share splits a ballot vector into d additive shares over f: d-1 vectors of
// fresh uniform field elements plus one closing vector that brings the
// component-wise sum back to the ballot mod p. Any proper subset of the
// returned shares is uniformly distributed independently of the ballot, so a
// single tallier learns nothing from the share it receives.
func Share(f Field, ballot []uint32, d int, stream cipher.Stream) ([][]uint32, error) {
	if d < 2 {
		return nil, xerrors.Errorf("cannot split a ballot into %d shares", d)
	}
	if err := f.ValidVec(ballot); err != nil {
		return nil, xerrors.Errorf("ballot: %w", err)
	}

	shares := make([][]uint32, d)
	closing := make([]uint32, len(ballot))
	copy(closing, ballot)
	for i := 0; i < d-1; i++ {
		share := make([]uint32, len(ballot))
		for j := range share {
			share[j] = f.Random(stream)
			closing[j] = f.Sub(closing[j], share[j])
		}
		shares[i] = share
	}
	shares[d-1] = closing
	return shares, nil
}

// Combine adds share vectors component-wise mod p. Fed the d shares of one
// ballot it restores the ballot; fed the d tallier accumulators it restores
// the aggregate result.
func Combine(f Field, shares ...[]uint32) ([]uint32, error) {
	if len(shares) == 0 {
		return nil, xerrors.New("no shares to combine")
	}
	sum := make([]uint32, len(shares[0]))
	for _, share := range shares {
		if err := f.ValidVec(share); err != nil {
			return nil, err
		}
		if err := f.AddVec(sum, share); err != nil {
			return nil, err
		}
	}
	return sum, nil
}
