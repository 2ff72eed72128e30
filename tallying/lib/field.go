package lib

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

const (
	// MinFieldSize is the smallest accepted field size, 2^13 - 1.
	MinFieldSize = 1<<13 - 1
	// MaxFieldSize is the largest accepted field size, 2^32. It does not
	// fit in a uint32, hence the uint64 carrier for field sizes. Canonical
	// field values always fit in a uint32.
	MaxFieldSize = 1 << 32
	// DefaultFieldSize is the Mersenne prime 2^31 - 1.
	DefaultFieldSize = 1<<31 - 1
)

// ErrInvalidFieldValue flags a value outside the canonical range [0, p).
var ErrInvalidFieldValue = xerrors.New("value outside field range")

// Field is the prime field Z_p all ballot shares and accumulators live in.
// Arithmetic uses uint64 intermediates so that sizes close to 2^32 cannot
// overflow.
type Field struct {
	P uint64
}

// NewField returns the field of the given size. Sizes outside
// [MinFieldSize, MaxFieldSize] are refused.
func NewField(p uint64) (Field, error) {
	if p < MinFieldSize || p > MaxFieldSize {
		return Field{}, xerrors.Errorf("field size %d outside [%d, %d]: %w",
			p, uint64(MinFieldSize), uint64(MaxFieldSize), ErrInvalidFieldValue)
	}
	return Field{P: p}, nil
}

// Valid returns nil if v is canonical, that is v < p.
func (f Field) Valid(v uint32) error {
	if uint64(v) >= f.P {
		return xerrors.Errorf("%d not in [0, %d): %w", v, f.P, ErrInvalidFieldValue)
	}
	return nil
}

// ValidVec checks every component of v for canonicity.
func (f Field) ValidVec(v []uint32) error {
	for _, c := range v {
		if err := f.Valid(c); err != nil {
			return err
		}
	}
	return nil
}

// Add returns (a + b) mod p.
func (f Field) Add(a, b uint32) uint32 {
	return uint32((uint64(a) + uint64(b)) % f.P)
}

// Sub returns (a - b) mod p.
func (f Field) Sub(a, b uint32) uint32 {
	return uint32((uint64(a) + f.P - uint64(b)) % f.P)
}

// AddVec folds src into dst component-wise mod p. The two vectors must have
// the same length.
func (f Field) AddVec(dst, src []uint32) error {
	if len(dst) != len(src) {
		return xerrors.Errorf("vector length %d != %d: %w",
			len(src), len(dst), ErrMalformedShare)
	}
	for i := range src {
		dst[i] = f.Add(dst[i], src[i])
	}
	return nil
}

// Random draws a uniform field element from the given stream.
func (f Field) Random(stream cipher.Stream) uint32 {
	mod := new(big.Int).SetUint64(f.P)
	return uint32(random.Int(mod, stream).Uint64())
}
