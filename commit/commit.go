package commit

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"golang.org/x/crypto/blake2b"
)

// Size is the length of an encoded commitment.
const Size = 32

// prefix separates commitment hashing from any other use of the seed.
const prefix = "SECAGG-SEED-COMMITMENT-BJJ-BLAKE512-v1"

// ErrInvalidCommitment is returned when bytes do not encode a curve point.
var ErrInvalidCommitment = errors.New("commit: invalid commitment")

// Commitment is a compressed Baby Jubjub point.
type Commitment [Size]byte

// Seed commits to seed.
func Seed(seed []byte) Commitment {
	curve := twistededwards.GetEdwardsCurve()
	s := hashToScalar(seed, &curve.Order)

	var p twistededwards.PointAffine
	p.ScalarMultiplication(&curve.Base, s)
	return Commitment(p.Bytes())
}

// Parse decodes and validates an encoded commitment.
func Parse(data []byte) (Commitment, error) {
	if len(data) != Size {
		return Commitment{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidCommitment, Size, len(data))
	}
	var p twistededwards.PointAffine
	if err := p.Unmarshal(data); err != nil {
		return Commitment{}, fmt.Errorf("%w: %w", ErrInvalidCommitment, err)
	}
	if !p.IsOnCurve() {
		return Commitment{}, fmt.Errorf("%w: point not on curve", ErrInvalidCommitment)
	}
	return Commitment(data), nil
}

// Verify reports whether c commits to seed.
func (c Commitment) Verify(seed []byte) bool {
	want := Seed(seed)
	return subtle.ConstantTimeCompare(c[:], want[:]) == 1
}

// Bytes returns a copy of the encoded commitment.
func (c Commitment) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, c[:])
	return out
}

// IsZero reports whether c is the zero value rather than a real commitment.
func (c Commitment) IsZero() bool {
	return c == Commitment{}
}

// hashToScalar hashes data with BLAKE2b-512 and reduces it modulo order.
// The 64-byte digest makes the reduction bias negligible.
func hashToScalar(data []byte, order *big.Int) *big.Int {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(prefix))
	h.Write(data)
	digest := h.Sum(nil)

	s := new(big.Int).SetBytes(digest)
	return s.Mod(s, order)
}
