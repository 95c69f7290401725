package field

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"strconv"
)

// Modulus is the field prime p = 2^61 - 1.
const Modulus uint64 = 1<<61 - 1

// Bits is the bit length of the modulus.
const Bits = 61

// ErrDomain is returned for operations outside their mathematical domain,
// such as inverting zero or building an element from a value >= p.
var ErrDomain = errors.New("field: value outside domain")

// Element is a canonical member of GF(p), always in [0, p).
type Element uint64

// Zero and One are the additive and multiplicative identities.
const (
	Zero Element = 0
	One  Element = 1
)

// New returns v as a field element. Values >= p are rejected rather than
// reduced so that wire data is never silently wrapped.
func New(v uint64) (Element, error) {
	if v >= Modulus {
		return 0, fmt.Errorf("%w: %d >= 2^61-1", ErrDomain, v)
	}
	return Element(v), nil
}

// Reduce maps an arbitrary uint64 into the field.
func Reduce(v uint64) Element {
	return Element(fold(v))
}

// FromInt maps a small signed integer (such as a participant index) into
// the field. Negative values wrap to p - |v|.
func FromInt(v int) Element {
	if v < 0 {
		return Neg(Reduce(uint64(-v)))
	}
	return Reduce(uint64(v))
}

// IsCanonical reports whether v is already a valid element.
func IsCanonical(v uint64) bool {
	return v < Modulus
}

// fold reduces any 64-bit value modulo p.
func fold(v uint64) uint64 {
	r := (v & Modulus) + (v >> Bits)
	if r >= Modulus {
		r -= Modulus
	}
	return r
}

// Add returns a + b mod p.
func Add(a, b Element) Element {
	s := uint64(a) + uint64(b)
	if s >= Modulus {
		s -= Modulus
	}
	return Element(s)
}

// Sub returns a - b mod p.
func Sub(a, b Element) Element {
	if a >= b {
		return a - b
	}
	return Element(uint64(a) + Modulus - uint64(b))
}

// Neg returns -a mod p.
func Neg(a Element) Element {
	if a == 0 {
		return 0
	}
	return Element(Modulus - uint64(a))
}

// Mul returns a * b mod p using a full 128-bit intermediate product.
func Mul(a, b Element) Element {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	// The product is below 2^122, so hi < 2^58 and the shift cannot lose bits.
	high := hi<<(64-Bits) | lo>>Bits
	return Element(fold((lo & Modulus) + high))
}

// Exp returns a^e mod p by square-and-multiply.
func Exp(a Element, e uint64) Element {
	result := One
	base := a
	for e > 0 {
		if e&1 == 1 {
			result = Mul(result, base)
		}
		base = Mul(base, base)
		e >>= 1
	}
	return result
}

// Inverse returns a^(p-2) mod p, the multiplicative inverse of a.
// It returns ErrDomain when a is zero.
func Inverse(a Element) (Element, error) {
	if a == 0 {
		return 0, fmt.Errorf("%w: cannot invert zero", ErrDomain)
	}
	return Exp(a, Modulus-2), nil
}

// Random draws a uniformly distributed element from r. Each draw reads
// 8 bytes and keeps the low 61 bits; the single value equal to p is
// rejected and redrawn.
func Random(r io.Reader) (Element, error) {
	var buf [8]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint64(buf[:]) & Modulus
		if v < Modulus {
			return Element(v), nil
		}
	}
}

// RandomVector draws n independent uniform elements from r.
func RandomVector(r io.Reader, n int) ([]Element, error) {
	out := make([]Element, n)
	for i := range out {
		e, err := Random(r)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Uint64 returns the canonical integer value of e.
func (e Element) Uint64() uint64 {
	return uint64(e)
}

// String returns the decimal form of e.
func (e Element) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// Equal reports whether two vectors hold the same elements in the same order.
func Equal(a, b []Element) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
