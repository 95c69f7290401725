// Package field implements arithmetic in the prime field GF(p) with
// p = 2^61 - 1, the Mersenne prime used by every other secagg package.
//
// An [Element] is a uint64 that is always kept in canonical form, i.e. in
// the range [0, p). All operations take and return canonical elements, so no
// caller ever observes a negative value or a value >= p.
//
// # Why a Mersenne prime
//
// With p = 2^61 - 1 two field elements fit in native 64-bit words and the
// full product of two elements fits in 122 bits. Reduction of a wide value
// only needs shifts, masks and one conditional subtraction:
//
//	x mod p = (x & p) + (x >> 61)   (then subtract p once if needed)
//
// [Mul] always computes the full 128-bit product with [math/bits.Mul64]
// before reducing. Native 64-bit wraparound would silently corrupt shares.
//
// # Inversion
//
// [Inverse] uses Fermat's little theorem, a^(p-2) mod p. Zero has no
// inverse and yields [ErrDomain]; Lagrange interpolation only hits it when
// two shares carry the same index.
package field
