package shamir

import (
	"errors"
	"fmt"
	"io"

	"github.com/f3rmion/secagg/field"
)

// Share is one participant's evaluation of every sharing polynomial.
type Share struct {
	Index  int             // evaluation point x, in [1, total]
	Values []field.Element // f_k(Index) for each secret position k
}

// Clone returns a deep copy of s.
func (s Share) Clone() Share {
	values := make([]field.Element, len(s.Values))
	copy(values, s.Values)
	return Share{Index: s.Index, Values: values}
}

// GenerateShares splits secret into total shares, any threshold of which
// reconstruct it. Coefficients are drawn from rng.
//
// The returned slice holds one share per participant, ordered by index
// 1..total.
func GenerateShares(rng io.Reader, secret []field.Element, threshold, total int) ([]Share, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("threshold must be at least 1, got %d", threshold)
	}
	if total < threshold {
		return nil, fmt.Errorf("total (%d) must be >= threshold (%d)", total, threshold)
	}

	shares := make([]Share, total)
	for i := range shares {
		shares[i] = Share{
			Index:  i + 1,
			Values: make([]field.Element, len(secret)),
		}
	}

	coeffs := make([]field.Element, threshold)
	for k, s := range secret {
		coeffs[0] = s
		for j := 1; j < threshold; j++ {
			c, err := field.Random(rng)
			if err != nil {
				return nil, fmt.Errorf("failed to draw coefficient: %w", err)
			}
			coeffs[j] = c
		}

		for i := range shares {
			shares[i].Values[k] = evalPolynomial(coeffs, field.FromInt(i+1))
		}
	}

	// Coefficients are as sensitive as the secret.
	for j := range coeffs {
		coeffs[j] = 0
	}

	return shares, nil
}

// evalPolynomial evaluates coeffs at x with Horner's rule.
func evalPolynomial(coeffs []field.Element, x field.Element) field.Element {
	result := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		result = field.Add(field.Mul(result, x), coeffs[i])
	}
	return result
}

// Reconstruct recovers the secret from shares using the first threshold of
// them. If fewer than threshold shares are given, it returns an empty secret
// and no error.
func Reconstruct(shares []Share, threshold int) ([]field.Element, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("threshold must be at least 1, got %d", threshold)
	}
	if len(shares) < threshold {
		return []field.Element{}, nil
	}

	points := shares[:threshold]
	width := len(points[0].Values)
	for _, s := range points {
		if s.Index < 1 {
			return nil, fmt.Errorf("invalid share index: %d (must be >= 1)", s.Index)
		}
		if len(s.Values) != width {
			return nil, errors.New("shares have different lengths")
		}
	}

	basis, err := lagrangeAtZero(points)
	if err != nil {
		return nil, err
	}

	secret := make([]field.Element, width)
	for k := range secret {
		var acc field.Element
		for j, s := range points {
			acc = field.Add(acc, field.Mul(s.Values[k], basis[j]))
		}
		secret[k] = acc
	}
	return secret, nil
}

// lagrangeAtZero returns the Lagrange basis coefficients l_j(0) for the
// indices of points:
//
//	l_j(0) = prod_{k != j} (0 - x_k) / (x_j - x_k)
//
// The coefficients depend only on the indices, so they are computed once and
// reused for every secret position.
func lagrangeAtZero(points []Share) ([]field.Element, error) {
	basis := make([]field.Element, len(points))
	for j, sj := range points {
		xj := field.FromInt(sj.Index)
		num := field.One
		den := field.One
		for k, sk := range points {
			if k == j {
				continue
			}
			xk := field.FromInt(sk.Index)
			num = field.Mul(num, field.Neg(xk))
			den = field.Mul(den, field.Sub(xj, xk))
		}
		inv, err := field.Inverse(den)
		if err != nil {
			return nil, fmt.Errorf("duplicate share index %d: %w", sj.Index, err)
		}
		basis[j] = field.Mul(num, inv)
	}
	return basis, nil
}
