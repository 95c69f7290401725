// Package shamir implements Shamir secret sharing of field element vectors
// over [field.Element].
//
// A secret is a vector of elements. Each position is shared independently
// with its own random polynomial of degree t-1 whose constant term is the
// secret element:
//
//	f(x) = s + c1*x + ... + c_{t-1}*x^{t-1}
//
// Participant i (1 <= i <= n) receives f(i) for every position, bundled into
// a single [Share] tagged with its index. Index 0 is never handed out since
// f(0) is the secret itself.
//
// # Reconstruction
//
// [Reconstruct] evaluates the Lagrange interpolation of the first t shares
// at x = 0. Because all shares lie on the same polynomial, every t-subset of
// a sharing yields the same secret.
//
// When fewer than t shares are supplied, [Reconstruct] returns an empty
// secret and a nil error. Callers must check the length of the result before
// treating it as a secret:
//
//	secret, err := shamir.Reconstruct(shares, t)
//	if err != nil {
//		return err
//	}
//	if len(secret) == 0 {
//		// not enough shares yet
//	}
//
// # Threshold one
//
// With t = 1 no coefficients are drawn and every share equals the secret.
package shamir
