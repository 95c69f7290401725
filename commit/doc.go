// Package commit binds a participant to its masking seed with a public
// commitment on the Baby Jubjub curve.
//
// A commitment is the compressed point
//
//	C = H(seed) * G
//
// where H is BLAKE2b-512 with a domain-separation prefix, reduced modulo the
// prime subgroup order, and G is the standard base point. The curve
// arithmetic comes from gnark-crypto.
//
// A participant publishes its commitment together with its key shares.
// When the aggregator later reconstructs a dropped participant's seed from a
// threshold of survivors' shares, [Commitment.Verify] confirms that the
// reconstruction matches what the participant committed to. Seeds carry at
// least 256 bits of entropy, so C reveals nothing useful about them.
package commit
