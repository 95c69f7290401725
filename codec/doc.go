// Package codec converts between raw bytes, field elements and the wire
// payloads exchanged by secure aggregation participants.
//
// # Elements
//
// [BytesToElements] reads consecutive 8-byte big-endian groups as field
// elements, zero-padding the last group. Groups whose value is >= p are a
// caller error and yield [ErrNonCanonical]; they are never wrapped.
// [ElementsToBytes] is the inverse and round-trips exactly whenever the
// original length is a multiple of 8.
//
// [WordsToElements] and [ElementsToWords] use 4-byte words instead, one
// element per 32-bit value:
//
//	00 00 00 2A 00 00 05 39  <->  [42, 1337]
//
// # Share bundles
//
// Key share payloads carry one bundle per recipient:
//
//	"SAB1" | u16 total | u16 count | u16 width | count x (u16 index | width x u64)
//
// Unmasking payloads carry the shares a survivor holds for dropped peers:
//
//	"SAU1" | u16 total | u16 count | u16 width | count x (u16 owner | u16 index | width x u64)
//
// All integers are big-endian. Decoders reject truncated input, trailing
// bytes, unknown magic, indices outside [1, total], duplicates and
// non-canonical values with an error wrapping [ErrDecoding].
package codec
