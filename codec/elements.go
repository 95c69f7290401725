package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/f3rmion/secagg/field"
)

// ElementSize is the number of bytes used to encode one field element.
const ElementSize = 8

// ErrNonCanonical is returned when an 8-byte group encodes a value >= p.
var ErrNonCanonical = errors.New("codec: value is not a canonical field element")

// ElementCount returns how many elements BytesToElements produces for n bytes.
func ElementCount(n int) int {
	return (n + ElementSize - 1) / ElementSize
}

// BytesToElements splits b into 8-byte big-endian groups and interprets
// each as a field element. A short final group is zero-padded on the right.
func BytesToElements(b []byte) ([]field.Element, error) {
	out := make([]field.Element, ElementCount(len(b)))
	var group [ElementSize]byte
	for i := range out {
		chunk := b[i*ElementSize : min((i+1)*ElementSize, len(b))]
		clear(group[:])
		copy(group[:], chunk)

		v := binary.BigEndian.Uint64(group[:])
		if !field.IsCanonical(v) {
			return nil, fmt.Errorf("%w: group %d", ErrNonCanonical, i)
		}
		out[i] = field.Element(v)
	}
	return out, nil
}

// ElementsToBytes encodes each element as 8 big-endian bytes.
func ElementsToBytes(elements []field.Element) []byte {
	out := make([]byte, len(elements)*ElementSize)
	for i, e := range elements {
		binary.BigEndian.PutUint64(out[i*ElementSize:], e.Uint64())
	}
	return out
}

// WordSize is the number of bytes in one 32-bit word.
const WordSize = 4

// WordsToElements reads b as consecutive 4-byte big-endian words, zero-padding
// a short final word, and lifts each word into the field. Every 32-bit value
// is canonical, so this never fails. It is used to widen quantized 32-bit
// model weights into one element each before masking.
func WordsToElements(b []byte) []field.Element {
	out := make([]field.Element, (len(b)+WordSize-1)/WordSize)
	var word [WordSize]byte
	for i := range out {
		chunk := b[i*WordSize : min((i+1)*WordSize, len(b))]
		clear(word[:])
		copy(word[:], chunk)
		out[i] = field.Element(binary.BigEndian.Uint32(word[:]))
	}
	return out
}

// ElementsToWords encodes each element as a 4-byte big-endian word. It fails
// if any element does not fit in 32 bits.
func ElementsToWords(elements []field.Element) ([]byte, error) {
	out := make([]byte, len(elements)*WordSize)
	for i, e := range elements {
		if e.Uint64() > math.MaxUint32 {
			return nil, fmt.Errorf("element %d does not fit in 32 bits: %d", i, e)
		}
		binary.BigEndian.PutUint32(out[i*WordSize:], uint32(e))
	}
	return out, nil
}
