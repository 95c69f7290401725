package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/f3rmion/secagg/field"
	"github.com/f3rmion/secagg/shamir"
)

// ErrDecoding is wrapped by every error returned for malformed payloads.
var ErrDecoding = errors.New("codec: malformed payload")

var (
	bundleMagic = [4]byte{'S', 'A', 'B', '1'}
	unmaskMagic = [4]byte{'S', 'A', 'U', '1'}
)

const headerSize = 4 + 2 + 2 + 2

// UnmaskShare is a share of a dropped participant's seed, held by the
// participant at Share.Index.
type UnmaskShare struct {
	Owner int
	Share shamir.Share
}

// EncodeBundles serializes the share bundles generated for total
// participants.
func EncodeBundles(total int, bundles []shamir.Share) ([]byte, error) {
	width, err := checkHeader(total, len(bundles), func(i int) shamir.Share { return bundles[i] })
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, headerSize+len(bundles)*(2+width*ElementSize))
	out = appendHeader(out, bundleMagic, total, len(bundles), width)
	for _, b := range bundles {
		out = binary.BigEndian.AppendUint16(out, uint16(b.Index))
		out = append(out, ElementsToBytes(b.Values)...)
	}
	return out, nil
}

// DecodeBundles parses a payload produced by EncodeBundles. It returns the
// participant count from the header and the bundles in wire order.
func DecodeBundles(data []byte) (int, []shamir.Share, error) {
	r := reader{data: data}
	total, count, width, err := r.header(bundleMagic)
	if err != nil {
		return 0, nil, err
	}

	seen := make(map[int]bool, count)
	bundles := make([]shamir.Share, 0, count)
	for i := 0; i < count; i++ {
		idx, err := r.index(total)
		if err != nil {
			return 0, nil, fmt.Errorf("bundle %d: %w", i, err)
		}
		if seen[idx] {
			return 0, nil, fmt.Errorf("%w: duplicate bundle index %d", ErrDecoding, idx)
		}
		seen[idx] = true

		values, err := r.elements(width)
		if err != nil {
			return 0, nil, fmt.Errorf("bundle %d: %w", i, err)
		}
		bundles = append(bundles, shamir.Share{Index: idx, Values: values})
	}
	if err := r.done(); err != nil {
		return 0, nil, err
	}
	return total, bundles, nil
}

// EncodeUnmaskShares serializes unmasking shares for total participants.
func EncodeUnmaskShares(total int, shares []UnmaskShare) ([]byte, error) {
	width, err := checkHeader(total, len(shares), func(i int) shamir.Share { return shares[i].Share })
	if err != nil {
		return nil, err
	}
	for _, s := range shares {
		if s.Owner < 1 || s.Owner > total {
			return nil, fmt.Errorf("owner %d outside [1, %d]", s.Owner, total)
		}
	}

	out := make([]byte, 0, headerSize+len(shares)*(4+width*ElementSize))
	out = appendHeader(out, unmaskMagic, total, len(shares), width)
	for _, s := range shares {
		out = binary.BigEndian.AppendUint16(out, uint16(s.Owner))
		out = binary.BigEndian.AppendUint16(out, uint16(s.Share.Index))
		out = append(out, ElementsToBytes(s.Share.Values)...)
	}
	return out, nil
}

// DecodeUnmaskShares parses a payload produced by EncodeUnmaskShares.
func DecodeUnmaskShares(data []byte) (int, []UnmaskShare, error) {
	r := reader{data: data}
	total, count, width, err := r.header(unmaskMagic)
	if err != nil {
		return 0, nil, err
	}

	shares := make([]UnmaskShare, 0, count)
	seen := make(map[[2]int]bool, count)
	for i := 0; i < count; i++ {
		owner, err := r.index(total)
		if err != nil {
			return 0, nil, fmt.Errorf("entry %d owner: %w", i, err)
		}
		idx, err := r.index(total)
		if err != nil {
			return 0, nil, fmt.Errorf("entry %d index: %w", i, err)
		}
		key := [2]int{owner, idx}
		if seen[key] {
			return 0, nil, fmt.Errorf("%w: duplicate share %d for owner %d", ErrDecoding, idx, owner)
		}
		seen[key] = true

		values, err := r.elements(width)
		if err != nil {
			return 0, nil, fmt.Errorf("entry %d: %w", i, err)
		}
		shares = append(shares, UnmaskShare{
			Owner: owner,
			Share: shamir.Share{Index: idx, Values: values},
		})
	}
	if err := r.done(); err != nil {
		return 0, nil, err
	}
	return total, shares, nil
}

// checkHeader validates the fields shared by both payload kinds and
// returns the common vector width.
func checkHeader(total, count int, at func(int) shamir.Share) (int, error) {
	if total < 1 || total > math.MaxUint16 {
		return 0, fmt.Errorf("total %d outside [1, %d]", total, math.MaxUint16)
	}
	if count > math.MaxUint16 {
		return 0, fmt.Errorf("too many entries: %d", count)
	}
	width := 0
	for i := 0; i < count; i++ {
		s := at(i)
		if i == 0 {
			width = len(s.Values)
		}
		if len(s.Values) != width {
			return 0, errors.New("entries have different lengths")
		}
		if s.Index < 1 || s.Index > total {
			return 0, fmt.Errorf("share index %d outside [1, %d]", s.Index, total)
		}
	}
	if width > math.MaxUint16 {
		return 0, fmt.Errorf("vector too wide: %d", width)
	}
	return width, nil
}

func appendHeader(out []byte, magic [4]byte, total, count, width int) []byte {
	out = append(out, magic[:]...)
	out = binary.BigEndian.AppendUint16(out, uint16(total))
	out = binary.BigEndian.AppendUint16(out, uint16(count))
	out = binary.BigEndian.AppendUint16(out, uint16(width))
	return out
}

// reader is a bounds-checked cursor over a payload.
type reader struct {
	data []byte
	off  int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || len(r.data)-r.off < n {
		return nil, fmt.Errorf("%w: truncated at offset %d", ErrDecoding, r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint16() (int, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(b)), nil
}

func (r *reader) header(magic [4]byte) (total, count, width int, err error) {
	m, err := r.take(4)
	if err != nil {
		return 0, 0, 0, err
	}
	if [4]byte(m) != magic {
		return 0, 0, 0, fmt.Errorf("%w: unexpected magic %q", ErrDecoding, m)
	}
	if total, err = r.uint16(); err != nil {
		return 0, 0, 0, err
	}
	if total == 0 {
		return 0, 0, 0, fmt.Errorf("%w: zero participants", ErrDecoding)
	}
	if count, err = r.uint16(); err != nil {
		return 0, 0, 0, err
	}
	if width, err = r.uint16(); err != nil {
		return 0, 0, 0, err
	}
	if count == 0 && width != 0 {
		return 0, 0, 0, fmt.Errorf("%w: width %d without entries", ErrDecoding, width)
	}
	return total, count, width, nil
}

func (r *reader) index(total int) (int, error) {
	idx, err := r.uint16()
	if err != nil {
		return 0, err
	}
	if idx < 1 || idx > total {
		return 0, fmt.Errorf("%w: index %d outside [1, %d]", ErrDecoding, idx, total)
	}
	return idx, nil
}

func (r *reader) elements(width int) ([]field.Element, error) {
	b, err := r.take(width * ElementSize)
	if err != nil {
		return nil, err
	}
	values, err := BytesToElements(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecoding, err)
	}
	return values, nil
}

func (r *reader) done() error {
	if r.off != len(r.data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrDecoding, len(r.data)-r.off)
	}
	return nil
}
