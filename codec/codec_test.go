package codec

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/f3rmion/secagg/field"
	"github.com/f3rmion/secagg/shamir"
)

func TestBytesToElements(t *testing.T) {
	t.Run("SingleGroup", func(t *testing.T) {
		raw := []byte{0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x05, 0x39}
		elements, err := BytesToElements(raw)
		if err != nil {
			t.Fatal(err)
		}
		want := field.Element(0x0000002A00000539)
		if len(elements) != 1 || elements[0] != want {
			t.Fatalf("got %v, want [%d]", elements, want)
		}
		if got := ElementsToBytes(elements); !bytes.Equal(got, raw) {
			t.Errorf("round trip = %x, want %x", got, raw)
		}
	})

	t.Run("TwoElements", func(t *testing.T) {
		raw := make([]byte, 16)
		binary.BigEndian.PutUint64(raw[0:], 42)
		binary.BigEndian.PutUint64(raw[8:], 1337)
		elements, err := BytesToElements(raw)
		if err != nil {
			t.Fatal(err)
		}
		if !field.Equal(elements, []field.Element{42, 1337}) {
			t.Fatalf("got %v, want [42 1337]", elements)
		}
		if got := ElementsToBytes(elements); !bytes.Equal(got, raw) {
			t.Errorf("round trip = %x, want %x", got, raw)
		}
	})

	t.Run("PadsFinalGroup", func(t *testing.T) {
		elements, err := BytesToElements([]byte{0x01, 0x02, 0x03})
		if err != nil {
			t.Fatal(err)
		}
		if len(elements) != 1 || elements[0] != field.Element(0x0102030000000000) {
			t.Errorf("got %v", elements)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		elements, err := BytesToElements(nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(elements) != 0 {
			t.Errorf("expected no elements, got %v", elements)
		}
		if len(ElementsToBytes(nil)) != 0 {
			t.Error("expected no bytes")
		}
	})

	t.Run("RejectsNonCanonical", func(t *testing.T) {
		raw := make([]byte, 8)
		binary.BigEndian.PutUint64(raw, field.Modulus)
		if _, err := BytesToElements(raw); !errors.Is(err, ErrNonCanonical) {
			t.Errorf("expected ErrNonCanonical, got %v", err)
		}
	})
}

func TestWords(t *testing.T) {
	t.Run("KnownVector", func(t *testing.T) {
		raw := []byte{0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x05, 0x39}
		elements := WordsToElements(raw)
		if !field.Equal(elements, []field.Element{42, 1337}) {
			t.Fatalf("got %v, want [42 1337]", elements)
		}
		out, err := ElementsToWords(elements)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(out, raw) {
			t.Errorf("round trip = %x, want %x", out, raw)
		}
	})

	t.Run("PadsFinalWord", func(t *testing.T) {
		elements := WordsToElements([]byte{0, 0, 0, 1, 0xff})
		if !field.Equal(elements, []field.Element{1, 0xff000000}) {
			t.Errorf("got %v", elements)
		}
	})

	t.Run("RejectsWideElement", func(t *testing.T) {
		if _, err := ElementsToWords([]field.Element{1 << 32}); err == nil {
			t.Error("expected error for element above 32 bits")
		}
	})
}

func TestElementCount(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 8: 1, 9: 2, 16: 2, 17: 3}
	for n, want := range cases {
		if got := ElementCount(n); got != want {
			t.Errorf("ElementCount(%d) = %d, want %d", n, got, want)
		}
	}
}

func sampleBundles(t *testing.T, total int) []shamir.Share {
	t.Helper()
	secret, err := field.RandomVector(rand.Reader, 5)
	if err != nil {
		t.Fatal(err)
	}
	shares, err := shamir.GenerateShares(rand.Reader, secret, 2, total)
	if err != nil {
		t.Fatal(err)
	}
	return shares
}

func TestBundles(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		bundles := sampleBundles(t, 3)
		payload, err := EncodeBundles(3, bundles)
		if err != nil {
			t.Fatal(err)
		}

		total, decoded, err := DecodeBundles(payload)
		if err != nil {
			t.Fatal(err)
		}
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		if len(decoded) != 3 {
			t.Fatalf("expected 3 bundles, got %d", len(decoded))
		}
		for i, b := range decoded {
			if b.Index < 1 || b.Index > 3 {
				t.Errorf("bundle %d has index %d", i, b.Index)
			}
			if b.Index != bundles[i].Index || !field.Equal(b.Values, bundles[i].Values) {
				t.Errorf("bundle %d differs after decoding", i)
			}
		}
	})

	t.Run("SingleBundle", func(t *testing.T) {
		bundles := sampleBundles(t, 4)
		payload, err := EncodeBundles(4, bundles[2:3])
		if err != nil {
			t.Fatal(err)
		}
		_, decoded, err := DecodeBundles(payload)
		if err != nil {
			t.Fatal(err)
		}
		if len(decoded) != 1 || decoded[0].Index != 3 {
			t.Errorf("unexpected bundles %v", decoded)
		}
	})

	t.Run("EncodeRejectsOutOfRangeIndex", func(t *testing.T) {
		bundles := sampleBundles(t, 3)
		if _, err := EncodeBundles(2, bundles); err == nil {
			t.Error("expected error for index above total")
		}
	})
}

func TestDecodeBundlesMalformed(t *testing.T) {
	bundles := sampleBundles(t, 3)
	payload, err := EncodeBundles(3, bundles)
	if err != nil {
		t.Fatal(err)
	}

	mutate := func(f func(b []byte) []byte) []byte {
		return f(bytes.Clone(payload))
	}

	cases := map[string][]byte{
		"Empty":        nil,
		"ShortHeader":  payload[:6],
		"Truncated":    payload[:len(payload)-1],
		"Trailing":     append(bytes.Clone(payload), 0),
		"BadMagic":     mutate(func(b []byte) []byte { b[0] = 'X'; return b }),
		"ZeroTotal":    mutate(func(b []byte) []byte { binary.BigEndian.PutUint16(b[4:], 0); return b }),
		"IndexZero":    mutate(func(b []byte) []byte { binary.BigEndian.PutUint16(b[headerSize:], 0); return b }),
		"IndexTooHigh": mutate(func(b []byte) []byte { binary.BigEndian.PutUint16(b[headerSize:], 4); return b }),
		"Duplicate": mutate(func(b []byte) []byte {
			stride := 2 + 5*ElementSize
			binary.BigEndian.PutUint16(b[headerSize+stride:], 1)
			return b
		}),
		"NonCanonical": mutate(func(b []byte) []byte {
			binary.BigEndian.PutUint64(b[headerSize+2:], field.Modulus)
			return b
		}),
		"UnmaskMagic": mutate(func(b []byte) []byte { copy(b, unmaskMagic[:]); return b }),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := DecodeBundles(data); !errors.Is(err, ErrDecoding) {
				t.Errorf("expected ErrDecoding, got %v", err)
			}
		})
	}
}

func TestUnmaskShares(t *testing.T) {
	bundles := sampleBundles(t, 4)
	entries := []UnmaskShare{
		{Owner: 2, Share: bundles[0]},
		{Owner: 4, Share: bundles[0]},
	}

	payload, err := EncodeUnmaskShares(4, entries)
	if err != nil {
		t.Fatal(err)
	}

	total, decoded, err := DecodeUnmaskShares(payload)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(decoded) != 2 {
		t.Fatalf("got total %d, %d entries", total, len(decoded))
	}
	for i, e := range decoded {
		if e.Owner != entries[i].Owner || e.Share.Index != 1 {
			t.Errorf("entry %d = owner %d index %d", i, e.Owner, e.Share.Index)
		}
		if !field.Equal(e.Share.Values, bundles[0].Values) {
			t.Errorf("entry %d values differ", i)
		}
	}

	t.Run("Empty", func(t *testing.T) {
		payload, err := EncodeUnmaskShares(4, nil)
		if err != nil {
			t.Fatal(err)
		}
		_, decoded, err := DecodeUnmaskShares(payload)
		if err != nil {
			t.Fatal(err)
		}
		if len(decoded) != 0 {
			t.Errorf("expected no entries, got %d", len(decoded))
		}
	})

	t.Run("RejectsBadOwner", func(t *testing.T) {
		if _, err := EncodeUnmaskShares(4, []UnmaskShare{{Owner: 5, Share: bundles[0]}}); err == nil {
			t.Error("expected error for owner above total")
		}
	})

	t.Run("RejectsDuplicate", func(t *testing.T) {
		dup, err := EncodeUnmaskShares(4, []UnmaskShare{entries[0], entries[0]})
		if err != nil {
			t.Fatal(err)
		}
		if _, _, err := DecodeUnmaskShares(dup); !errors.Is(err, ErrDecoding) {
			t.Errorf("expected ErrDecoding, got %v", err)
		}
	})

	t.Run("RejectsBundlePayload", func(t *testing.T) {
		other, err := EncodeBundles(4, bundles)
		if err != nil {
			t.Fatal(err)
		}
		if _, _, err := DecodeUnmaskShares(other); !errors.Is(err, ErrDecoding) {
			t.Errorf("expected ErrDecoding, got %v", err)
		}
	})
}
