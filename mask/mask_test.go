package mask

import (
	"bytes"
	"testing"

	"github.com/f3rmion/secagg/field"
)

func TestDerive(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 40)

	t.Run("Deterministic", func(t *testing.T) {
		a, err := Derive(seed, 1, 32)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Derive(seed, 1, 32)
		if err != nil {
			t.Fatal(err)
		}
		if !field.Equal(a, b) {
			t.Error("same seed and index produced different masks")
		}
	})

	t.Run("PrefixStable", func(t *testing.T) {
		short, err := Derive(seed, 2, 4)
		if err != nil {
			t.Fatal(err)
		}
		long, err := Derive(seed, 2, 16)
		if err != nil {
			t.Fatal(err)
		}
		if !field.Equal(short, long[:4]) {
			t.Error("mask should be a prefix-stable stream")
		}
	})

	t.Run("IndexBound", func(t *testing.T) {
		a, _ := Derive(seed, 1, 8)
		b, _ := Derive(seed, 2, 8)
		if field.Equal(a, b) {
			t.Error("different indices produced the same mask")
		}
	})

	t.Run("SeedBound", func(t *testing.T) {
		other := bytes.Repeat([]byte{0x43}, 40)
		a, _ := Derive(seed, 1, 8)
		b, _ := Derive(other, 1, 8)
		if field.Equal(a, b) {
			t.Error("different seeds produced the same mask")
		}
	})

	t.Run("Canonical", func(t *testing.T) {
		m, err := Derive(seed, 3, 256)
		if err != nil {
			t.Fatal(err)
		}
		for i, e := range m {
			if !field.IsCanonical(e.Uint64()) {
				t.Fatalf("element %d not canonical: %d", i, e)
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		m, err := Derive(seed, 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(m) != 0 {
			t.Errorf("expected empty mask, got %d elements", len(m))
		}
	})

	t.Run("RejectsBadInput", func(t *testing.T) {
		if _, err := Derive(nil, 1, 4); err == nil {
			t.Error("expected error for empty seed")
		}
		if _, err := Derive(seed, 0, 4); err == nil {
			t.Error("expected error for index 0")
		}
	})
}

func TestApplyRemove(t *testing.T) {
	values := []field.Element{0, 1, field.Element(field.Modulus - 1), 12345}
	m, err := Derive([]byte("seed material"), 4, len(values))
	if err != nil {
		t.Fatal(err)
	}

	masked, err := Apply(values, m)
	if err != nil {
		t.Fatal(err)
	}
	if field.Equal(masked, values) {
		t.Error("masking left values unchanged")
	}

	restored, err := Remove(masked, m)
	if err != nil {
		t.Fatal(err)
	}
	if !field.Equal(restored, values) {
		t.Errorf("restored %v, want %v", restored, values)
	}

	if _, err := Apply(values, m[:2]); err == nil {
		t.Error("expected length mismatch error")
	}
	if _, err := Remove(values, m[:2]); err == nil {
		t.Error("expected length mismatch error")
	}
}
