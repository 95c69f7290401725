package commit

import (
	"crypto/rand"
	"errors"
	"testing"
)

func TestCommitment(t *testing.T) {
	seed := make([]byte, 40)
	if _, err := rand.Read(seed); err != nil {
		t.Fatal(err)
	}

	c := Seed(seed)

	t.Run("Deterministic", func(t *testing.T) {
		if Seed(seed) != c {
			t.Error("same seed produced different commitments")
		}
	})

	t.Run("Verify", func(t *testing.T) {
		if !c.Verify(seed) {
			t.Error("commitment should verify against its seed")
		}
		other := append([]byte(nil), seed...)
		other[0] ^= 1
		if c.Verify(other) {
			t.Error("commitment should not verify against a different seed")
		}
	})

	t.Run("ParseRoundtrip", func(t *testing.T) {
		parsed, err := Parse(c.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		if parsed != c {
			t.Error("parsed commitment differs")
		}
		if parsed.IsZero() {
			t.Error("real commitment reported as zero")
		}
	})

	t.Run("ParseRejectsWrongLength", func(t *testing.T) {
		if _, err := Parse(c.Bytes()[:31]); !errors.Is(err, ErrInvalidCommitment) {
			t.Errorf("expected ErrInvalidCommitment, got %v", err)
		}
	})

	t.Run("BytesIsCopy", func(t *testing.T) {
		b := c.Bytes()
		b[0] ^= 0xff
		if !c.Verify(seed) {
			t.Error("mutating Bytes() output changed the commitment")
		}
	})
}
