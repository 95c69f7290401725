// Package mask expands a participant's seed into the pseudorandom field
// vector added to its model update.
//
// The mask key is derived with HKDF-SHA256 from the seed bytes, bound to the
// participant index. The key drives a ChaCha20 keystream that is sampled into
// uniform field elements, so anyone holding the seed and the index (the
// participant itself, or an aggregator that reconstructed the seed) derives
// the identical mask.
package mask

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/f3rmion/secagg/field"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

const info = "secagg-mask-v1"

// Derive returns the n-element mask for the participant at clientIndex.
func Derive(seed []byte, clientIndex, n int) ([]field.Element, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("mask: empty seed")
	}
	if clientIndex < 1 {
		return nil, fmt.Errorf("mask: invalid client index %d", clientIndex)
	}
	if n == 0 {
		return []field.Element{}, nil
	}

	label := make([]byte, 0, len(info)+4)
	label = append(label, info...)
	label = binary.BigEndian.AppendUint32(label, uint32(clientIndex))

	key := make([]byte, chacha20.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, label), key); err != nil {
		return nil, fmt.Errorf("mask: key derivation failed: %w", err)
	}

	nonce := make([]byte, chacha20.NonceSize)
	cipher, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, fmt.Errorf("mask: cipher creation failed: %w", err)
	}
	clear(key)

	return field.RandomVector(&keystream{cipher: cipher}, n)
}

// Apply returns values + mask element-wise.
func Apply(values, mask []field.Element) ([]field.Element, error) {
	if len(values) != len(mask) {
		return nil, fmt.Errorf("mask: length mismatch %d vs %d", len(values), len(mask))
	}
	out := make([]field.Element, len(values))
	for i := range values {
		out[i] = field.Add(values[i], mask[i])
	}
	return out, nil
}

// Remove returns values - mask element-wise.
func Remove(values, mask []field.Element) ([]field.Element, error) {
	if len(values) != len(mask) {
		return nil, fmt.Errorf("mask: length mismatch %d vs %d", len(values), len(mask))
	}
	out := make([]field.Element, len(values))
	for i := range values {
		out[i] = field.Sub(values[i], mask[i])
	}
	return out, nil
}

// keystream reads raw ChaCha20 output.
type keystream struct {
	cipher *chacha20.Cipher
}

func (k *keystream) Read(p []byte) (int, error) {
	clear(p)
	k.cipher.XORKeyStream(p, p)
	return len(p), nil
}
