package session

import (
	"fmt"
	"math"

	"github.com/f3rmion/secagg/field"
)

const (
	// DefaultPrivacyBudget is used when a configuration leaves it unset.
	DefaultPrivacyBudget = 1.0
	// DefaultKeyLength is the seed entropy in bits used when unset.
	DefaultKeyLength = 256
	// MaxClients is the largest participant count the wire format carries.
	MaxClients = math.MaxUint16
)

// Config holds the round parameters assigned by the server.
type Config struct {
	Threshold     int     `json:"threshold"`
	TotalClients  int     `json:"total_clients"`
	PrivacyBudget float64 `json:"privacy_budget"`
	KeyLength     int     `json:"key_length"`
}

// NewConfig returns a configuration with default privacy budget and key
// length.
func NewConfig(threshold, totalClients int) Config {
	return Config{
		Threshold:     threshold,
		TotalClients:  totalClients,
		PrivacyBudget: DefaultPrivacyBudget,
		KeyLength:     DefaultKeyLength,
	}
}

// withDefaults fills unset optional fields.
func (c Config) withDefaults() Config {
	if c.PrivacyBudget == 0 {
		c.PrivacyBudget = DefaultPrivacyBudget
	}
	if c.KeyLength == 0 {
		c.KeyLength = DefaultKeyLength
	}
	return c
}

// Validate checks 1 <= Threshold <= TotalClients and the optional fields.
func (c Config) Validate() error {
	if c.Threshold < 1 {
		return fmt.Errorf("%w: threshold must be at least 1, got %d", ErrInvalidConfig, c.Threshold)
	}
	if c.TotalClients < c.Threshold {
		return fmt.Errorf("%w: total clients (%d) must be >= threshold (%d)", ErrInvalidConfig, c.TotalClients, c.Threshold)
	}
	if c.TotalClients > MaxClients {
		return fmt.Errorf("%w: total clients cannot exceed %d, got %d", ErrInvalidConfig, MaxClients, c.TotalClients)
	}
	if !(c.PrivacyBudget > 0) || math.IsInf(c.PrivacyBudget, 0) {
		return fmt.Errorf("%w: privacy budget must be positive and finite, got %v", ErrInvalidConfig, c.PrivacyBudget)
	}
	if c.KeyLength <= 0 || c.KeyLength%8 != 0 {
		return fmt.Errorf("%w: key length must be a positive multiple of 8, got %d", ErrInvalidConfig, c.KeyLength)
	}
	if SeedLength(c.KeyLength) > math.MaxUint16 {
		return fmt.Errorf("%w: key length too large: %d", ErrInvalidConfig, c.KeyLength)
	}
	return nil
}

// SeedLength is the number of field elements that carry keyLength bits of
// seed entropy.
func SeedLength(keyLength int) int {
	return (keyLength + field.Bits - 1) / field.Bits
}
