package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/f3rmion/secagg/codec"
	"github.com/f3rmion/secagg/commit"
	"github.com/f3rmion/secagg/field"
	"github.com/f3rmion/secagg/mask"
	"github.com/f3rmion/secagg/metrics"
	"github.com/f3rmion/secagg/shamir"
)

var (
	// ErrInsufficientShares is returned when fewer than threshold shares of a
	// seed are available.
	ErrInsufficientShares = errors.New("aggregate: insufficient shares")

	// ErrCommitmentMismatch is returned when a reconstructed seed does not
	// match the owner's published commitment.
	ErrCommitmentMismatch = errors.New("aggregate: seed does not match commitment")

	// ErrUnknownInput is returned when no masked input is stored for a
	// participant.
	ErrUnknownInput = errors.New("aggregate: no masked input for participant")
)

// Collect decodes unmasking share payloads and groups the shares by the
// participant whose seed they belong to. A holder sending the same share
// twice is counted once.
func Collect(payloads ...[]byte) (map[int][]shamir.Share, error) {
	out := make(map[int][]shamir.Share)
	for i, p := range payloads {
		_, entries, err := codec.DecodeUnmaskShares(p)
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		for _, e := range entries {
			if slices.ContainsFunc(out[e.Owner], func(s shamir.Share) bool { return s.Index == e.Share.Index }) {
				continue
			}
			out[e.Owner] = append(out[e.Owner], e.Share)
		}
	}
	return out, nil
}

// RecoverSeed reconstructs a seed from shares and verifies it against the
// encoded commitment. The seed is returned in its byte form, as fed to
// [mask.Derive].
func RecoverSeed(shares []shamir.Share, threshold int, commitment []byte) ([]byte, error) {
	c, err := commit.Parse(commitment)
	if err != nil {
		return nil, err
	}
	secret, err := shamir.Reconstruct(shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct seed: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, len(shares), threshold)
	}

	seed := codec.ElementsToBytes(secret)
	clear(secret)
	if !c.Verify(seed) {
		return nil, ErrCommitmentMismatch
	}
	return seed, nil
}

// Sum decodes masked updates and adds them element-wise.
func Sum(payloads ...[]byte) ([]field.Element, error) {
	var sum []field.Element
	for i, p := range payloads {
		values, err := codec.BytesToElements(p)
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		if sum == nil {
			sum = values
			continue
		}
		if sum, err = mask.Apply(sum, values); err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
	}
	if sum == nil {
		sum = []field.Element{}
	}
	return sum, nil
}

// RemoveMask subtracts the mask of the participant at clientIndex, derived
// from its seed, from vec.
func RemoveMask(vec []field.Element, seed []byte, clientIndex int) ([]field.Element, error) {
	m, err := mask.Derive(seed, clientIndex, len(vec))
	if err != nil {
		return nil, err
	}
	return mask.Remove(vec, m)
}

// Aggregator accumulates the masked inputs and unmasking shares of one
// round.
type Aggregator struct {
	mu        sync.Mutex
	threshold int
	total     int
	log       *slog.Logger
	metrics   *metrics.Collector

	inputs map[int][]field.Element
	shares map[int][]shamir.Share
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		a.log = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *Aggregator) {
		a.metrics = c
	}
}

// New creates an Aggregator for a round of total participants with the
// given reconstruction threshold.
func New(threshold, total int, opts ...Option) (*Aggregator, error) {
	if threshold < 1 || total < threshold {
		return nil, fmt.Errorf("aggregate: invalid threshold %d for %d participants", threshold, total)
	}
	a := &Aggregator{
		threshold: threshold,
		total:     total,
		log:       slog.New(slog.DiscardHandler),
		inputs:    make(map[int][]field.Element),
		shares:    make(map[int][]shamir.Share),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AddMaskedInput stores the masked update submitted by clientIndex. All
// inputs of a round must have the same length.
func (a *Aggregator) AddMaskedInput(clientIndex int, payload []byte) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := time.Now()
	defer func() { a.metrics.RecordOperation(metrics.OpAggregateInput, start, err, reason(err)) }()

	if clientIndex < 1 || clientIndex > a.total {
		return fmt.Errorf("aggregate: client index %d outside [1, %d]", clientIndex, a.total)
	}
	if _, ok := a.inputs[clientIndex]; ok {
		return fmt.Errorf("aggregate: duplicate input from %d", clientIndex)
	}
	values, err := codec.BytesToElements(payload)
	if err != nil {
		return err
	}
	for _, other := range a.inputs {
		if len(other) != len(values) {
			return fmt.Errorf("aggregate: input length %d, round uses %d", len(values), len(other))
		}
		break
	}

	a.inputs[clientIndex] = values
	a.metrics.RecordPayload(metrics.OpAggregateInput, len(payload))
	a.log.Debug("stored masked input", "client_index", clientIndex, "elements", len(values))
	return nil
}

// AddUnmaskingShares stores the shares carried by one unmasking payload.
func (a *Aggregator) AddUnmaskingShares(payload []byte) error {
	total, _, err := codec.DecodeUnmaskShares(payload)
	if err != nil {
		return err
	}
	if total != a.total {
		return fmt.Errorf("%w: payload for %d participants, round has %d", codec.ErrDecoding, total, a.total)
	}
	grouped, err := Collect(payload)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for owner, shares := range grouped {
		for _, s := range shares {
			if slices.ContainsFunc(a.shares[owner], func(h shamir.Share) bool { return h.Index == s.Index }) {
				continue
			}
			a.shares[owner] = append(a.shares[owner], s)
		}
	}
	return nil
}

// Owners returns the participants for which unmasking shares are held, in
// ascending order.
func (a *Aggregator) Owners() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Sorted(maps.Keys(a.shares))
}

// RecoverSeed reconstructs the seed of owner from the stored shares and
// checks it against commitment.
func (a *Aggregator) RecoverSeed(owner int, commitment []byte) (seed []byte, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := time.Now()
	defer func() { a.metrics.RecordOperation(metrics.OpRecoverSeed, start, err, reason(err)) }()

	seed, err = RecoverSeed(a.shares[owner], a.threshold, commitment)
	if err != nil {
		a.log.Warn("seed recovery failed", "owner", owner, "shares", len(a.shares[owner]), "error", err)
		return nil, fmt.Errorf("participant %d: %w", owner, err)
	}
	a.log.Debug("recovered seed", "owner", owner, "shares", len(a.shares[owner]))
	return seed, nil
}

// Unmask strips the mask of clientIndex from its stored input.
func (a *Aggregator) Unmask(clientIndex int, seed []byte) ([]field.Element, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	values, ok := a.inputs[clientIndex]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownInput, clientIndex)
	}
	return RemoveMask(values, seed, clientIndex)
}

// MaskedSum returns the element-wise sum of all stored inputs.
func (a *Aggregator) MaskedSum() []field.Element {
	a.mu.Lock()
	defer a.mu.Unlock()

	var sum []field.Element
	for _, idx := range slices.Sorted(maps.Keys(a.inputs)) {
		values := a.inputs[idx]
		if sum == nil {
			sum = slices.Clone(values)
			continue
		}
		for i := range sum {
			sum[i] = field.Add(sum[i], values[i])
		}
	}
	if sum == nil {
		sum = []field.Element{}
	}
	return sum
}

func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, ErrCommitmentMismatch):
		return "commitment_mismatch"
	case errors.Is(err, commit.ErrInvalidCommitment):
		return "invalid_commitment"
	case errors.Is(err, codec.ErrDecoding), errors.Is(err, codec.ErrNonCanonical):
		return "decoding"
	default:
		return "internal"
	}
}
