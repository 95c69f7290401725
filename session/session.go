package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
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

// Session manages one client's state through a secure aggregation round.
// Create instances using [New]. The zero value is not usable.
type Session struct {
	mu      sync.Mutex
	rng     io.Reader
	log     *slog.Logger
	metrics *metrics.Collector

	phase       Phase
	sessionID   string
	clientIndex int
	config      Config

	seed           []field.Element
	commitment     commit.Commitment
	pendingBundles []shamir.Share
	peerShares     map[int]shamir.Share // owner index -> share addressed to us
	maskedBuffer   []byte
}

// Option configures a Session.
type Option func(*Session)

// WithRand sets the randomness source for seeds and sharing polynomials.
// Defaults to crypto/rand.Reader.
func WithRand(r io.Reader) Option {
	return func(s *Session) {
		s.rng = r
	}
}

// WithLogger sets the logger. Secret material is never logged.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) {
		s.metrics = c
	}
}

// New creates a session in the Idle phase.
func New(opts ...Option) *Session {
	s := &Session{
		rng: rand.Reader,
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SessionID returns the server-assigned session identifier, or "" when idle.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ClientIndex returns this client's participant index, or 0 when idle.
func (s *Session) ClientIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientIndex
}

// Config returns the active round configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Commitment returns the public commitment to this session's seed, or nil
// when idle.
func (s *Session) Commitment() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Idle {
		return nil
	}
	return s.commitment.Bytes()
}

// MaskedUpdate returns a copy of the last masked update, for retransmission.
func (s *Session) MaskedUpdate() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.maskedBuffer)
}

// HeldShareOwners returns the participant indices whose seed shares this
// session currently holds, in ascending order.
func (s *Session) HeldShareOwners() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.peerShares))
}

// Begin starts a session for clientIndex with the given configuration.
//
// It stores the session identity, draws fresh seed material and commits to
// it. Unset optional configuration fields take their defaults.
func (s *Session) Begin(sessionID string, clientIndex int, cfg Config) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	defer func() { s.record(metrics.OpBegin, start, err) }()

	if err := s.require("Begin", Idle); err != nil {
		return err
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if clientIndex < 1 || clientIndex > cfg.TotalClients {
		return fmt.Errorf("%w: client index must be between 1 and %d, got %d", ErrInvalidConfig, cfg.TotalClients, clientIndex)
	}
	if sessionID == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidConfig)
	}

	seed, err := field.RandomVector(s.rng, SeedLength(cfg.KeyLength))
	if err != nil {
		return fmt.Errorf("failed to draw seed material: %w", err)
	}

	s.wipe()
	s.sessionID = sessionID
	s.clientIndex = clientIndex
	s.config = cfg
	s.seed = seed
	s.commitment = commit.Seed(codec.ElementsToBytes(seed))
	s.peerShares = make(map[int]shamir.Share)
	s.transition(ShareKeys)
	return nil
}

// BeginFromResponse starts a session from the server's session response.
func (s *Session) BeginFromResponse(resp *SessionResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: nil session response", ErrInvalidConfig)
	}
	return s.Begin(resp.SessionID, resp.ClientIndex, resp.Config())
}

// GenerateKeyShares Shamir-splits the seed into one bundle per participant
// and returns the encoded bundles for relay.
func (s *Session) GenerateKeyShares() (payload []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	defer func() { s.record(metrics.OpShareKeys, start, err) }()

	if err := s.require("GenerateKeyShares", ShareKeys); err != nil {
		return nil, err
	}

	bundles, err := shamir.GenerateShares(s.rng, s.seed, s.config.Threshold, s.config.TotalClients)
	if err != nil {
		return nil, fmt.Errorf("failed to share seed: %w", err)
	}
	payload, err = codec.EncodeBundles(s.config.TotalClients, bundles)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundles: %w", err)
	}

	s.pendingBundles = bundles
	s.metrics.RecordPayload(metrics.OpShareKeys, len(payload))
	s.transition(MaskedInput)
	return payload, nil
}

// AcceptPeerShares stores the bundle that participant owner addressed to
// this client. The payload must hold exactly one bundle, indexed with this
// client's index. It does not change the phase.
func (s *Session) AcceptPeerShares(owner int, payload []byte) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	defer func() { s.record(metrics.OpAcceptShares, start, err) }()

	if err := s.require("AcceptPeerShares", MaskedInput, Unmasking); err != nil {
		return err
	}
	if owner < 1 || owner > s.config.TotalClients || owner == s.clientIndex {
		return fmt.Errorf("%w: invalid owner %d", ErrUnexpectedShares, owner)
	}
	if _, ok := s.peerShares[owner]; ok {
		return fmt.Errorf("%w: shares from %d already accepted", ErrUnexpectedShares, owner)
	}

	total, bundles, err := codec.DecodeBundles(payload)
	if err != nil {
		return err
	}
	if total != s.config.TotalClients {
		return fmt.Errorf("%w: payload for %d participants, session has %d", ErrUnexpectedShares, total, s.config.TotalClients)
	}
	if len(bundles) != 1 || bundles[0].Index != s.clientIndex {
		return fmt.Errorf("%w: payload must hold exactly the bundle for index %d", ErrUnexpectedShares, s.clientIndex)
	}
	if len(bundles[0].Values) != len(s.seed) {
		return fmt.Errorf("%w: bundle width %d, expected %d", ErrUnexpectedShares, len(bundles[0].Values), len(s.seed))
	}

	s.peerShares[owner] = bundles[0]
	s.log.Debug("accepted peer shares", "session_id", s.sessionID, "client_index", s.clientIndex, "owner", owner)
	return nil
}

// MaskModelUpdate masks weights with the pseudorandom mask derived from this
// client's seed and index. The result has the same length as weights; empty
// input yields empty output.
func (s *Session) MaskModelUpdate(weights []byte) (masked []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	defer func() { s.record(metrics.OpMask, start, err) }()

	if err := s.require("MaskModelUpdate", MaskedInput); err != nil {
		return nil, err
	}

	values, err := codec.BytesToElements(weights)
	if err != nil {
		return nil, fmt.Errorf("failed to read model update: %w", err)
	}
	m, err := mask.Derive(codec.ElementsToBytes(s.seed), s.clientIndex, len(values))
	if err != nil {
		return nil, err
	}
	sum, err := mask.Apply(values, m)
	if err != nil {
		return nil, err
	}

	masked = codec.ElementsToBytes(sum)[:len(weights)]
	s.maskedBuffer = slices.Clone(masked)
	s.metrics.RecordPayload(metrics.OpMask, len(masked))
	s.transition(Unmasking)
	return masked, nil
}

// ProvideUnmaskingShares returns the shares this client holds of the seeds
// of the dropped participants, and nothing about any other participant.
// All held peer shares are discarded afterwards.
func (s *Session) ProvideUnmaskingShares(dropped []int) (payload []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	defer func() { s.record(metrics.OpUnmask, start, err) }()

	if err := s.require("ProvideUnmaskingShares", Unmasking); err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(dropped))
	for _, idx := range dropped {
		switch {
		case idx < 1 || idx > s.config.TotalClients:
			return nil, fmt.Errorf("%w: index %d outside [1, %d]", ErrInvalidDropout, idx, s.config.TotalClients)
		case idx == s.clientIndex:
			return nil, fmt.Errorf("%w: this client (%d) reported as dropped", ErrInvalidDropout, idx)
		case seen[idx]:
			return nil, fmt.Errorf("%w: index %d listed twice", ErrInvalidDropout, idx)
		}
		seen[idx] = true
	}

	entries := make([]codec.UnmaskShare, 0, len(dropped))
	for _, idx := range dropped {
		share, ok := s.peerShares[idx]
		if !ok {
			s.log.Warn("no share held for dropped client", "session_id", s.sessionID, "client_index", s.clientIndex, "dropped", idx)
			continue
		}
		entries = append(entries, codec.UnmaskShare{Owner: idx, Share: share.Clone()})
	}

	payload, err = codec.EncodeUnmaskShares(s.config.TotalClients, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode unmasking shares: %w", err)
	}

	for owner, share := range s.peerShares {
		clear(share.Values)
		delete(s.peerShares, owner)
	}
	s.metrics.RecordPayload(metrics.OpUnmask, len(payload))
	s.transition(Completed)
	return payload, nil
}

// HandleUnmaskResponse answers the server's unmask notification. When no
// unmasking is required it still completes the session, returning an empty
// share payload.
func (s *Session) HandleUnmaskResponse(resp *UnmaskResponse) ([]byte, error) {
	if resp == nil || !resp.UnmaskingRequired {
		return s.ProvideUnmaskingShares(nil)
	}
	return s.ProvideUnmaskingShares(resp.DroppedClientIndices)
}

// Reset discards the session identity, seed material and all buffers and
// returns to Idle. It is legal in every phase and abandons any round in
// progress.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	if s.phase != Idle {
		s.log.Debug("resetting session", "session_id", s.sessionID, "client_index", s.clientIndex, "phase", s.phase)
	}
	s.wipe()
	s.transition(Idle)
	s.record(metrics.OpReset, start, nil)
}

// require fails with a PhaseError unless the session is in one of want.
// Callers must hold s.mu.
func (s *Session) require(op string, want ...Phase) error {
	if slices.Contains(want, s.phase) {
		return nil
	}
	return &PhaseError{Op: op, Want: want, Got: s.phase}
}

// transition moves to next. Callers must hold s.mu.
func (s *Session) transition(next Phase) {
	if s.phase == next {
		return
	}
	s.log.Debug("phase transition", "session_id", s.sessionID, "client_index", s.clientIndex, "from", s.phase, "to", next)
	s.metrics.RecordTransition(s.phase.String(), next.String())
	s.phase = next
}

// wipe zeroes and drops all secret material and identity. Callers must
// hold s.mu.
func (s *Session) wipe() {
	clear(s.seed)
	for _, b := range s.pendingBundles {
		clear(b.Values)
	}
	for _, share := range s.peerShares {
		clear(share.Values)
	}
	s.seed = nil
	s.pendingBundles = nil
	s.peerShares = nil
	s.maskedBuffer = nil
	s.commitment = commit.Commitment{}
	s.sessionID = ""
	s.clientIndex = 0
	s.config = Config{}
}

// record reports an operation outcome to the metrics collector.
func (s *Session) record(op string, start time.Time, err error) {
	s.metrics.RecordOperation(op, start, err, failureReason(err))
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrInvalidDropout):
		return "invalid_dropout"
	case errors.Is(err, ErrUnexpectedShares):
		return "unexpected_shares"
	case errors.Is(err, codec.ErrDecoding), errors.Is(err, codec.ErrNonCanonical):
		return "decoding"
	default:
		return "internal"
	}
}
