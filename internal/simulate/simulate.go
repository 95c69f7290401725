// Package simulate runs a complete secure aggregation round in process. One
// goroutine drives each participant's session while a simulated server
// relays JSON messages between them and an aggregator recovers the inputs of
// participants that drop out.
package simulate

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/f3rmion/secagg/aggregate"
	"github.com/f3rmion/secagg/codec"
	"github.com/f3rmion/secagg/field"
	"github.com/f3rmion/secagg/internal/config"
	"github.com/f3rmion/secagg/metrics"
	"github.com/f3rmion/secagg/session"
	"github.com/f3rmion/secagg/shamir"
)

// Result summarizes a simulated round.
type Result struct {
	SessionID string        `json:"session_id"`
	Clients   int           `json:"clients"`
	Threshold int           `json:"threshold"`
	Dropped   []int         `json:"dropped"`
	Recovered []int         `json:"recovered"`
	SumDigest string        `json:"masked_sum_digest"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger shared by the server and all sessions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithMetrics sets the collector shared by all sessions and the aggregator.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) {
		r.metrics = c
	}
}

// Runner executes simulated rounds.
type Runner struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Collector
}

// New creates a Runner for cfg, which must already be valid.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg: cfg,
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// client is one simulated device.
type client struct {
	index    int
	deviceID string
	session  *session.Session
	weights  []uint32

	shareKeys *session.ShareKeysRequest
	masked    *session.MaskedInputRequest
}

// Run plays one round and checks that every dropped participant's update is
// recovered exactly.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	cfg := r.cfg
	sessionID := uuid.NewString()
	log := r.log.With("session_id", sessionID)

	clients := make([]*client, cfg.Clients)
	for i := range clients {
		clients[i] = &client{
			index:    i + 1,
			deviceID: uuid.NewString(),
			session:  session.New(session.WithLogger(r.log), session.WithMetrics(r.metrics)),
			weights:  weights(i+1, cfg.UpdateSize),
		}
	}
	defer func() {
		for _, c := range clients {
			c.session.Reset()
		}
	}()

	log.Info("starting round", "clients", cfg.Clients, "threshold", cfg.Threshold, "dropouts", cfg.Dropouts)

	// Share keys
	err := each(ctx, clients, func(c *client) error {
		resp := session.SessionResponse{
			SessionID:     sessionID,
			RoundID:       "simulated",
			ClientIndex:   c.index,
			Threshold:     cfg.Threshold,
			TotalClients:  cfg.Clients,
			PrivacyBudget: cfg.PrivacyBudget,
			KeyLength:     cfg.KeyLength,
		}
		var assigned session.SessionResponse
		if err := relay(&resp, &assigned); err != nil {
			return err
		}
		if err := c.session.BeginFromResponse(&assigned); err != nil {
			return err
		}
		shares, err := c.session.GenerateKeyShares()
		if err != nil {
			return err
		}
		c.shareKeys = &session.ShareKeysRequest{}
		return relay(c.session.ShareKeysRequest(c.deviceID, shares), c.shareKeys)
	})
	if err != nil {
		return nil, fmt.Errorf("share keys: %w", err)
	}

	// Route each bundle to its recipient
	inbox, err := route(clients)
	if err != nil {
		return nil, fmt.Errorf("route shares: %w", err)
	}
	err = each(ctx, clients, func(c *client) error {
		for _, owner := range slices.Sorted(maps.Keys(inbox[c.index])) {
			if err := c.session.AcceptPeerShares(owner, inbox[c.index][owner]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("accept shares: %w", err)
	}

	// Masked input
	err = each(ctx, clients, func(c *client) error {
		update := codec.ElementsToBytes(codec.WordsToElements(words(c.weights)))
		masked, err := c.session.MaskModelUpdate(update)
		if err != nil {
			return err
		}
		req := c.session.MaskedInputRequest(c.deviceID, masked, len(c.weights), map[string]float64{"loss": 0.5})
		req.Metadata = map[string]session.Value{
			"client_index": session.IntValue(int64(c.index)),
			"simulated":    session.BoolValue(true),
		}
		c.masked = &session.MaskedInputRequest{}
		return relay(req, c.masked)
	})
	if err != nil {
		return nil, fmt.Errorf("masked input: %w", err)
	}

	agg, err := aggregate.New(cfg.Threshold, cfg.Clients,
		aggregate.WithLogger(log), aggregate.WithMetrics(r.metrics))
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if err := agg.AddMaskedInput(c.index, c.masked.MaskedWeightsData); err != nil {
			return nil, fmt.Errorf("client %d: %w", c.index, err)
		}
	}

	// Unmasking by survivors
	notice := session.UnmaskResponse{
		DroppedClientIndices: cfg.Dropouts,
		UnmaskingRequired:    len(cfg.Dropouts) > 0,
	}
	survivors := slices.DeleteFunc(slices.Clone(clients), func(c *client) bool {
		return slices.Contains(cfg.Dropouts, c.index)
	})
	err = each(ctx, survivors, func(c *client) error {
		var resp session.UnmaskResponse
		if err := relay(&notice, &resp); err != nil {
			return err
		}
		shares, err := c.session.HandleUnmaskResponse(&resp)
		if err != nil {
			return err
		}
		var req session.UnmaskingSharesRequest
		if err := relay(session.UnmaskingSharesRequestFor(sessionID, c.deviceID, shares), &req); err != nil {
			return err
		}
		return agg.AddUnmaskingShares(req.SharesData)
	})
	if err != nil {
		return nil, fmt.Errorf("unmasking: %w", err)
	}

	// Recover dropped participants
	var recovered []int
	for _, d := range cfg.Dropouts {
		c := clients[d-1]
		seed, err := agg.RecoverSeed(d, c.shareKeys.SeedCommitment)
		if err != nil {
			return nil, err
		}
		plain, err := agg.Unmask(d, seed)
		clear(seed)
		if err != nil {
			return nil, err
		}
		if !field.Equal(plain, codec.WordsToElements(words(c.weights))) {
			return nil, fmt.Errorf("client %d: recovered update does not match", d)
		}
		recovered = append(recovered, d)
		log.Info("recovered dropped participant", "client_index", d)
	}

	res := &Result{
		SessionID: sessionID,
		Clients:   cfg.Clients,
		Threshold: cfg.Threshold,
		Dropped:   slices.Clone(cfg.Dropouts),
		Recovered: recovered,
		SumDigest: digest(agg.MaskedSum()),
		Elapsed:   time.Since(start),
	}
	log.Info("round complete", "recovered", len(recovered), "elapsed", res.Elapsed)
	return res, nil
}

// each runs fn for every client concurrently and returns the first error.
func each(ctx context.Context, clients []*client, fn func(*client) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range clients {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(c); err != nil {
				return fmt.Errorf("client %d: %w", c.index, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// route splits every owner's bundles into single-bundle payloads keyed by
// recipient and owner.
func route(clients []*client) (map[int]map[int][]byte, error) {
	inbox := make(map[int]map[int][]byte, len(clients))
	for _, c := range clients {
		total, bundles, err := codec.DecodeBundles(c.shareKeys.SharesData)
		if err != nil {
			return nil, fmt.Errorf("client %d: %w", c.index, err)
		}
		for _, b := range bundles {
			if b.Index == c.index {
				continue
			}
			payload, err := codec.EncodeBundles(total, []shamir.Share{b})
			if err != nil {
				return nil, err
			}
			if inbox[b.Index] == nil {
				inbox[b.Index] = make(map[int][]byte)
			}
			inbox[b.Index][c.index] = payload
		}
	}
	return inbox, nil
}

// relay moves a message through its JSON wire form.
func relay(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %T: %w", in, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %T: %w", out, err)
	}
	return nil
}

// weights returns a deterministic quantized update for a participant.
func weights(index, n int) []uint32 {
	w := make([]uint32, n)
	for i := range w {
		w[i] = uint32(index)*7919 + uint32(i)*31
	}
	return w
}

func words(w []uint32) []byte {
	out := make([]byte, 0, len(w)*codec.WordSize)
	for _, v := range w {
		out = binary.BigEndian.AppendUint32(out, v)
	}
	return out
}

func digest(sum []field.Element) string {
	var acc field.Element
	for i, v := range sum {
		acc = field.Add(acc, field.Mul(v, field.FromInt(i+1)))
	}
	return acc.String()
}
