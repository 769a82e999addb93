// Package provision implements the one-time ensure-exists flow for the
// destination log group and stream. The gate runs at most once per
// instance; the first flush pays for the existence checks and every
// later flush skips them.
package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phpnexus/cwh/internal/sink"
)

// Config controls which provisioning steps run.
type Config struct {
	Group  string
	Stream string

	// RetentionDays applies a retention policy to a newly created
	// group. Nil means indefinite retention.
	RetentionDays *int32

	// Tags are attached to a newly created group. Omitted from the
	// creation call when empty.
	Tags map[string]string

	// CreateGroup and CreateStream gate the respective check-then-create
	// steps. When both are false the gate performs no remote calls.
	CreateGroup  bool
	CreateStream bool

	// CaptureToken records the stream's sequence token during the
	// existence check (legacy protocol variant).
	CaptureToken bool
}

// Gate is the idempotent provisioning state for one shipper instance.
// It is not safe for concurrent use; the shipper serializes access
// behind its own mutex.
type Gate struct {
	sink        sink.Sink
	cfg         Config
	initialized bool
	token       string
}

// New creates a gate in the uninitialized state.
func New(s sink.Sink, cfg Config) *Gate {
	return &Gate{sink: s, cfg: cfg}
}

// Initialized reports whether the ensure pass has completed.
func (g *Gate) Initialized() bool { return g.initialized }

// Token returns the last-known sequence token for the stream.
func (g *Gate) Token() string { return g.token }

// StoreToken records the continuation token from a successful
// submission. Empty tokens are ignored.
func (g *Gate) StoreToken(token string) {
	if token != "" {
		g.token = token
	}
}

// Ensure makes the destination group and stream exist, according to the
// configured flags, and returns the sequence token for the first
// submission. On success the gate marks itself initialized and later
// calls return immediately. An error leaves the gate uninitialized so
// the next flush re-attempts provisioning.
func (g *Gate) Ensure(ctx context.Context) (string, error) {
	if g.initialized {
		return g.token, nil
	}

	if g.cfg.CreateGroup {
		if err := g.ensureGroup(ctx); err != nil {
			return "", err
		}
	}
	if g.cfg.CreateStream {
		if err := g.ensureStream(ctx); err != nil {
			return "", err
		}
	}

	g.initialized = true
	return g.token, nil
}

// RefreshToken re-reads the stream's sequence token after a rejected
// submission (legacy protocol variant).
func (g *Gate) RefreshToken(ctx context.Context) (string, error) {
	streams, err := g.sink.DescribeStreams(ctx, g.cfg.Group, g.cfg.Stream)
	if err != nil {
		return "", fmt.Errorf("refresh sequence token for %s/%s: %w", g.cfg.Group, g.cfg.Stream, err)
	}
	for _, s := range streams {
		if s.Name == g.cfg.Stream {
			g.token = s.SequenceToken
			return g.token, nil
		}
	}
	return "", fmt.Errorf("log stream %q not found in group %q", g.cfg.Stream, g.cfg.Group)
}

func (g *Gate) ensureGroup(ctx context.Context) error {
	groups, err := g.sink.DescribeGroups(ctx, g.cfg.Group)
	if err != nil {
		return err
	}

	// The describe is prefix-based; only an exact name match counts.
	for _, name := range groups {
		if name == g.cfg.Group {
			return nil
		}
	}

	slog.Info("creating log group", "group", g.cfg.Group)
	if err := g.sink.CreateGroup(ctx, g.cfg.Group, g.cfg.Tags); err != nil {
		return err
	}

	if g.cfg.RetentionDays != nil {
		if err := g.sink.PutRetentionPolicy(ctx, g.cfg.Group, *g.cfg.RetentionDays); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gate) ensureStream(ctx context.Context) error {
	streams, err := g.sink.DescribeStreams(ctx, g.cfg.Group, g.cfg.Stream)
	if err != nil {
		return err
	}

	for _, s := range streams {
		if s.Name == g.cfg.Stream {
			if g.cfg.CaptureToken {
				g.token = s.SequenceToken
			}
			return nil
		}
	}

	slog.Info("creating log stream", "group", g.cfg.Group, "stream", g.cfg.Stream)
	return g.sink.CreateStream(ctx, g.cfg.Group, g.cfg.Stream)
}
