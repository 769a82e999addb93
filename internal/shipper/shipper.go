// Package shipper implements the buffering core: it accepts one
// formatted record at a time, splits oversized payloads into
// wire-sized chunks, accumulates chunks into a size- and time-bounded
// batch, and flushes the batch to the remote sink when a limit is hit
// or at shutdown. Flushes are provisioned, throttled, and retried once
// on failure; no record is ever silently dropped.
package shipper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phpnexus/cwh/internal/batch"
	"github.com/phpnexus/cwh/internal/metrics"
	"github.com/phpnexus/cwh/internal/provision"
	"github.com/phpnexus/cwh/internal/ratelimit"
	"github.com/phpnexus/cwh/internal/sink"
)

// Config contains configuration for a Shipper. Immutable after New.
type Config struct {
	Group  string
	Stream string

	// BatchSize is the ceiling on entries per submission, at most
	// batch.MaxBatchCount. Zero selects the maximum.
	BatchSize int

	// RateLimit is the self-imposed requests-per-second ceiling on
	// submissions. Zero disables throttling.
	RateLimit int

	// Limits selects the protocol variant's payload ceilings. The zero
	// value selects batch.ModernLimits.
	Limits batch.Limits

	// UseSequenceToken enables the legacy token-ordered submission
	// protocol, including refresh-after-failure.
	UseSequenceToken bool

	// Provisioning of the destination group and stream.
	RetentionDays *int32
	Tags          map[string]string
	CreateGroup   bool
	CreateStream  bool
}

// Shipper is the orchestrating core. Safe for concurrent use: all
// access to the pending batch, the provisioning gate, and the rate
// limiter is serialized behind one mutex.
type Shipper struct {
	mu      sync.Mutex
	cfg     Config
	sink    sink.Sink
	gate    *provision.Gate
	limiter *ratelimit.Limiter
	buf     *batch.Buffer

	// Injectable for tests.
	sleep func(time.Duration)
}

// New creates a Shipper. Configuration errors (batch size above the
// service ceiling, negative rate limit) fail fast, before any remote
// call.
func New(s sink.Sink, cfg Config) (*Shipper, error) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = batch.MaxBatchCount
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > batch.MaxBatchCount {
		return nil, fmt.Errorf("batch size must be between 1 and %d, got %d", batch.MaxBatchCount, cfg.BatchSize)
	}
	if cfg.Limits == (batch.Limits{}) {
		cfg.Limits = batch.ModernLimits
	}

	limiter, err := ratelimit.New(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	return &Shipper{
		cfg:     cfg,
		sink:    s,
		limiter: limiter,
		buf:     batch.NewBuffer(cfg.Limits),
		gate: provision.New(s, provision.Config{
			Group:         cfg.Group,
			Stream:        cfg.Stream,
			RetentionDays: cfg.RetentionDays,
			Tags:          cfg.Tags,
			CreateGroup:   cfg.CreateGroup,
			CreateStream:  cfg.CreateStream,
			CaptureToken:  cfg.UseSequenceToken,
		}),
		sleep: time.Sleep,
	}, nil
}

// Submit accepts one formatted, timestamped record. The payload is
// split into chunks no larger than the protocol's event ceiling; each
// chunk shares the record's timestamp, truncated to milliseconds.
// Chunks that would push the batch past a size or time-span limit
// force a flush of the prior entries first; hitting the entry-count
// ceiling flushes immediately.
func (s *Shipper) Submit(ctx context.Context, payload []byte, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.RecordsSubmitted.Add(1)

	chunks := batch.Split(payload, s.cfg.Limits.EventBytes)
	if len(chunks) > 1 {
		metrics.RecordsSplit.Add(1)
	}

	millis := timestamp.UnixMilli()
	for _, chunk := range chunks {
		if s.buf.WouldOverflow(len(chunk)) || s.buf.WouldExceedSpan(millis) {
			if err := s.flush(ctx); err != nil {
				return err
			}
		}

		s.buf.Add(sink.Entry{Message: chunk, Timestamp: millis})
		metrics.EntriesBuffered.Add(1)

		if s.buf.Len() >= s.cfg.BatchSize {
			if err := s.flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush submits any pending entries immediately. No-op when the batch
// is empty.
func (s *Shipper) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx)
}

// Shutdown flushes the pending batch unconditionally. Idempotent when
// the batch is already empty, so calling it twice performs no
// additional remote calls.
func (s *Shipper) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx)
}

// flush submits the pending batch in full or not at all. On a remote
// failure it pauses one second and retries exactly once; a second
// failure propagates and the batch stays in memory for the next flush
// trigger. Caller must hold s.mu.
func (s *Shipper) flush(ctx context.Context) error {
	if s.buf.Empty() {
		return nil
	}

	token, err := s.gate.Ensure(ctx)
	if err != nil {
		return err
	}

	entries := s.buf.Sorted()

	result, err := s.put(ctx, entries, token)
	if err != nil {
		slog.Warn("batch submission failed, retrying once",
			"group", s.cfg.Group,
			"stream", s.cfg.Stream,
			"entries", len(entries),
			"error", err)
		metrics.FlushRetries.Add(1)

		s.sleep(time.Second)

		if s.cfg.UseSequenceToken {
			token, err = s.gate.RefreshToken(ctx)
			if err != nil {
				metrics.FlushFailures.Add(1)
				return err
			}
		}

		result, err = s.put(ctx, entries, token)
		if err != nil {
			metrics.FlushFailures.Add(1)
			return fmt.Errorf("submit batch of %d entries: %w", len(entries), err)
		}
	}

	if s.cfg.UseSequenceToken {
		s.gate.StoreToken(result.NextSequenceToken)
	}

	metrics.BatchesShipped.Add(1)
	metrics.EntriesShipped.Add(int64(len(entries)))
	metrics.BytesShipped.Add(int64(s.buf.Size()))
	slog.Debug("shipped batch",
		"group", s.cfg.Group,
		"stream", s.cfg.Stream,
		"entries", len(entries),
		"bytes", s.buf.Size())

	s.buf.Clear()
	return nil
}

func (s *Shipper) put(ctx context.Context, entries []sink.Entry, token string) (sink.PutResult, error) {
	s.limiter.Throttle()
	return s.sink.PutBatch(ctx, s.cfg.Group, s.cfg.Stream, entries, token)
}
