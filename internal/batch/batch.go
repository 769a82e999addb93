// Package batch implements the pending-batch bookkeeping for the log
// shipper: size, time-span and count accounting, chunk splitting for
// oversized records, and chronological ordering before submission.
package batch

import (
	"sort"

	"github.com/phpnexus/cwh/internal/sink"
)

// Constraints shared by all protocol variants. See
// https://docs.aws.amazon.com/AmazonCloudWatchLogs/latest/APIReference/API_PutLogEvents.html
const (
	// EventOverheadBytes is the fixed per-entry overhead the service
	// charges on top of the message length.
	EventOverheadBytes = 26

	// MaxBatchCount is the hard ceiling on entries per submission.
	MaxBatchCount = 10000

	// MaxSpanMillis is the maximum allowed span between the earliest
	// and latest entry in a single submission (24 hours).
	MaxSpanMillis = 24 * 60 * 60 * 1000
)

// Limits bounds the payload of a single submission for one protocol
// variant.
type Limits struct {
	// BatchBytes is the ceiling on cumulative batch payload, counting
	// EventOverheadBytes per entry.
	BatchBytes int

	// EventBytes is the ceiling on a single event's message, after
	// overhead. Records longer than this are split into chunks.
	EventBytes int
}

var (
	// ModernLimits applies to current CloudWatch Logs endpoints.
	ModernLimits = Limits{BatchBytes: 1048576, EventBytes: 1048550}

	// LegacyLimits applies to the older protocol variant with the
	// 256 KiB request ceiling.
	LegacyLimits = Limits{BatchBytes: 262144, EventBytes: 262118}
)

// Split cuts a formatted payload into chunks of at most maxEventBytes.
// Each chunk is an independent copy, so callers may reuse the payload
// buffer. An empty payload yields no chunks.
func Split(payload []byte, maxEventBytes int) [][]byte {
	var chunks [][]byte
	for len(payload) > 0 {
		n := len(payload)
		if n > maxEventBytes {
			n = maxEventBytes
		}
		chunk := make([]byte, n)
		copy(chunk, payload[:n])
		chunks = append(chunks, chunk)
		payload = payload[n:]
	}
	return chunks
}

// Buffer accumulates entries pending submission. It is not safe for
// concurrent use; the shipper serializes access behind its own mutex.
type Buffer struct {
	entries  []sink.Entry
	size     int
	earliest int64
	limits   Limits
}

// NewBuffer creates an empty buffer bounded by the given limits.
func NewBuffer(limits Limits) *Buffer {
	return &Buffer{limits: limits}
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int { return len(b.entries) }

// Size returns the cumulative byte size of buffered entries, counting
// EventOverheadBytes per entry.
func (b *Buffer) Size() int { return b.size }

// Empty reports whether the buffer holds no entries.
func (b *Buffer) Empty() bool { return len(b.entries) == 0 }

// Earliest returns the minimum timestamp across buffered entries.
// Undefined when the buffer is empty.
func (b *Buffer) Earliest() int64 { return b.earliest }

// WouldOverflow reports whether appending a message of messageLen bytes
// would push the cumulative size to or past the batch-byte ceiling.
func (b *Buffer) WouldOverflow(messageLen int) bool {
	return b.size+messageLen+EventOverheadBytes >= b.limits.BatchBytes
}

// WouldExceedSpan reports whether an entry at timestamp would stretch
// the batch past the 24-hour span ceiling relative to the earliest
// buffered entry.
func (b *Buffer) WouldExceedSpan(timestamp int64) bool {
	if len(b.entries) == 0 {
		return false
	}
	return timestamp-b.earliest > MaxSpanMillis
}

// Add appends an entry and updates the size and earliest-timestamp
// bookkeeping. Callers check WouldOverflow and WouldExceedSpan first.
func (b *Buffer) Add(e sink.Entry) {
	if len(b.entries) == 0 || e.Timestamp < b.earliest {
		b.earliest = e.Timestamp
	}
	b.entries = append(b.entries, e)
	b.size += len(e.Message) + EventOverheadBytes
}

// Sorted returns the buffered entries ordered ascending by timestamp.
// The sort is stable, so entries sharing a timestamp keep their arrival
// order. The buffer itself is left untouched.
func (b *Buffer) Sorted() []sink.Entry {
	out := make([]sink.Entry, len(b.entries))
	copy(out, b.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Clear empties the buffer and resets all bookkeeping.
func (b *Buffer) Clear() {
	b.entries = b.entries[:0]
	b.size = 0
	b.earliest = 0
}
