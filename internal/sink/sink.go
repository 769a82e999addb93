// Package sink defines the capability surface of the remote log-stream
// service and provides the CloudWatch Logs binding. The shipper core
// depends only on the Sink interface so tests can substitute a fake.
package sink

import (
	"context"
)

// Entry is a single log event pending submission. Immutable once created.
type Entry struct {
	Message   []byte
	Timestamp int64 // milliseconds since the Unix epoch
}

// Stream describes an existing log stream in the destination group.
// SequenceToken is only populated by services that require token-ordered
// submission (the legacy protocol variant).
type Stream struct {
	Name          string
	SequenceToken string
}

// PutResult is the response to a batch submission.
type PutResult struct {
	NextSequenceToken string
}

// Sink is the remote log-stream service capability. Implementations must
// be safe for reuse across sequential calls; the shipper serializes all
// access to a given sink instance.
type Sink interface {
	// DescribeGroups returns the names of log groups whose name starts
	// with namePrefix.
	DescribeGroups(ctx context.Context, namePrefix string) ([]string, error)

	// CreateGroup creates a log group. Implementations omit the tag set
	// from the creation call entirely when tags is empty.
	CreateGroup(ctx context.Context, name string, tags map[string]string) error

	// PutRetentionPolicy sets the retention period, in days, on a group.
	PutRetentionPolicy(ctx context.Context, group string, days int32) error

	// DescribeStreams returns the streams in group whose name starts
	// with namePrefix.
	DescribeStreams(ctx context.Context, group, namePrefix string) ([]Stream, error)

	// CreateStream creates a log stream within an existing group.
	CreateStream(ctx context.Context, group, stream string) error

	// PutBatch submits entries to the stream. sequenceToken is passed
	// through when non-empty (legacy protocol variant) and ignored
	// otherwise.
	PutBatch(ctx context.Context, group, stream string, entries []Entry, sequenceToken string) (PutResult, error)
}
