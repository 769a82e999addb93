package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"
)

// CloudWatchAPI duck types the AWS SDK CloudWatch Logs client so tests
// can substitute a fake without standing up a real endpoint.
type CloudWatchAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatch adapts the AWS SDK CloudWatch Logs client to the Sink
// interface.
type CloudWatch struct {
	api CloudWatchAPI
}

// NewCloudWatch creates a Sink backed by the given CloudWatch Logs client.
func NewCloudWatch(api CloudWatchAPI) *CloudWatch {
	return &CloudWatch{api: api}
}

// DescribeGroups returns the names of log groups matching namePrefix.
func (c *CloudWatch) DescribeGroups(ctx context.Context, namePrefix string) ([]string, error) {
	var names []string

	input := &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(namePrefix),
	}
	for {
		out, err := c.api.DescribeLogGroups(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe log groups: %w", err)
		}
		for _, g := range out.LogGroups {
			names = append(names, aws.ToString(g.LogGroupName))
		}
		if out.NextToken == nil {
			return names, nil
		}
		input.NextToken = out.NextToken
	}
}

// CreateGroup creates a log group, omitting the Tags field when empty.
func (c *CloudWatch) CreateGroup(ctx context.Context, name string, tags map[string]string) error {
	input := &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(name),
	}
	if len(tags) > 0 {
		input.Tags = tags
	}

	if _, err := c.api.CreateLogGroup(ctx, input); err != nil {
		// Tolerate losing a create race to another writer.
		if isAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create log group %q: %w", name, err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceAlreadyExistsException"
}

// PutRetentionPolicy sets the retention period on a log group.
func (c *CloudWatch) PutRetentionPolicy(ctx context.Context, group string, days int32) error {
	_, err := c.api.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(group),
		RetentionInDays: aws.Int32(days),
	})
	if err != nil {
		return fmt.Errorf("put retention policy on %q: %w", group, err)
	}
	return nil
}

// DescribeStreams returns the streams in group matching namePrefix,
// including each stream's upload sequence token when present.
func (c *CloudWatch) DescribeStreams(ctx context.Context, group, namePrefix string) ([]Stream, error) {
	var streams []Stream

	input := &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName:        aws.String(group),
		LogStreamNamePrefix: aws.String(namePrefix),
	}
	for {
		out, err := c.api.DescribeLogStreams(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe log streams in %q: %w", group, err)
		}
		for _, s := range out.LogStreams {
			streams = append(streams, Stream{
				Name:          aws.ToString(s.LogStreamName),
				SequenceToken: aws.ToString(s.UploadSequenceToken),
			})
		}
		if out.NextToken == nil {
			return streams, nil
		}
		input.NextToken = out.NextToken
	}
}

// CreateStream creates a log stream within an existing group.
func (c *CloudWatch) CreateStream(ctx context.Context, group, stream string) error {
	_, err := c.api.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
	})
	if err != nil {
		if isAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create log stream %q in %q: %w", stream, group, err)
	}
	return nil
}

// PutBatch submits entries via PutLogEvents. The sequence token is only
// set on the request when non-empty; modern CloudWatch Logs ignores it,
// the legacy protocol variant requires it.
func (c *CloudWatch) PutBatch(ctx context.Context, group, stream string, entries []Entry, sequenceToken string) (PutResult, error) {
	events := make([]types.InputLogEvent, 0, len(entries))
	for _, e := range entries {
		events = append(events, types.InputLogEvent{
			Message:   aws.String(string(e.Message)),
			Timestamp: aws.Int64(e.Timestamp),
		})
	}

	input := &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
		LogEvents:     events,
	}
	if sequenceToken != "" {
		input.SequenceToken = aws.String(sequenceToken)
	}

	out, err := c.api.PutLogEvents(ctx, input)
	if err != nil {
		return PutResult{}, fmt.Errorf("put log events to %s/%s: %w", group, stream, err)
	}
	return PutResult{NextSequenceToken: aws.ToString(out.NextSequenceToken)}, nil
}
