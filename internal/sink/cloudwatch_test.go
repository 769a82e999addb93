package sink

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// fakeAPI records the last input of each operation and serves scripted
// outputs.
type fakeAPI struct {
	describeGroupsIn   *cloudwatchlogs.DescribeLogGroupsInput
	describeGroupsOut  []*cloudwatchlogs.DescribeLogGroupsOutput
	createGroupIn      *cloudwatchlogs.CreateLogGroupInput
	createGroupErr     error
	retentionIn        *cloudwatchlogs.PutRetentionPolicyInput
	describeStreamsIn  *cloudwatchlogs.DescribeLogStreamsInput
	describeStreamsOut []*cloudwatchlogs.DescribeLogStreamsOutput
	createStreamIn     *cloudwatchlogs.CreateLogStreamInput
	createStreamErr    error
	putIn              *cloudwatchlogs.PutLogEventsInput
	putOut             *cloudwatchlogs.PutLogEventsOutput
}

func (f *fakeAPI) DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	f.describeGroupsIn = params
	out := f.describeGroupsOut[0]
	f.describeGroupsOut = f.describeGroupsOut[1:]
	return out, nil
}

func (f *fakeAPI) CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	f.createGroupIn = params
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.createGroupErr
}

func (f *fakeAPI) PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	f.retentionIn = params
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}

func (f *fakeAPI) DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	f.describeStreamsIn = params
	out := f.describeStreamsOut[0]
	f.describeStreamsOut = f.describeStreamsOut[1:]
	return out, nil
}

func (f *fakeAPI) CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.createStreamIn = params
	return &cloudwatchlogs.CreateLogStreamOutput{}, f.createStreamErr
}

func (f *fakeAPI) PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.putIn = params
	return f.putOut, nil
}

func TestDescribeGroups_Pagination(t *testing.T) {
	api := &fakeAPI{describeGroupsOut: []*cloudwatchlogs.DescribeLogGroupsOutput{
		{
			LogGroups: []types.LogGroup{{LogGroupName: aws.String("app-logs")}},
			NextToken: aws.String("page-2"),
		},
		{
			LogGroups: []types.LogGroup{{LogGroupName: aws.String("app-logs-archive")}},
		},
	}}
	cw := NewCloudWatch(api)

	names, err := cw.DescribeGroups(context.Background(), "app-logs")
	if err != nil {
		t.Fatalf("DescribeGroups: %v", err)
	}

	if len(names) != 2 || names[0] != "app-logs" || names[1] != "app-logs-archive" {
		t.Errorf("unexpected names: %v", names)
	}
	if aws.ToString(api.describeGroupsIn.LogGroupNamePrefix) != "app-logs" {
		t.Errorf("prefix not passed through: %v", api.describeGroupsIn)
	}
}

func TestCreateGroup_OmitsEmptyTags(t *testing.T) {
	api := &fakeAPI{}
	cw := NewCloudWatch(api)

	if err := cw.CreateGroup(context.Background(), "app-logs", nil); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if api.createGroupIn.Tags != nil {
		t.Errorf("empty tags must be omitted from the request, got %v", api.createGroupIn.Tags)
	}

	if err := cw.CreateGroup(context.Background(), "app-logs", map[string]string{"env": "prod"}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if api.createGroupIn.Tags["env"] != "prod" {
		t.Errorf("tags not passed through, got %v", api.createGroupIn.Tags)
	}
}

func TestCreateGroup_ToleratesAlreadyExists(t *testing.T) {
	api := &fakeAPI{createGroupErr: &types.ResourceAlreadyExistsException{}}
	cw := NewCloudWatch(api)

	if err := cw.CreateGroup(context.Background(), "app-logs", nil); err != nil {
		t.Errorf("losing a create race should not be an error, got %v", err)
	}
}

func TestCreateStream_ToleratesAlreadyExists(t *testing.T) {
	api := &fakeAPI{createStreamErr: &types.ResourceAlreadyExistsException{}}
	cw := NewCloudWatch(api)

	if err := cw.CreateStream(context.Background(), "app-logs", "web"); err != nil {
		t.Errorf("losing a create race should not be an error, got %v", err)
	}
}

func TestPutRetentionPolicy(t *testing.T) {
	api := &fakeAPI{}
	cw := NewCloudWatch(api)

	if err := cw.PutRetentionPolicy(context.Background(), "app-logs", 14); err != nil {
		t.Fatalf("PutRetentionPolicy: %v", err)
	}
	if aws.ToString(api.retentionIn.LogGroupName) != "app-logs" {
		t.Errorf("group not passed through: %v", api.retentionIn)
	}
	if aws.ToInt32(api.retentionIn.RetentionInDays) != 14 {
		t.Errorf("days not passed through: %v", api.retentionIn)
	}
}

func TestDescribeStreams_MapsSequenceTokens(t *testing.T) {
	api := &fakeAPI{describeStreamsOut: []*cloudwatchlogs.DescribeLogStreamsOutput{
		{
			LogStreams: []types.LogStream{
				{LogStreamName: aws.String("web"), UploadSequenceToken: aws.String("tok-1")},
				{LogStreamName: aws.String("web-old")},
			},
		},
	}}
	cw := NewCloudWatch(api)

	streams, err := cw.DescribeStreams(context.Background(), "app-logs", "web")
	if err != nil {
		t.Fatalf("DescribeStreams: %v", err)
	}

	if len(streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(streams))
	}
	if streams[0].Name != "web" || streams[0].SequenceToken != "tok-1" {
		t.Errorf("unexpected first stream: %+v", streams[0])
	}
	if streams[1].SequenceToken != "" {
		t.Errorf("missing token should map to empty string, got %q", streams[1].SequenceToken)
	}
	if aws.ToString(api.describeStreamsIn.LogGroupName) != "app-logs" {
		t.Errorf("group not passed through: %v", api.describeStreamsIn)
	}
}

func TestPutBatch_RequestMapping(t *testing.T) {
	api := &fakeAPI{putOut: &cloudwatchlogs.PutLogEventsOutput{
		NextSequenceToken: aws.String("tok-next"),
	}}
	cw := NewCloudWatch(api)

	entries := []Entry{
		{Message: []byte("first"), Timestamp: 1000},
		{Message: []byte("second"), Timestamp: 2000},
	}

	res, err := cw.PutBatch(context.Background(), "app-logs", "web", entries, "")
	if err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	if res.NextSequenceToken != "tok-next" {
		t.Errorf("expected tok-next, got %q", res.NextSequenceToken)
	}
	if api.putIn.SequenceToken != nil {
		t.Errorf("empty token must be omitted from the request, got %v", api.putIn.SequenceToken)
	}
	if len(api.putIn.LogEvents) != 2 {
		t.Fatalf("expected 2 events, got %d", len(api.putIn.LogEvents))
	}
	if aws.ToString(api.putIn.LogEvents[0].Message) != "first" || aws.ToInt64(api.putIn.LogEvents[0].Timestamp) != 1000 {
		t.Errorf("unexpected first event: %+v", api.putIn.LogEvents[0])
	}

	// Legacy variant carries the token.
	if _, err := cw.PutBatch(context.Background(), "app-logs", "web", entries, "tok-1"); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}
	if aws.ToString(api.putIn.SequenceToken) != "tok-1" {
		t.Errorf("token not passed through, got %v", api.putIn.SequenceToken)
	}
}
