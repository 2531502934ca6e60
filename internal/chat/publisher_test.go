package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type mockSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (m *mockSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestCheckInPublisher_Publish(t *testing.T) {
	mock := &mockSQS{}
	pub := NewCheckInPublisher(mock, "https://sqs.local/checkins")

	if err := pub.Publish(context.Background(), CheckInEvent{OwnerID: "user-1", Goal: "Run", DueAt: "2023-10-27T23:00:00Z"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(mock.inputs) != 1 {
		t.Fatalf("expected one SendMessage call, got %d", len(mock.inputs))
	}
	in := mock.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.local/checkins" {
		t.Fatalf("unexpected queue url %q", aws.ToString(in.QueueUrl))
	}
	var event CheckInEvent
	if err := json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &event); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if event.Type != EventCheckInScheduled || event.OwnerID != "user-1" {
		t.Fatalf("unexpected event %#v", event)
	}
	if got := aws.ToString(in.MessageAttributes["event_type"].StringValue); got != EventCheckInScheduled {
		t.Fatalf("expected event_type attribute, got %q", got)
	}
}

func TestCheckInPublisher_PublishError(t *testing.T) {
	pub := NewCheckInPublisher(&mockSQS{err: errors.New("queue missing")}, "q")
	if err := pub.Publish(context.Background(), CheckInEvent{OwnerID: "user-1"}); err == nil {
		t.Fatalf("expected error")
	}
}
