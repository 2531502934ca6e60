package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// EventCheckInScheduled is the event type published for every recorded check-in.
const EventCheckInScheduled = "checkin.scheduled"

type sqsAPI interface {
	SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// CheckInEvent is the SQS payload for a scheduled check-in.
type CheckInEvent struct {
	Type        string `json:"type"`
	CheckInID   string `json:"checkInId"`
	OwnerID     string `json:"ownerId"`
	Goal        string `json:"goal"`
	Timing      string `json:"timing"`
	DueAt       string `json:"dueAt"`
	Description string `json:"description"`
	OccurredAt  string `json:"occurredAt"`
}

// CheckInPublisher sends check-in events to an SQS queue for downstream reminders.
type CheckInPublisher struct {
	client   sqsAPI
	queueURL string
}

func NewCheckInPublisher(client sqsAPI, queueURL string) *CheckInPublisher {
	if client == nil {
		panic("chat: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("chat: SQS queueURL cannot be empty")
	}
	return &CheckInPublisher{client: client, queueURL: queueURL}
}

func (p *CheckInPublisher) Publish(ctx context.Context, event CheckInEvent) error {
	if event.Type == "" {
		event.Type = EventCheckInScheduled
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("chat: failed to marshal check-in event: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(event.Type)},
			"owner_id":   {DataType: aws.String("String"), StringValue: aws.String(event.OwnerID)},
		},
	})
	if err != nil {
		return fmt.Errorf("chat: failed to send check-in event: %w", err)
	}
	return nil
}
