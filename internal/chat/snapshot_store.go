package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/reflection-coach/internal/reflection"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Snapshot is the last known reflection outcome for an owner.
type Snapshot struct {
	OwnerID              string                   `dynamodbav:"ownerId" json:"-"`
	CollectedInformation reflection.CollectedInfo `dynamodbav:"collectedInformation" json:"collectedInformation"`
	NextGoalDisplay      reflection.GoalDisplay   `dynamodbav:"nextGoalDisplay" json:"nextGoalDisplay"`
	NextGoalTiming       string                   `dynamodbav:"nextGoalTiming" json:"nextGoalTiming"`
	UpdatedAt            string                   `dynamodbav:"updatedAt" json:"updatedAt"`
}

// SnapshotStore upserts one Snapshot per owner in DynamoDB.
type SnapshotStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewSnapshotStore builds a store backed by the provided DynamoDB client.
func NewSnapshotStore(client dynamoAPI, tableName string, logger *logging.Logger) *SnapshotStore {
	if client == nil {
		panic("chat: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("chat: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SnapshotStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		tracer:    otel.Tracer("reflection.internal.chat.snapshots"),
		now:       time.Now,
	}
}

// Put replaces the owner's snapshot.
func (s *SnapshotStore) Put(ctx context.Context, snapshot Snapshot) error {
	if strings.TrimSpace(snapshot.OwnerID) == "" {
		return ErrOwnerRequired
	}
	ctx, span := s.tracer.Start(ctx, "chat.put_snapshot")
	defer span.End()

	snapshot.UpdatedAt = s.now().UTC().Format(time.RFC3339Nano)
	item, err := attributevalue.MarshalMap(snapshot)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to marshal snapshot: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist snapshot: %w", err)
	}
	s.logger.Debug("snapshot stored", "owner_id", snapshot.OwnerID)
	return nil
}

// Get returns ErrNotFound when the owner has no snapshot.
func (s *SnapshotStore) Get(ctx context.Context, ownerID string) (*Snapshot, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrOwnerRequired
	}
	ctx, span := s.tracer.Start(ctx, "chat.get_snapshot")
	defer span.End()

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"ownerId": &types.AttributeValueMemberS{Value: ownerID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to fetch snapshot: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var snapshot Snapshot
	if err := attributevalue.UnmarshalMap(out.Item, &snapshot); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}
