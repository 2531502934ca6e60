package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/reflection-coach/internal/reflection"
)

// DefaultTranscriptTTL bounds how long an idle transcript is kept.
const DefaultTranscriptTTL = 30 * 24 * time.Hour

// TranscriptStore keeps each owner's reflection transcript in Redis.
type TranscriptStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewTranscriptStore(client *redis.Client, ttl time.Duration) *TranscriptStore {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTranscriptTTL
	}
	return &TranscriptStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("reflection.internal.chat.transcripts"),
	}
}

// Save replaces the owner's transcript and refreshes its TTL.
func (s *TranscriptStore) Save(ctx context.Context, ownerID string, transcript []reflection.Message) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrOwnerRequired
	}
	ctx, span := s.tracer.Start(ctx, "chat.save_transcript")
	defer span.End()

	if transcript == nil {
		transcript = []reflection.Message{}
	}
	data, err := json.Marshal(transcript)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to marshal transcript: %w", err)
	}
	if err := s.redis.Set(ctx, transcriptKey(ownerID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist transcript: %w", err)
	}
	return nil
}

// Load returns ErrNotFound when the owner has no stored transcript.
func (s *TranscriptStore) Load(ctx context.Context, ownerID string) ([]reflection.Message, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrOwnerRequired
	}
	ctx, span := s.tracer.Start(ctx, "chat.load_transcript")
	defer span.End()

	data, err := s.redis.Get(ctx, transcriptKey(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to load transcript: %w", err)
	}

	var transcript []reflection.Message
	if err := json.Unmarshal(data, &transcript); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to decode transcript: %w", err)
	}
	return transcript, nil
}

// Clear deletes the owner's transcript. Clearing a missing transcript is not an error.
func (s *TranscriptStore) Clear(ctx context.Context, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrOwnerRequired
	}
	ctx, span := s.tracer.Start(ctx, "chat.clear_transcript")
	defer span.End()

	if err := s.redis.Del(ctx, transcriptKey(ownerID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to clear transcript: %w", err)
	}
	return nil
}

func transcriptKey(ownerID string) string {
	return fmt.Sprintf("chat:transcript:%s", ownerID)
}
