package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type purposeKey struct{}

// WithPurpose tags the context with the reason for an oracle call
// (extraction, reply, normalize, schedule, passthrough).
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

func PurposeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if p, ok := ctx.Value(purposeKey{}).(string); ok && p != "" {
		return p
	}
	return "unknown"
}

// CallObserver receives one observation per oracle call.
type CallObserver interface {
	ObserveOracleCall(purpose, provider, status string, seconds float64)
}

var llmTracer = otel.Tracer("reflection.internal.llm")

// InstrumentedClient records latency and outcome for every call.
type InstrumentedClient struct {
	next     Client
	provider string
	observer CallObserver
}

func NewInstrumentedClient(next Client, provider string, observer CallObserver) *InstrumentedClient {
	if next == nil {
		panic("llm: instrumented client requires a delegate")
	}
	return &InstrumentedClient{next: next, provider: provider, observer: observer}
}

func (c *InstrumentedClient) Complete(ctx context.Context, req Request) (Response, error) {
	purpose := PurposeFromContext(ctx)
	ctx, span := llmTracer.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("reflection.llm.purpose", purpose),
		attribute.String("reflection.llm.provider", c.provider),
		attribute.Int("reflection.llm.messages", len(req.Messages)),
	)

	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "oracle call failed")
	} else {
		span.SetAttributes(attribute.Int("reflection.llm.output_tokens", int(resp.Usage.OutputTokens)))
	}
	if c.observer != nil {
		c.observer.ObserveOracleCall(purpose, c.provider, status, time.Since(start).Seconds())
	}
	return resp, err
}
