package reflection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/reflection-coach/internal/llm"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

var (
	// ErrInvalidTurn marks caller input problems. No oracle call is made.
	ErrInvalidTurn = errors.New("reflection: invalid turn request")
	// ErrInvalidRole is wrapped alongside ErrInvalidTurn for unknown chatHistory roles.
	ErrInvalidRole = errors.New("reflection: invalid message role")
	// ErrReplyFailed means the user-facing reply could not be generated.
	ErrReplyFailed = errors.New("reflection: reply generation failed")
)

// CurrentMessage is the user's newest message.
type CurrentMessage struct {
	Content *string `json:"content"`
}

// TurnRequest is one inbound user turn.
type TurnRequest struct {
	CurrentUserMessage *CurrentMessage `json:"currentUserMessage"`
	ChatHistory        []Message       `json:"chatHistory"`
}

// TurnResult is the response for one turn.
type TurnResult struct {
	AIMessage            string        `json:"aiMessage"`
	CurrentStage         Stage         `json:"currentStage"`
	CollectedInformation CollectedInfo `json:"collectedInformation"`
	NextGoalDisplay      GoalDisplay   `json:"nextGoalDisplay"`
	CheckInDetails       CheckIn       `json:"checkInDetails"`
}

// Validate returns the trimmed current message or ErrInvalidTurn.
func (r TurnRequest) Validate() (string, error) {
	if r.CurrentUserMessage == nil {
		return "", fmt.Errorf("%w: currentUserMessage is required", ErrInvalidTurn)
	}
	if r.CurrentUserMessage.Content == nil || strings.TrimSpace(*r.CurrentUserMessage.Content) == "" {
		return "", fmt.Errorf("%w: currentUserMessage.content is required", ErrInvalidTurn)
	}
	for i, msg := range r.ChatHistory {
		if !ValidRole(msg.Role) {
			return "", fmt.Errorf("%w: %w: chatHistory[%d] %q", ErrInvalidTurn, ErrInvalidRole, i, msg.Role)
		}
	}
	return strings.TrimSpace(*r.CurrentUserMessage.Content), nil
}

// CoachConfig wires a Coach. Client is required; every other field has a default.
type CoachConfig struct {
	Client       llm.Client
	Inferencer   Inferencer
	Instructions Instructions
	Options      *Options
	Logger       *logging.Logger
	Observer     Observer
	Now          func() time.Time
}

// Coach runs one reflection turn at a time. It keeps no per-conversation
// state, so a single Coach serves concurrent turns.
type Coach struct {
	client     llm.Client
	inferencer Inferencer
	resolver   *Resolver
	normalizer *GoalNormalizer
	scheduler  *CheckInScheduler
	replyOpts  CallOptions
	logger     *logging.Logger
	observer   Observer
	now        func() time.Time
}

func NewCoach(cfg CoachConfig) *Coach {
	if cfg.Client == nil {
		panic("reflection: coach requires an llm client")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	opts := DefaultOptions()
	if cfg.Options != nil {
		opts = *cfg.Options
	}
	if cfg.Inferencer == nil {
		cfg.Inferencer = NewOracleInferencer(cfg.Client, opts.Extraction, cfg.Logger, cfg.Observer)
	}
	return &Coach{
		client:     cfg.Client,
		inferencer: cfg.Inferencer,
		resolver:   NewResolver(cfg.Instructions),
		normalizer: NewGoalNormalizer(cfg.Client, opts.Normalize, cfg.Logger, cfg.Observer),
		scheduler:  NewCheckInScheduler(cfg.Client, opts.Schedule, cfg.Logger, cfg.Observer),
		replyOpts:  opts.Reply,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
		now:        cfg.Now,
	}
}

// Respond processes one turn. Steps run strictly in sequence; only reply
// generation can fail the turn.
func (c *Coach) Respond(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	current, err := req.Validate()
	if err != nil {
		return nil, err
	}
	prior := req.ChatHistory

	ctx, span := tracer.Start(ctx, "reflection.turn")
	defer span.End()

	state := c.inferencer.Infer(ctx, prior)
	decision := c.resolver.Resolve(state)

	instruction := decision.InstructionText
	if state.Failed {
		instruction = BuildRecoveryInstruction(current, prior)
	}
	decision, overridden := c.resolver.ApplyUncertaintyOverride(decision, current)
	if overridden {
		instruction = decision.InstructionText
	}

	resp, err := ask(ctx, c.client, PurposeReply, instruction, prior, current, c.replyOpts)
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = errors.New("oracle returned an empty reply")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reply generation failed")
		c.logger.Error("failed to generate reply", "stage", decision.Stage, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrReplyFailed, err)
	}
	reply := strings.TrimSpace(resp.Text)

	stage := decision.Stage
	if stage == StageAwaitingConclusion {
		stage = StageConcluded
	}

	result := &TurnResult{
		AIMessage:            reply,
		CurrentStage:         stage,
		CollectedInformation: decision.Collected,
	}
	if decision.Collected.NextGoalProvided && decision.Collected.NextGoalTimingProvided {
		result.NextGoalDisplay = c.normalizer.Normalize(ctx, decision.Collected.NextGoalText, decision.Collected.NextGoalTiming)
		if !result.NextGoalDisplay.Empty() {
			result.CheckInDetails = c.scheduler.Schedule(ctx, result.NextGoalDisplay, c.now())
		}
	}

	span.SetAttributes(
		attribute.String("reflection.stage", string(stage)),
		attribute.Bool("reflection.uncertainty_override", overridden),
		attribute.Bool("reflection.recovered", state.Failed),
	)
	c.observer.ObserveTurn(string(stage), overridden, state.Failed)
	c.logger.Info("reflection turn completed",
		"stage", stage,
		"instruction", decision.InstructionKey,
		"uncertainty_override", overridden,
		"recovered", state.Failed,
	)
	return result, nil
}

// Complete is the plain text passthrough: one oracle call with no script.
// Unset options fall back to the reply options field by field.
func (c *Coach) Complete(ctx context.Context, message string, history []Message, opts CallOptions) (llm.Response, error) {
	if strings.TrimSpace(message) == "" {
		return llm.Response{}, fmt.Errorf("%w: message is required", ErrInvalidTurn)
	}
	if opts.Model == "" {
		opts.Model = c.replyOpts.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = c.replyOpts.Temperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = c.replyOpts.MaxTokens
	}
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: message})
	resp, err := c.client.Complete(llm.WithPurpose(ctx, PurposePassthrough), llm.Request{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return llm.Response{}, fmt.Errorf("%w: %v", ErrReplyFailed, err)
	}
	return resp, nil
}
