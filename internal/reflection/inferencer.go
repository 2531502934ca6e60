package reflection

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/reflection-coach/internal/llm"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

var tracer = otel.Tracer("reflection.internal.reflection")

// Inferencer rebuilds the SlotState from a transcript. Implementations are
// total: failures come back as FailedSlotState, never as errors.
type Inferencer interface {
	Infer(ctx context.Context, transcript []Message) SlotState
}

const extractionInstruction = `You analyse the transcript of a reflective coaching chat between an assistant (the coach) and a user.
The coach follows a fixed script: (1) ask whether the user accomplished their previous goal, (2) ask why they were or were not able to, (3) ask for the user's next goal and when they will do it, (4) conclude with "` + ConclusionStatement + `".

Output ONLY a raw JSON object. No prose, no markdown, no code fences. Use exactly these fields:
{
  "outcomeProvided": boolean, true once the user has said whether they accomplished their previous goal,
  "whyProvided": boolean, true once the user has given a reason for the outcome or said they do not know,
  "nextGoalProvided": boolean, true once the user has named a concrete next goal,
  "nextGoalText": string, the next goal in the user's own words, or "not specified",
  "nextGoalTimingProvided": boolean, true once the user has said when they will pursue the next goal,
  "nextGoalTiming": string, the timing in the user's own words (for example "tomorrow at 7am"), or "not specified",
  "conversationConcluded": boolean, true if the coach has already said "` + ConclusionStatement + `",
  "lastSignificantPromptType": one of "NONE", "ASKED_INITIAL", "ASKED_WHY", "ASKED_NEXT_GOAL", "CONCLUDED_SESSION"
}

lastSignificantPromptType is the most recent scripted prompt from the coach:
ASKED_INITIAL when it contained "` + PhraseGoalWas + `" and "` + PhraseAbleToDoIt + `",
ASKED_WHY when it contained "` + PhraseWhyAble + `" or "` + PhraseWhyNotAble + `",
ASKED_NEXT_GOAL when it contained "` + PhraseNextGoal + `",
CONCLUDED_SESSION when it was the conclusion, NONE if none of these were asked.
Judge only what the transcript says. Do not guess.`

// OracleInferencer asks the oracle to extract the SlotState.
type OracleInferencer struct {
	client   llm.Client
	opts     CallOptions
	logger   *logging.Logger
	observer Observer
}

func NewOracleInferencer(client llm.Client, opts CallOptions, logger *logging.Logger, observer Observer) *OracleInferencer {
	if client == nil {
		panic("reflection: oracle client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &OracleInferencer{client: client, opts: opts, logger: logger, observer: observer}
}

func (i *OracleInferencer) Infer(ctx context.Context, transcript []Message) (state SlotState) {
	ctx, span := tracer.Start(ctx, "reflection.infer_state")
	defer span.End()
	span.SetAttributes(attribute.Int("reflection.transcript_len", len(transcript)))

	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("slot inference panicked", "panic", fmt.Sprint(r))
			i.observer.ObserveFallback("inferencer")
			state = FailedSlotState()
		}
	}()

	if transcript == nil {
		transcript = []Message{}
	}
	payload, err := json.Marshal(transcript)
	if err != nil {
		return i.fail(span, "marshal transcript", err, "")
	}

	resp, err := ask(ctx, i.client, PurposeExtraction, extractionInstruction, nil, "Transcript (JSON array of messages):\n"+string(payload), i.opts)
	if err != nil {
		return i.fail(span, "oracle call", err, "")
	}

	obj, err := parseOracleObject(resp.Text)
	if err != nil {
		return i.fail(span, "parse", err, resp.Text)
	}
	state, err = slotStateFromObject(obj)
	if err != nil {
		return i.fail(span, "validate", err, resp.Text)
	}

	span.SetAttributes(attribute.String("reflection.last_prompt", string(state.LastSignificantPromptType)))
	return state
}

func (i *OracleInferencer) fail(span trace.Span, step string, err error, raw string) SlotState {
	span.RecordError(err)
	i.logger.Warn("slot inference failed; using failed state", "step", step, "error", err)
	if raw != "" {
		i.logger.Debug("unparseable slot inference output", "raw", raw)
	}
	i.observer.ObserveFallback("inferencer")
	return FailedSlotState()
}
