package reflection

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/reflection-coach/internal/llm"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// GoalDisplay is the display-ready next goal. Empty fields mean it could not be
// computed yet.
type GoalDisplay struct {
	Goal   string `json:"goal" dynamodbav:"goal"`
	Timing string `json:"timing" dynamodbav:"timing"`
}

func (g GoalDisplay) Empty() bool {
	return strings.TrimSpace(g.Goal) == "" || strings.TrimSpace(g.Timing) == ""
}

const normalizeInstruction = `You rewrite a user's next goal and its timing for display.
Rules:
- Goal: remove repetition phrasing such as "again", "another" or "one more time" so only the bare activity remains, then capitalize the first letter. Example: "go to the gym again" -> "Go to the gym".
- Timing: convert relative phrases to a canonical relative form: "tomorrow" -> "In 1 day", "in two days" -> "In 2 days", a bare "next week" -> "In 7 days". Keep named weekdays and dates, capitalized (e.g. "Next Monday", "On March 3"). Append any specific clock time literally, e.g. "tomorrow at midnight" -> "In 1 day at midnight".
Respond with ONLY a raw JSON object, no markdown and no commentary:
{"goal": "<display goal>", "timing": "<display timing>"}`

// GoalNormalizer turns the raw goal and timing answers into display strings.
type GoalNormalizer struct {
	client llm.Client
	opts   CallOptions
	logger *logging.Logger
	obs    Observer
}

func NewGoalNormalizer(client llm.Client, opts CallOptions, logger *logging.Logger, observer Observer) *GoalNormalizer {
	if client == nil {
		panic("reflection: goal normalizer requires an llm client")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &GoalNormalizer{client: client, opts: opts, logger: logger, obs: observer}
}

// Normalize never fails: oracle errors fall back to the raw goal and the raw
// timing with its first letter capitalized.
func (n *GoalNormalizer) Normalize(ctx context.Context, goalText, timingText string) (display GoalDisplay) {
	if !IsConcrete(goalText) || !IsConcrete(timingText) {
		return GoalDisplay{}
	}
	goalText = strings.TrimSpace(goalText)
	timingText = strings.TrimSpace(timingText)

	ctx, span := tracer.Start(ctx, "reflection.normalize_goal")
	defer span.End()

	fallback := GoalDisplay{Goal: goalText, Timing: capitalizeFirst(timingText)}
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("goal normalization panicked", "panic", fmt.Sprint(r))
			span.SetAttributes(attribute.Bool("reflection.fallback", true))
			n.obs.ObserveFallback("normalizer")
			display = fallback
		}
	}()

	content := "Goal: " + goalText + "\nTiming: " + timingText
	resp, err := ask(ctx, n.client, PurposeNormalize, normalizeInstruction, nil, content, n.opts)
	if err != nil {
		return n.fallback(span, "oracle call", err, "", fallback)
	}
	obj, err := parseOracleObject(resp.Text)
	if err != nil {
		return n.fallback(span, "parse", err, resp.Text, fallback)
	}
	fields, err := requiredStrings(obj, "goal", "timing")
	if err != nil {
		return n.fallback(span, "schema", err, resp.Text, fallback)
	}
	span.SetAttributes(attribute.Bool("reflection.fallback", false))
	return GoalDisplay{Goal: fields["goal"], Timing: fields["timing"]}
}

func (n *GoalNormalizer) fallback(span trace.Span, step string, err error, raw string, out GoalDisplay) GoalDisplay {
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("reflection.fallback", true))
	n.logger.Warn("goal normalization fell back to raw text", "step", step, "error", err)
	if raw != "" {
		n.logger.Debug("goal normalization raw oracle text", "text", raw)
	}
	n.obs.ObserveFallback("normalizer")
	return out
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
