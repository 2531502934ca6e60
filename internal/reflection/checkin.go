package reflection

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/reflection-coach/internal/llm"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// DefaultCheckInDescription is reported when no check-in time could be derived.
const DefaultCheckInDescription = "Default check-in: Follow up as appropriate"

var isoCheckInPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)

// CheckIn is when to follow up on the next goal.
type CheckIn struct {
	IsoCheckInDateTime string `json:"isoCheckInDateTime"`
	DescriptiveCheckIn string `json:"descriptiveCheckIn"`
}

// FallbackCheckIn is the placeholder returned on any scheduling failure.
func FallbackCheckIn() CheckIn {
	return CheckIn{DescriptiveCheckIn: DefaultCheckInDescription}
}

// Scheduled reports whether the check-in carries a concrete timestamp.
func (c CheckIn) Scheduled() bool {
	return c.IsoCheckInDateTime != ""
}

const scheduleInstruction = `You schedule a check-in for a user's next goal.
You are given the goal, its display timing and the current date and time in UTC.
Rules:
- The check-in is at the moment the goal is due.
- If the timing has no explicit clock time, use 23:00:00Z on the due date.
- "In N days" means N days after the current date.
- "Next <Weekday>" means the nearest future occurrence of that weekday.
- "Sometime next week" means the upcoming Sunday.
- An explicit clock time in the timing overrides the default and is used as given, in UTC. "midnight" is 00:00:00 on the due date and "noon" is 12:00:00. Example: "In 1 day at midnight" with current time 2023-10-26T10:00:00Z is 2023-10-27T00:00:00Z.
Respond with ONLY a raw JSON object, no markdown and no commentary:
{"isoCheckInDateTime": "YYYY-MM-DDTHH:mm:ssZ", "descriptiveCheckIn": "<short human description of when you will check in>"}`

// CheckInScheduler turns a display goal into a concrete check-in time.
type CheckInScheduler struct {
	client llm.Client
	opts   CallOptions
	logger *logging.Logger
	obs    Observer
}

func NewCheckInScheduler(client llm.Client, opts CallOptions, logger *logging.Logger, observer Observer) *CheckInScheduler {
	if client == nil {
		panic("reflection: check-in scheduler requires an llm client")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &CheckInScheduler{client: client, opts: opts, logger: logger, obs: observer}
}

// Schedule never fails: any oracle or validation problem yields FallbackCheckIn.
// An incomplete goal yields the zero CheckIn.
func (s *CheckInScheduler) Schedule(ctx context.Context, goal GoalDisplay, now time.Time) (checkIn CheckIn) {
	if goal.Empty() {
		return CheckIn{}
	}

	ctx, span := tracer.Start(ctx, "reflection.schedule_checkin")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("check-in scheduling panicked", "panic", fmt.Sprint(r))
			span.SetAttributes(attribute.Bool("reflection.fallback", true))
			s.obs.ObserveFallback("scheduler")
			checkIn = FallbackCheckIn()
		}
	}()

	current := now.UTC().Format(time.RFC3339)
	content := fmt.Sprintf("Goal: %s\nTiming: %s\nCurrent date and time (UTC): %s (%s)",
		goal.Goal, goal.Timing, current, now.UTC().Weekday())
	resp, err := ask(ctx, s.client, PurposeSchedule, scheduleInstruction, nil, content, s.opts)
	if err != nil {
		return s.fallback(span, "oracle call", err, "")
	}
	obj, err := parseOracleObject(resp.Text)
	if err != nil {
		return s.fallback(span, "parse", err, resp.Text)
	}
	fields, err := requiredStrings(obj, "isoCheckInDateTime", "descriptiveCheckIn")
	if err != nil {
		return s.fallback(span, "schema", err, resp.Text)
	}
	iso := fields["isoCheckInDateTime"]
	if !isoCheckInPattern.MatchString(iso) {
		return s.fallback(span, "timestamp", fmt.Errorf("%w: isoCheckInDateTime %q is not YYYY-MM-DDTHH:mm:ssZ", errSchema, iso), resp.Text)
	}
	if _, err := time.Parse(time.RFC3339Nano, iso); err != nil {
		return s.fallback(span, "timestamp", fmt.Errorf("%w: isoCheckInDateTime %q: %v", errSchema, iso, err), resp.Text)
	}

	span.SetAttributes(attribute.Bool("reflection.fallback", false), attribute.String("reflection.checkin", iso))
	return CheckIn{IsoCheckInDateTime: iso, DescriptiveCheckIn: fields["descriptiveCheckIn"]}
}

func (s *CheckInScheduler) fallback(span trace.Span, step string, err error, raw string) CheckIn {
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("reflection.fallback", true))
	s.logger.Warn("check-in scheduling fell back to default", "step", step, "error", err)
	if raw != "" {
		s.logger.Debug("check-in scheduling raw oracle text", "text", raw)
	}
	s.obs.ObserveFallback("scheduler")
	return FallbackCheckIn()
}
