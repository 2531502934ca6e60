package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wolfman30/reflection-coach/cmd/mainconfig"
	"github.com/wolfman30/reflection-coach/internal/app/bootstrap"
	appconfig "github.com/wolfman30/reflection-coach/internal/config"
	"github.com/wolfman30/reflection-coach/internal/reflection"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// reflectchat runs the coach against the configured oracle from a terminal.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	oracle, err := bootstrap.BuildOracle(ctx, cfg, awsCfg, nil, logger)
	if err != nil {
		log.Fatalf("configure oracle: %v", err)
	}
	defer func() { _ = oracle.Close() }()

	coach, err := bootstrap.BuildCoach(cfg, oracle.Client, nil, logger)
	if err != nil {
		log.Fatalf("build coach: %v", err)
	}

	fmt.Printf("reflection coach (%s). Type a message, /reset to start over, /quit to exit.\n", oracle.Provider)
	if err := run(ctx, coach, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run drives one conversation per session, feeding each reply back into the
// transcript the way a client would.
func run(ctx context.Context, coach *reflection.Coach, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	var history []reflection.Message

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			history = nil
			fmt.Fprintln(out, "(conversation reset)")
			continue
		}

		content := line
		result, err := coach.Respond(ctx, reflection.TurnRequest{
			CurrentUserMessage: &reflection.CurrentMessage{Content: &content},
			ChatHistory:        history,
		})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		history = append(history,
			reflection.Message{Role: reflection.RoleUser, Content: line},
			reflection.Message{Role: reflection.RoleAssistant, Content: result.AIMessage},
		)
		fmt.Fprintf(out, "coach: %s\n", result.AIMessage)
		fmt.Fprintf(out, "  [stage %s]\n", result.CurrentStage)
		if !result.NextGoalDisplay.Empty() {
			fmt.Fprintf(out, "  [goal %q, timing %q]\n", result.NextGoalDisplay.Goal, result.NextGoalDisplay.Timing)
		}
		if result.CheckInDetails.Scheduled() {
			fmt.Fprintf(out, "  [check-in %s: %s]\n", result.CheckInDetails.IsoCheckInDateTime, result.CheckInDetails.DescriptiveCheckIn)
		}
	}
}
