package bootstrap

import (
	"fmt"
	"strings"

	appconfig "github.com/wolfman30/reflection-coach/internal/config"
	"github.com/wolfman30/reflection-coach/internal/llm"
	"github.com/wolfman30/reflection-coach/internal/reflection"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// Supported INFERENCE_MODE values.
const (
	InferenceOracle    = "oracle"
	InferenceHeuristic = "heuristic"
)

// CoachOptions maps the per-call oracle settings from config onto the
// reflection defaults.
func CoachOptions(cfg *appconfig.Config) reflection.Options {
	opts := reflection.DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.Reply.Temperature = cfg.ReplyTemperature
	if cfg.ReplyMaxTokens > 0 {
		opts.Reply.MaxTokens = int32(cfg.ReplyMaxTokens)
	}
	if cfg.ExtractionMaxTokens > 0 {
		opts.Extraction.MaxTokens = int32(cfg.ExtractionMaxTokens)
	}
	return opts
}

// BuildCoach assembles the turn pipeline: inferencer, instruction table and
// per-purpose options.
func BuildCoach(cfg *appconfig.Config, client llm.Client, observer reflection.Observer, logger *logging.Logger) (*reflection.Coach, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if client == nil {
		return nil, fmt.Errorf("bootstrap: llm client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	instructions := reflection.DefaultInstructions()
	if path := strings.TrimSpace(cfg.InstructionsFile); path != "" {
		loaded, err := reflection.LoadInstructions(path)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load instructions: %w", err)
		}
		instructions = loaded
		logger.Info("instruction overrides loaded", "path", path)
	}

	opts := CoachOptions(cfg)
	var inferencer reflection.Inferencer
	switch cfg.InferenceMode {
	case "", InferenceOracle:
		inferencer = reflection.NewOracleInferencer(client, opts.Extraction, logger, observer)
	case InferenceHeuristic:
		inferencer = reflection.HeuristicInferencer{}
		logger.Info("using heuristic slot inference")
	default:
		return nil, fmt.Errorf("bootstrap: unknown inference mode %q", cfg.InferenceMode)
	}

	return reflection.NewCoach(reflection.CoachConfig{
		Client:       client,
		Inferencer:   inferencer,
		Instructions: instructions,
		Options:      &opts,
		Logger:       logger,
		Observer:     observer,
	}), nil
}
