package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/reflection-coach/internal/config"
	"github.com/wolfman30/reflection-coach/internal/llm"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// Supported LLM_PROVIDER values.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderStub    = "stub"
)

// Oracle is the configured oracle client plus anything that must be closed
// on shutdown.
type Oracle struct {
	Client   llm.Client
	Provider string
	closers  []func() error
}

// Close releases provider connections.
func (o *Oracle) Close() error {
	if o == nil {
		return nil
	}
	var firstErr error
	for _, closeFn := range o.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildOracle wires the primary provider, an optional fallback provider and
// per-call instrumentation. A primary provider missing its credentials falls
// back to the stub client with a warning.
func BuildOracle(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, observer llm.CallObserver, logger *logging.Logger) (*Oracle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	oracle := &Oracle{}
	primaryName := cfg.LLMProvider
	if primaryName == "" {
		primaryName = ProviderOpenAI
	}
	primary, err := buildProvider(ctx, primaryName, cfg, awsCfg, oracle)
	if err != nil {
		var unknown unknownProviderError
		if errors.As(err, &unknown) {
			return nil, err
		}
		logger.Warn("llm provider not configured; using stub oracle", "provider", primaryName, "error", err)
		primaryName = ProviderStub
		primary = llm.StubClient{}
	}
	oracle.Provider = primaryName
	client := llm.Client(llm.NewInstrumentedClient(primary, primaryName, observer))

	if name := cfg.LLMFallbackProvider; name != "" && name != primaryName {
		secondary, err := buildProvider(ctx, name, cfg, awsCfg, oracle)
		if err != nil {
			logger.Warn("fallback llm provider unavailable; continuing without it", "provider", name, "error", err)
		} else {
			client = llm.NewFallbackClient(client, llm.NewInstrumentedClient(secondary, name, observer), logger)
			logger.Info("llm fallback provider enabled", "provider", name)
		}
	}

	oracle.Client = client
	logger.Info("llm oracle configured", "provider", primaryName)
	return oracle, nil
}

type unknownProviderError string

func (e unknownProviderError) Error() string {
	return fmt.Sprintf("bootstrap: unknown llm provider %q", string(e))
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg aws.Config, oracle *Oracle) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderOpenAI:
		return llm.NewOpenAIClientFromKey(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required")
		}
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), nil
	case ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, err
		}
		oracle.closers = append(oracle.closers, client.Close)
		return client, nil
	case ProviderStub:
		return llm.StubClient{}, nil
	default:
		return nil, unknownProviderError(name)
	}
}
