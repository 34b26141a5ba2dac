// Package foundry builds chat models for the external completion service.
// The service speaks the OpenAI chat-completions protocol (Azure-hosted in
// production); transport and auth details live here, not in the core.
package foundry

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" required:"true"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	ByAzure            bool          `envconfig:"BY_AZURE" split_words:"true" default:"false"`
	APIVersion         string        `envconfig:"API_VERSION" split_words:"true" default:"2024-12-01-preview"`
	MaxCompletionToken *int          `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"800"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.6"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MockMode           bool          `envconfig:"MOCK_MODE" split_words:"true" default:"false"`
}

// ModelBuilder abstracts model construction so the mock mode can swap in a
// deterministic model without touching callers.
type ModelBuilder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var _ ModelBuilder = (*Config)(nil)

func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     strings.TrimRight(c.BaseURL, "/"),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       strings.TrimSpace(c.Model),
		MaxTokens:   c.MaxCompletionToken,
		Temperature: &c.Temperature,
		Timeout:     c.Timeout,
	}
	if c.ByAzure {
		conf.ByAzure = true
		conf.APIVersion = c.APIVersion
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("foundry: create chat model: %w", err)
	}
	return m, nil
}

// NewClient creates a raw SDK client for the completion service. Used by the
// startup probe; the conversation path goes through the eino model instead.
func NewClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.ByAzure {
		opts = append(opts, option.WithQuery("api-version", cfg.APIVersion))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// Probe issues one minimal completion so a misconfigured endpoint or key
// fails at boot instead of mid-call. No-op in mock mode.
func Probe(ctx context.Context, cfg Config) error {
	if cfg.MockMode {
		return nil
	}
	client := NewClient(cfg)
	if client == nil {
		return fmt.Errorf("foundry: api key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	_, err := client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage("ping"),
		},
		MaxTokens: openaisdk.Int(1),
	})
	if err != nil {
		return fmt.Errorf("foundry: connectivity probe failed: %w", err)
	}
	return nil
}
