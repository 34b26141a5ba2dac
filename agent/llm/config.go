package llm

import (
	"fmt"
	"strings"
	"time"

	"followup-voicebot/agent/contract"
	foundryx "followup-voicebot/pkg/foundry"
)

// Config carries the completion-service settings plus optional per-role
// model overrides. The triage classifier typically runs a smaller, colder
// model than the conversational specialists.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" required:"true"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	ByAzure            bool          `envconfig:"BY_AZURE" split_words:"true" default:"false"`
	APIVersion         string        `envconfig:"API_VERSION" split_words:"true" default:"2024-12-01-preview"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"800"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.6"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MockMode           bool          `envconfig:"MOCK_MODE" split_words:"true" default:"false"`

	TriageModel     string `envconfig:"TRIAGE_MODEL" split_words:"true"`
	AdherenceModel  string `envconfig:"ADHERENCE_MODEL" split_words:"true"`
	SchedulingModel string `envconfig:"SCHEDULING_MODEL" split_words:"true"`

	TriageTemperature     float32 `envconfig:"TRIAGE_TEMPERATURE" split_words:"true" default:"-1"`
	AdherenceTemperature  float32 `envconfig:"ADHERENCE_TEMPERATURE" split_words:"true" default:"-1"`
	SchedulingTemperature float32 `envconfig:"SCHEDULING_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if c.MockMode {
		return nil
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: completion service api key is required", contract.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contract.ErrValidation)
	}
	return nil
}

// FoundryFor resolves the effective model configuration for one role.
func (c Config) FoundryFor(role contract.Role) foundryx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case contract.RoleTriage:
		if v := strings.TrimSpace(c.TriageModel); v != "" {
			modelName = v
		}
		if c.TriageTemperature >= 0 {
			temp = c.TriageTemperature
		}
	case contract.RoleAdherence:
		if v := strings.TrimSpace(c.AdherenceModel); v != "" {
			modelName = v
		}
		if c.AdherenceTemperature >= 0 {
			temp = c.AdherenceTemperature
		}
	case contract.RoleScheduling:
		if v := strings.TrimSpace(c.SchedulingModel); v != "" {
			modelName = v
		}
		if c.SchedulingTemperature >= 0 {
			temp = c.SchedulingTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return foundryx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		ByAzure:            c.ByAzure,
		APIVersion:         c.APIVersion,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		MockMode:           c.MockMode,
	}
}
