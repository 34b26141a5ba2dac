package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	"followup-voicebot/agent/completion"
	"followup-voicebot/agent/contract"
	schedulingx "followup-voicebot/agent/scheduling"
)

// BuildModels constructs one chat model per specialist role. The scheduling
// model is tool-bound at build time, so every scheduling completion carries
// the calendar tool schemas. Mock mode swaps in the deterministic keyword
// models.
func BuildModels(ctx context.Context, cfg Config) (map[contract.Role]einomodel.BaseChatModel, error) {
	roles := []contract.Role{contract.RoleTriage, contract.RoleAdherence, contract.RoleScheduling}
	models := make(map[contract.Role]einomodel.BaseChatModel, len(roles))

	for _, role := range roles {
		var (
			chatModel einomodel.ToolCallingChatModel
			err       error
		)
		if cfg.MockMode {
			chatModel = completion.NewMockModel(role)
		} else {
			foundryCfg := cfg.FoundryFor(role)
			chatModel, err = foundryCfg.New(ctx)
			if err != nil {
				return nil, fmt.Errorf("build %s model: %w", role, err)
			}
		}

		if role == contract.RoleScheduling {
			chatModel, err = chatModel.WithTools(schedulingx.ToolInfos())
			if err != nil {
				return nil, fmt.Errorf("bind scheduling tools: %w", err)
			}
		}
		models[role] = chatModel
	}

	return models, nil
}
