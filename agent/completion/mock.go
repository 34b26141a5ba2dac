package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"followup-voicebot/agent/contract"
	"followup-voicebot/agent/rules"
)

// MockModel is a deterministic stand-in for the hosted completion service.
// It drives the same keyword rules the tracker uses, so offline runs and
// tests exercise the full routing and scheduling machinery without network
// access.
type MockModel struct {
	role contract.Role
	now  func() time.Time
}

var _ einomodel.ToolCallingChatModel = (*MockModel)(nil)

func NewMockModel(role contract.Role) *MockModel {
	return &MockModel{role: role, now: time.Now}
}

func (m *MockModel) Generate(_ context.Context, messages []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	switch m.role {
	case contract.RoleTriage:
		return m.triage(messages), nil
	case contract.RoleAdherence:
		return m.adherence(messages), nil
	case contract.RoleScheduling:
		return m.scheduling(messages), nil
	default:
		return nil, fmt.Errorf("mock model: unknown role %q", m.role)
	}
}

func (m *MockModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("mock model: streaming is not supported")
}

// WithTools is a no-op; the mock decides on tool calls from keywords alone.
func (m *MockModel) WithTools([]*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}

func (m *MockModel) triage(messages []*schema.Message) *schema.Message {
	ev := evidence(messages)
	effects := rules.Evaluate(ev)

	label := "ROUTE_TO_FALLBACK"
	switch {
	case hasEffect(effects, rules.SafetyOverride):
		label = "ROUTE_TO_SAFETY"
	case hasEffect(effects, rules.SchedulingTopic):
		label = "ROUTE_TO_SCHEDULING"
	case hasEffect(effects, rules.MedicationTopic),
		hasEffect(effects, rules.MedicationAffirmative),
		hasEffect(effects, rules.MedicationPickedUp),
		hasEffect(effects, rules.DosageConfirmed),
		hasEffect(effects, rules.NoIssuesReported):
		label = "ROUTE_TO_ADHERENCE"
	}
	return schema.AssistantMessage(label, nil)
}

func (m *MockModel) adherence(messages []*schema.Message) *schema.Message {
	ev := evidence(messages)
	effects := rules.Evaluate(ev)

	switch {
	case hasEffect(effects, rules.SideEffectsProbed) && hasEffect(effects, rules.NoIssuesReported):
		return schema.AssistantMessage("Perfect! It sounds like you're managing your medication well. The last thing I'd like to do is schedule your follow-up appointment. Are you available to do that now?", nil)
	case hasEffect(effects, rules.DosageConfirmed):
		return schema.AssistantMessage("That's great to hear. Have you noticed any side effects or problems since you started taking it?", nil)
	case hasEffect(effects, rules.MedicationPickedUp):
		return schema.AssistantMessage("Glad you have it. Are you taking it as prescribed, once daily?", nil)
	default:
		return schema.AssistantMessage("Were you able to pick up your medication from the pharmacy?", nil)
	}
}

func (m *MockModel) scheduling(messages []*schema.Message) *schema.Message {
	if name, result, ok := lastToolResult(messages); ok {
		switch name {
		case "findAvailability":
			return schema.AssistantMessage(fmt.Sprintf("I have these times open: %s. The 14:00 slot works well for your follow-up appointment. Shall I book it?", result), nil)
		default:
			return schema.AssistantMessage(fmt.Sprintf("All set! %s Is there anything else I can help you with?", result), nil)
		}
	}

	ev := evidence(messages)
	today := m.now().Format("2006-01-02")
	if containsAnyFold(ev.Utterance, "yes", "book", "sounds good", "that works", "14:00", "2 pm", "2pm") {
		return toolCallMessage("createAppointment", fmt.Sprintf(`{"appointmentDateTime":%q,"patientName":%q}`, today+"T14:00:00", patientNameHint(messages)))
	}
	return toolCallMessage("findAvailability", fmt.Sprintf(`{"date":%q}`, today))
}

func toolCallMessage(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{
				ID:       "mock_" + name,
				Function: schema.FunctionCall{Name: name, Arguments: args},
			},
		},
	}
}

// evidence extracts the last user utterance and the last assistant reply from
// the wire-format message list.
func evidence(messages []*schema.Message) rules.Evidence {
	var ev rules.Evidence
	for _, msg := range messages {
		switch msg.Role {
		case schema.User:
			ev.Utterance = msg.Content
		case schema.Assistant:
			if msg.Content != "" {
				ev.LastAssistant = msg.Content
			}
		}
	}
	return ev
}

func lastToolResult(messages []*schema.Message) (name, content string, ok bool) {
	if len(messages) == 0 {
		return "", "", false
	}
	last := messages[len(messages)-1]
	if last.Role != schema.Tool {
		return "", "", false
	}
	name = last.ToolName
	for i := len(messages) - 2; i >= 0 && name == ""; i-- {
		for _, call := range messages[i].ToolCalls {
			if call.ID == last.ToolCallID {
				name = call.Function.Name
			}
		}
	}
	return name, last.Content, true
}

func patientNameHint(messages []*schema.Message) string {
	for _, msg := range messages {
		if msg.Role != schema.System {
			continue
		}
		for _, line := range strings.Split(msg.Content, "\n") {
			if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Patient:"); ok {
				return strings.TrimSpace(rest)
			}
		}
	}
	return "the patient"
}

func hasEffect(effects []rules.Effect, want rules.Effect) bool {
	for _, e := range effects {
		if e == want {
			return true
		}
	}
	return false
}

func containsAnyFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
