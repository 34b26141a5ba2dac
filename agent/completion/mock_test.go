package completion

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"followup-voicebot/agent/contract"
)

func TestMockTriageLabels(t *testing.T) {
	t.Parallel()

	mock := NewMockModel(contract.RoleTriage)
	cases := []struct {
		utterance string
		want      string
	}{
		{"I have chest pain", "ROUTE_TO_SAFETY"},
		{"can we book an appointment", "ROUTE_TO_SCHEDULING"},
		{"question about my medication", "ROUTE_TO_ADHERENCE"},
		{"blue is my favourite colour", "ROUTE_TO_FALLBACK"},
	}
	for _, tc := range cases {
		msg, err := mock.Generate(context.Background(), []*schema.Message{schema.UserMessage(tc.utterance)})
		if err != nil {
			t.Fatalf("Generate(%q): %v", tc.utterance, err)
		}
		if msg.Content != tc.want {
			t.Errorf("Generate(%q) = %q, want %q", tc.utterance, msg.Content, tc.want)
		}
	}
}

func TestMockSchedulingIssuesToolCallThenPhrasesResult(t *testing.T) {
	t.Parallel()

	mock := NewMockModel(contract.RoleScheduling)
	first, err := mock.Generate(context.Background(), []*schema.Message{
		schema.UserMessage("i need to schedule an appointment"),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(first.ToolCalls) != 1 || first.ToolCalls[0].Function.Name != "findAvailability" {
		t.Fatalf("expected a findAvailability call, got %+v", first)
	}

	second, err := mock.Generate(context.Background(), []*schema.Message{
		schema.UserMessage("i need to schedule an appointment"),
		first,
		schema.ToolMessage("Available slots: 09:00, 11:00, 14:00", first.ToolCalls[0].ID, schema.WithToolName("findAvailability")),
	})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if !strings.Contains(second.Content, "14:00") {
		t.Fatalf("phrased result missing slots: %q", second.Content)
	}
}

func TestMockAdherenceProgression(t *testing.T) {
	t.Parallel()

	mock := NewMockModel(contract.RoleAdherence)

	msg, err := mock.Generate(context.Background(), []*schema.Message{
		schema.UserMessage("hello"),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(strings.ToLower(msg.Content), "pick up") {
		t.Fatalf("opening question wrong: %q", msg.Content)
	}

	msg, err = mock.Generate(context.Background(), []*schema.Message{
		schema.AssistantMessage("Have you noticed any side effects or problems?", nil),
		schema.UserMessage("no problems, everything is good"),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(msg.Content, "schedule your follow-up appointment") {
		t.Fatalf("no-issues answer should transition to scheduling: %q", msg.Content)
	}
}
