package state

import (
	"testing"

	"followup-voicebot/agent/contract"
)

func TestAppendAssistantDedupsConsecutiveDuplicates(t *testing.T) {
	t.Parallel()

	tr := NewTranscript()
	tr.AppendUser("hello")
	if !tr.AppendAssistant("Hi there!") {
		t.Fatal("first append should succeed")
	}
	if tr.AppendAssistant("Hi there!") {
		t.Fatal("identical consecutive assistant turn should be dropped")
	}
	tr.AppendUser("ok")
	if !tr.AppendAssistant("Hi there!") {
		t.Fatal("same text after an intervening user turn is not a duplicate")
	}
	if tr.Len() != 4 {
		t.Fatalf("expected 4 turns, got %d", tr.Len())
	}
}

func TestLastAssistantSkipsToolCallTurns(t *testing.T) {
	t.Parallel()

	tr := NewTranscript()
	tr.AppendAssistant("What days work for you?")
	tr.AppendUser("tomorrow")
	tr.AppendToolCall(&contract.ToolRequest{Name: "findAvailability"})
	tr.AppendToolResult("findAvailability", "09:00, 11:00")

	if got := tr.LastAssistant(); got != "What days work for you?" {
		t.Fatalf("LastAssistant = %q, want the last spoken turn", got)
	}
}
