package turnnode

import (
	"fmt"
	"strings"
)

const clarifyOpener = "I want to make sure I understand"

// FallbackReply is the clarification ladder for turns no specialist claims:
// a medication context question first, then a direct two-option question
// when the misunderstanding repeats.
func FallbackReply(in *GraphState) (*GraphState, error) {
	if strings.Contains(in.LastAssistant, clarifyOpener) {
		in.Reply = "I understand you're trying to help. Let me ask directly - do you have any side effects from your medication, or would you like to schedule your follow-up appointment?"
		return in, nil
	}

	in.Reply = fmt.Sprintf(
		"%s you correctly. I'm calling to check on your %s prescription(s). Are you taking it/them as prescribed, or do you have any questions about your medication?",
		clarifyOpener, in.Profile.MedicationNames())
	return in, nil
}
