package state

import "followup-voicebot/agent/rules"

// Track derives the next conversation state from the most recent turn pair.
// It is a pure function of its inputs: replaying the same transcript yields
// the same flags, and no flag is ever unset here.
func Track(cur Conversation, lastUser, lastAssistant string) Conversation {
	ev := rules.Evidence{Utterance: lastUser, LastAssistant: lastAssistant}
	next := cur

	if rules.Matches(ev, rules.MedicationPickedUp) {
		next.MedicationPickedUp = true
		next = next.StartAdherence()
	}
	if rules.Matches(ev, rules.DosageConfirmed) {
		next.DosageDiscussed = true
		next = next.StartAdherence()
	}
	if rules.Matches(ev, rules.SideEffectsProbed) {
		next.SideEffectsAsked = true
		next = next.StartAdherence()
	}

	// The no-issues heuristic only counts as adherence completion when the
	// assistant has actually probed for side effects; an unprompted "I'm
	// fine" is not evidence.
	if next.SideEffectsAsked && rules.Matches(ev, rules.NoIssuesReported) {
		next = next.CompleteAdherence()
	}

	if rules.Matches(ev, rules.SchedulingTopic) {
		next = next.StartScheduling()
	}

	return next
}
