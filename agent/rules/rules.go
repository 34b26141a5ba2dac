// Package rules holds the single lexical rule table shared by the router's
// fallback classification, the state tracker, and the deterministic mock
// completion model. Keeping one ordered table avoids divergent copies of the
// same keyword heuristics.
package rules

import "strings"

// Evidence is the lexical input a rule can look at: the current user
// utterance and the assistant utterance that preceded it.
type Evidence struct {
	Utterance     string
	LastAssistant string
}

type Effect string

const (
	// Routing signals, highest priority first.
	SafetyOverride        Effect = "safety_override"
	NoIssuesReported      Effect = "no_issues_reported"
	MedicationTopic       Effect = "medication_topic"
	SchedulingTopic       Effect = "scheduling_topic"
	MedicationAffirmative Effect = "medication_affirmative"

	// Tracker signals.
	MedicationPickedUp Effect = "medication_picked_up"
	DosageConfirmed    Effect = "dosage_confirmed"
	SideEffectsProbed  Effect = "side_effects_probed"
)

type Rule struct {
	Effect Effect
	Match  func(ev Evidence) bool
}

// Table is ordered by routing priority; Evaluate preserves this order so the
// first matched routing effect is the strongest signal.
var Table = []Rule{
	{
		Effect: SafetyOverride,
		Match: func(ev Evidence) bool {
			return containsAny(ev.Utterance, "pain", "breath", "dizzy", "emergency")
		},
	},
	{
		Effect: NoIssuesReported,
		Match: func(ev Evidence) bool {
			return containsAny(ev.Utterance,
				"no problem", "no issue", "no side effect",
				"fine", "good", "well", "managing well", "everything is good")
		},
	},
	{
		Effect: MedicationTopic,
		Match: func(ev Evidence) bool {
			return containsAny(ev.Utterance,
				"medication", "medicine", "prescription", "dosage", "dose",
				"pill", "meds", "pharmacy", "side effect")
		},
	},
	{
		Effect: SchedulingTopic,
		Match: func(ev Evidence) bool {
			return containsAny(ev.Utterance,
				"appointment", "schedule", "book", "calendar", "visit",
				"reschedul", "cancel", "available")
		},
	},
	{
		Effect: MedicationAffirmative,
		Match: func(ev Evidence) bool {
			affirmative := containsAny(ev.Utterance,
				"yes", "i have", "i picked", "i got", "i took", "i am taking",
				"already", "picked up")
			inMedicationContext := containsAny(ev.LastAssistant,
				"medication", "prescription", "picked", "dosage", "taking")
			return affirmative && inMedicationContext
		},
	},
	{
		Effect: MedicationPickedUp,
		Match: func(ev Evidence) bool {
			return containsAny(ev.Utterance, "picked", "got", "have") &&
				containsAny(ev.Utterance, "medication", "prescription")
		},
	},
	{
		Effect: DosageConfirmed,
		Match: func(ev Evidence) bool {
			return containsAny(ev.Utterance, "daily", "morning", "every", "once") &&
				containsAny(ev.Utterance, "taking", "yes", "am")
		},
	},
	{
		Effect: SideEffectsProbed,
		Match: func(ev Evidence) bool {
			return containsAny(ev.LastAssistant, "side effect", "problem", "any issues")
		},
	},
}

// Evaluate returns every matched effect in table order.
func Evaluate(ev Evidence) []Effect {
	ev = normalize(ev)
	var out []Effect
	for _, r := range Table {
		if r.Match(ev) {
			out = append(out, r.Effect)
		}
	}
	return out
}

// Matches reports whether one specific effect fires for the evidence.
func Matches(ev Evidence, effect Effect) bool {
	ev = normalize(ev)
	for _, r := range Table {
		if r.Effect == effect {
			return r.Match(ev)
		}
	}
	return false
}

func normalize(ev Evidence) Evidence {
	return Evidence{
		Utterance:     strings.ToLower(ev.Utterance),
		LastAssistant: strings.ToLower(ev.LastAssistant),
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
