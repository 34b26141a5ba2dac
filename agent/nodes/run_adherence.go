package turnnode

import (
	"context"
	"fmt"
	"strings"

	"followup-voicebot/agent/contract"
)

// RunAdherence handles one medication-adherence turn. Deterministic paths
// (non-severe symptoms, tracker-detected completion) short-circuit the
// specialist; everything else goes through the adherence completion thread.
func RunAdherence(ctx context.Context, in *GraphState, client contract.CompletionClient) (*GraphState, error) {
	if symptoms := nonSevereSymptoms(in.Utterance); len(symptoms) > 0 {
		in.Reply = fmt.Sprintf(
			"Thank you for sharing. I'll notify Dr. %s's team about your %s. Now, let's schedule your follow-up appointment with Dr. %s. Are you available to do that now?",
			in.Profile.DoctorName, strings.Join(symptoms, " and "), in.Profile.DoctorName)
		in.NextConv = in.Tracked.CompleteAdherence()
		return in, nil
	}

	if in.Tracked.AdherenceDone() && !in.Conv.AdherenceDone() {
		in.Reply = fmt.Sprintf(
			"Perfect! It sounds like you're managing your medication well. The last thing is to schedule your follow-up appointment with Dr. %s. Are you available to do that now?",
			in.Profile.DoctorName)
		return in, nil
	}

	key := contract.ThreadKey{PatientID: in.PatientID, Role: contract.RoleAdherence}
	req := contract.CompletionRequest{
		Role:          contract.RoleAdherence,
		SystemPrompt:  in.Prompts.Adherence + adherenceContext(in),
		ThreadContext: in.ThreadContext,
		Transcript:    in.working(),
	}
	result, err := client.Complete(ctx, key, req)
	if err != nil {
		return nil, err
	}

	in.Reply = result.Text
	if adherenceTransition(result.Text) {
		in.NextConv = in.Tracked.CompleteAdherence()
	}
	return in, nil
}

// adherenceContext appends progress hints so the specialist never repeats a
// question the patient already answered.
func adherenceContext(in *GraphState) string {
	switch {
	case in.Tracked.MedicationPickedUp && in.Tracked.DosageDiscussed:
		return fmt.Sprintf("\n\nConversation progress: the patient has confirmed picking up the medication and the dosage. "+
			"Ask about side effects or problems if not already asked. "+
			"If the patient indicates no problems after that question, transition with: "+
			"\"The last thing is to schedule your follow-up appointment with Dr. %s. Are you available to do that now?\"",
			in.Profile.DoctorName)
	case in.Tracked.MedicationPickedUp:
		return "\n\nConversation progress: the patient has confirmed picking up the medication. " +
			"Do not ask about pickup again; ask about dosage and timing next, then about side effects."
	default:
		return ""
	}
}

func adherenceTransition(reply string) bool {
	return strings.Contains(reply, "schedule your follow-up appointment") ||
		strings.Contains(reply, "The last thing is to schedule")
}

func nonSevereSymptoms(utterance string) []string {
	lower := strings.ToLower(utterance)
	var out []string
	for _, symptom := range []string{"headache", "fever"} {
		if strings.Contains(lower, symptom) {
			out = append(out, symptom)
		}
	}
	return out
}
