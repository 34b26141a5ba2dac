package turnnode

import (
	"context"
	"fmt"
	"strings"

	schedulingx "followup-voicebot/agent/scheduling"
)

// RunScheduling hands the turn to the calendar tool loop and interprets the
// outcome: a reply that reads as a booking confirmation advances the
// scheduling phase to confirmed. The very first scheduling turn after
// adherence completes, when the patient has not raised scheduling
// themselves, gets the deterministic invitation instead of a specialist
// call, so a completed adherence check always leads somewhere even when
// the classifier stalls.
func RunScheduling(ctx context.Context, in *GraphState, loop *schedulingx.Loop) (*GraphState, error) {
	if in.Tracked.AdherenceDone() && !in.Tracked.SchedulingActive() && !in.Tracked.SchedulingDone() {
		in.Reply = fmt.Sprintf(
			"Perfect! Now let's schedule your follow-up appointment with Dr. %s. What days work best for you?",
			in.Profile.DoctorName)
		in.NextConv = in.NextConv.StartScheduling()
		return in, nil
	}

	in.NextConv = in.NextConv.StartScheduling()

	outcome, err := loop.Run(ctx, in.PatientID, in.Prompts.Scheduling, in.ThreadContext, in.working())
	if err != nil {
		return nil, err
	}

	in.Reply = outcome.Reply
	in.Staged = outcome.Turns

	// A booking-shaped reply confirms the phase, but only when it is not a
	// proposal still awaiting the patient: either the calendar actually
	// changed, or the model answered in plain text with a firm time.
	confirmationShaped := schedulingx.ConfirmationMarker(outcome.Reply)
	if confirmationShaped && (outcome.Mutated || (len(outcome.Turns) == 0 && !endsWithQuestion(outcome.Reply))) {
		in.NextConv = in.NextConv.ConfirmScheduling()
	}
	return in, nil
}

func endsWithQuestion(reply string) bool {
	return strings.HasSuffix(strings.TrimSpace(reply), "?")
}
