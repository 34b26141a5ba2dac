package turnnode

import "fmt"

const emergencyScript = "Thanks for letting me know. That could be important. If you're experiencing anything like chest pain, trouble breathing, or feeling very unwell, please call your doctor or 911 right away."

// SafetyReply answers a safety-flagged turn with the fixed escalation script
// plus a scheduling offer, and marks adherence complete so the next turn
// lands in scheduling.
func SafetyReply(in *GraphState) (*GraphState, error) {
	in.Reply = fmt.Sprintf("%s Would you like to schedule your follow-up with Dr. %s?", emergencyScript, in.Profile.DoctorName)
	in.NextConv = in.Tracked.CompleteAdherence()
	return in, nil
}
