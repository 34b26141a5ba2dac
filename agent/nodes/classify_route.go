package turnnode

import (
	"context"

	"followup-voicebot/agent/contract"
	routerx "followup-voicebot/agent/router"
)

// ClassifyRoute asks the router where this turn belongs. The router never
// fails a turn; unusable triage output degrades to keyword classification
// inside it.
func ClassifyRoute(ctx context.Context, in *GraphState, r *routerx.Router) (*GraphState, error) {
	in.Route = r.Classify(ctx, in.PatientID, in.ThreadContext, in.Prompts.Triage, in.Tracked, in.Utterance, in.LastAssistant)
	return in, nil
}

// SelectTarget applies the conversation-state preferences on top of the raw
// route: adherence only while incomplete, scheduling implied once adherence
// is done, adherence as the default while it is not.
func SelectTarget(in *GraphState) string {
	switch {
	case in.Route == contract.RouteSafety:
		return TargetSafety
	case in.Route == contract.RouteAdherence && !in.Tracked.AdherenceDone():
		return TargetAdherence
	case in.Route == contract.RouteScheduling,
		in.Tracked.AdherenceDone() && !in.Tracked.SchedulingDone():
		return TargetScheduling
	case !in.Tracked.AdherenceDone():
		return TargetAdherence
	default:
		return TargetFallback
	}
}

const (
	TargetSafety     = "safety_reply"
	TargetAdherence  = "run_adherence"
	TargetScheduling = "run_scheduling"
	TargetFallback   = "fallback_reply"
)
