// Package router decides which specialist owns the current turn. The
// decision is advisory for routine turns and absolute for safety: a safety
// keyword in the utterance overrides every other signal, including the
// triage completion's own answer.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"followup-voicebot/agent/contract"
	"followup-voicebot/agent/rules"
	"followup-voicebot/agent/state"
	logx "followup-voicebot/pkg/logger"
)

const (
	labelSafety     = "ROUTE_TO_SAFETY"
	labelAdherence  = "ROUTE_TO_ADHERENCE"
	labelScheduling = "ROUTE_TO_SCHEDULING"
	labelFallback   = "ROUTE_TO_FALLBACK"
)

// Router classifies each user turn through the triage thread, then applies
// the deterministic overrides the conversation state demands.
type Router struct {
	client contract.CompletionClient
	logger zerolog.Logger
}

func New(client contract.CompletionClient) *Router {
	return &Router{
		client: client,
		logger: logx.Component("router"),
	}
}

// Classify returns the route for the utterance. The triage call is advisory:
// when it fails or returns an unrecognized label, classification falls back
// to the shared keyword rules rather than failing the turn.
func (r *Router) Classify(ctx context.Context, patientID, threadContext, systemPrompt string, conv state.Conversation, utterance, lastAssistant string) contract.Route {
	ev := rules.Evidence{Utterance: utterance, LastAssistant: lastAssistant}

	// Safety never waits for the completion service.
	if rules.Matches(ev, rules.SafetyOverride) {
		return contract.RouteSafety
	}

	route, err := r.classifyRemote(ctx, patientID, threadContext, systemPrompt, conv, utterance, lastAssistant)
	if err != nil {
		r.logger.Warn().Err(err).Msg("triage completion failed, using keyword fallback")
		route = keywordRoute(ev)
	}

	// Once adherence is done and the booking is not, every non-safety turn
	// belongs to scheduling.
	if conv.AdherenceDone() && !conv.SchedulingDone() && route != contract.RouteSafety {
		route = contract.RouteScheduling
	}

	r.logger.Debug().
		Str("patient", patientID).
		Str("route", string(route)).
		Msg("turn classified")
	return route
}

func (r *Router) classifyRemote(ctx context.Context, patientID, threadContext, systemPrompt string, conv state.Conversation, utterance, lastAssistant string) (contract.Route, error) {
	key := contract.ThreadKey{PatientID: patientID, Role: contract.RoleTriage}
	req := contract.CompletionRequest{
		Role:          contract.RoleTriage,
		SystemPrompt:  systemPrompt,
		ThreadContext: threadContext,
		Transcript: []contract.Turn{
			{Role: contract.TurnUser, Content: routingContext(conv, utterance, lastAssistant)},
		},
	}

	result, err := r.client.Complete(ctx, key, req)
	if err != nil {
		return contract.RouteFallback, err
	}
	if result.ToolCall != nil {
		return contract.RouteFallback, fmt.Errorf("triage returned a tool call instead of a label")
	}
	return parseLabel(result.Text)
}

// routingContext is the single-turn snapshot the triage specialist sees:
// progress flags plus the immediate conversational exchange.
func routingContext(conv state.Conversation, utterance, lastAssistant string) string {
	var b strings.Builder
	b.WriteString("Conversation status:\n")
	fmt.Fprintf(&b, "- medication adherence discussed: %v\n", conv.AdherenceDone())
	fmt.Fprintf(&b, "- appointment scheduled: %v\n", conv.SchedulingDone())
	fmt.Fprintf(&b, "- scheduling in progress: %v\n", conv.SchedulingActive())
	if lastAssistant != "" {
		fmt.Fprintf(&b, "Last assistant message: %s\n", lastAssistant)
	}
	fmt.Fprintf(&b, "Patient message: %s", utterance)
	return b.String()
}

// parseLabel accepts the label anywhere in the reply; completions often wrap
// labels in prose despite instructions.
func parseLabel(text string) (contract.Route, error) {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, labelSafety):
		return contract.RouteSafety, nil
	case strings.Contains(upper, labelScheduling):
		return contract.RouteScheduling, nil
	case strings.Contains(upper, labelAdherence):
		return contract.RouteAdherence, nil
	case strings.Contains(upper, labelFallback):
		return contract.RouteFallback, nil
	default:
		return contract.RouteFallback, fmt.Errorf("unrecognized routing label %q", text)
	}
}

func keywordRoute(ev rules.Evidence) contract.Route {
	switch {
	case rules.Matches(ev, rules.SafetyOverride):
		return contract.RouteSafety
	case rules.Matches(ev, rules.SchedulingTopic):
		return contract.RouteScheduling
	case rules.Matches(ev, rules.MedicationTopic),
		rules.Matches(ev, rules.MedicationAffirmative),
		rules.Matches(ev, rules.NoIssuesReported):
		return contract.RouteAdherence
	default:
		return contract.RouteFallback
	}
}
