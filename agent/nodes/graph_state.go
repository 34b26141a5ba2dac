// Package turnnode holds the per-step functions of the orchestrator's turn
// graph. Every node reads and extends one GraphState; nothing here mutates
// the live session, so a failed turn leaves no trace.
package turnnode

import (
	"errors"

	"followup-voicebot/agent/contract"
	"followup-voicebot/agent/patient"
	promptx "followup-voicebot/agent/prompt"
	"followup-voicebot/agent/state"
)

var (
	ErrEmptyUtterance = errors.New("utterance is empty")
	ErrEmptyReply     = errors.New("turn produced an empty reply")
)

// GraphInput is the immutable snapshot a turn starts from.
type GraphInput struct {
	PatientID     string
	Utterance     string
	Profile       *patient.Profile
	ThreadContext string
	Prompts       promptx.PromptSet // personalized for this patient

	Conv          state.Conversation
	Transcript    []contract.Turn // history before this turn
	LastAssistant string
}

// GraphState accumulates the turn's work. NextConv and Staged are the only
// outputs the caller commits, and only when the whole graph succeeds.
type GraphState struct {
	GraphInput

	Tracked state.Conversation // Conv after lexical tracking of this utterance
	Route   contract.Route

	Reply    string
	NextConv state.Conversation
	Staged   []contract.Turn // intermediate tool turns, before the reply
}

type GraphOutput struct {
	Reply    string
	NextConv state.Conversation
	Staged   []contract.Turn
}

// working returns the transcript including the current user turn, the view
// every specialist call sees.
func (s *GraphState) working() []contract.Turn {
	out := make([]contract.Turn, 0, len(s.Transcript)+1)
	out = append(out, s.Transcript...)
	out = append(out, contract.Turn{Role: contract.TurnUser, Content: s.Utterance})
	return out
}
