// Package orchestrator runs the follow-up call state machine: one turn graph
// per utterance, routed across the triage, adherence, and scheduling
// specialists, with session state committed only after the turn succeeds.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	"followup-voicebot/agent/contract"
	turnnode "followup-voicebot/agent/nodes"
	"followup-voicebot/agent/patient"
	promptx "followup-voicebot/agent/prompt"
	routerx "followup-voicebot/agent/router"
	schedulingx "followup-voicebot/agent/scheduling"
	"followup-voicebot/agent/state"
	logx "followup-voicebot/pkg/logger"
)

// StartCallSentinel opens a call: it produces the templated greeting without
// consulting any specialist.
const StartCallSentinel = "__START_CALL__"

type session struct {
	mu sync.Mutex

	profile       *patient.Profile
	prompts       promptx.PromptSet
	threadContext string

	conv       state.Conversation
	transcript *state.Transcript
}

type Orchestrator struct {
	client   contract.CompletionClient
	calendar contract.Calendar
	patients patient.Store

	router *routerx.Router
	loop   *schedulingx.Loop

	graphRunner compose.Runnable[turnnode.GraphInput, turnnode.GraphOutput]

	mu       sync.Mutex
	sessions map[string]*session

	templates promptx.PromptSet
	logger    zerolog.Logger
	now       func() time.Time
}

func New(client contract.CompletionClient, calendar contract.Calendar, patients patient.Store) (*Orchestrator, error) {
	if client == nil {
		return nil, errors.New("completion client is required")
	}
	if calendar == nil {
		return nil, errors.New("calendar is required")
	}
	if patients == nil {
		return nil, errors.New("patient store is required")
	}

	o := &Orchestrator{
		client:    client,
		calendar:  calendar,
		patients:  patients,
		router:    routerx.New(client),
		loop:      schedulingx.NewLoop(client, calendar),
		sessions:  make(map[string]*session),
		templates: promptx.LoadPromptSet(),
		logger:    logx.Component("orchestrator"),
		now:       time.Now,
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one patient utterance and returns the reply. Session
// state and transcript are committed only when the turn fully succeeds;
// recoverable failures map to an apology reply and leave the session exactly
// as it was.
func (o *Orchestrator) HandleTurn(ctx context.Context, patientID, utterance string) (string, error) {
	sess, err := o.sessionFor(ctx, patientID)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if strings.TrimSpace(utterance) == StartCallSentinel {
		reply := o.greeting(sess.profile)
		sess.transcript.AppendAssistant(reply)
		return reply, nil
	}

	out, err := o.graphRunner.Invoke(ctx, turnnode.GraphInput{
		PatientID:     patientID,
		Utterance:     utterance,
		Profile:       sess.profile,
		ThreadContext: sess.threadContext,
		Prompts:       sess.prompts,
		Conv:          sess.conv,
		Transcript:    sess.transcript.Turns(),
		LastAssistant: sess.transcript.LastAssistant(),
	})
	if err != nil {
		if errors.Is(err, turnnode.ErrEmptyUtterance) {
			return "", err
		}
		o.logger.Error().Err(err).Str("patient", patientID).Msg("turn failed")
		return errorReply(err), nil
	}

	sess.transcript.AppendUser(strings.TrimSpace(utterance))
	for _, turn := range out.Staged {
		switch {
		case turn.ToolCall != nil:
			sess.transcript.AppendToolCall(turn.ToolCall)
		case turn.Role == contract.TurnTool:
			sess.transcript.AppendToolResult(turn.ToolName, turn.Content)
		}
	}
	sess.transcript.AppendAssistant(out.Reply)
	sess.conv = out.NextConv

	return out.Reply, nil
}

// State returns a copy of the committed conversation state for the patient,
// or false when no session exists yet.
func (o *Orchestrator) State(patientID string) (state.Conversation, bool) {
	o.mu.Lock()
	sess, ok := o.sessions[patientID]
	o.mu.Unlock()
	if !ok {
		return state.Conversation{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.conv, true
}

func (o *Orchestrator) sessionFor(ctx context.Context, patientID string) (*session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sess, ok := o.sessions[patientID]; ok {
		return sess, nil
	}

	profile, err := o.patients.Load(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient %q: %w", patientID, err)
	}

	now := o.now()
	sess := &session{
		profile: profile,
		prompts: promptx.PromptSet{
			Triage:     promptx.Personalize(o.templates.Triage, profile, now),
			Adherence:  promptx.Personalize(o.templates.Adherence, profile, now),
			Scheduling: promptx.Personalize(o.templates.Scheduling, profile, now),
		},
		threadContext: threadContext(profile),
		conv:          state.NewConversation(),
		transcript:    state.NewTranscript(),
	}
	o.sessions[patientID] = sess
	o.logger.Info().Str("patient", patientID).Str("name", profile.PatientName).Msg("session created")
	return sess, nil
}

// greeting is the deterministic call opener: time-of-day salutation,
// identification, medication recap, pickup question.
func (o *Orchestrator) greeting(p *patient.Profile) string {
	hour := o.now().Hour()
	salutation := "Good evening"
	switch {
	case hour < 12:
		salutation = "Good morning"
	case hour < 17:
		salutation = "Good afternoon"
	}
	return fmt.Sprintf(
		"%s %s! This is Ava from Dr. %s's office. I'm calling to check on your %s prescription(s) after your discharge on %s. Were you able to pick up your medication?",
		salutation, p.PatientName, p.DoctorName, p.MedicationNames(), p.DischargeDate)
}

// threadContext is the session fact block injected into each specialist
// thread exactly once, at thread creation.
func threadContext(p *patient.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient: %s\n", p.PatientName)
	fmt.Fprintf(&b, "Doctor: Dr. %s\n", p.DoctorName)
	fmt.Fprintf(&b, "Medications: %s\n", p.MedicationDetails())
	fmt.Fprintf(&b, "Discharge date: %s\n", p.DischargeDate)
	fmt.Fprintf(&b, "Follow-up window: %d days", p.FollowUpWindowDays)
	return b.String()
}

// errorReply maps a failed turn onto the patient-facing apology the failure
// class deserves.
func errorReply(err error) string {
	switch {
	case errors.Is(err, contract.ErrTimeout):
		return "I'm having a little trouble connecting right now. Could you please say that again?"
	case errors.Is(err, contract.ErrAuth):
		return "I'm having trouble with my system connection. We may need to try again later."
	default:
		return "I'm sorry, I encountered a technical issue. Let's try that one more time."
	}
}
