package scheduling

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"followup-voicebot/agent/contract"
	logx "followup-voicebot/pkg/logger"
)

const (
	// synthesizedConfirmation covers the case where the calendar action
	// succeeded but the model returned nothing to say about it.
	synthesizedConfirmation = "I've just processed your request. Please let me know if you need anything else!"

	// CalendarApology is the graceful reply when the calendar cannot be
	// reached at all.
	CalendarApology = "I apologize, I'm having trouble accessing the appointment calendar right now. Can we try again in a few moments?"
)

// Outcome is the staged result of one scheduling turn. Turns holds the
// intermediate tool-call and tool-result entries; the caller appends the
// reply itself and commits everything only once the whole turn has
// succeeded.
type Outcome struct {
	Reply   string
	Turns   []contract.Turn
	Mutated bool // a calendar-changing operation succeeded this turn
}

// Loop runs the single-round tool-call protocol: one specialist completion,
// at most one calendar operation, one follow-up completion to phrase the
// result.
type Loop struct {
	client   contract.CompletionClient
	calendar contract.Calendar
	logger   zerolog.Logger
}

func NewLoop(client contract.CompletionClient, calendar contract.Calendar) *Loop {
	return &Loop{
		client:   client,
		calendar: calendar,
		logger:   logx.Component("scheduling"),
	}
}

// Run executes one scheduling turn over the transcript snapshot. Completion
// failures surface as errors for the caller's reply mapping; calendar
// failures degrade to an apology reply, never an error.
func (l *Loop) Run(ctx context.Context, patientID, systemPrompt, threadContext string, transcript []contract.Turn) (*Outcome, error) {
	key := contract.ThreadKey{PatientID: patientID, Role: contract.RoleScheduling}
	req := contract.CompletionRequest{
		Role:          contract.RoleScheduling,
		SystemPrompt:  systemPrompt,
		ThreadContext: threadContext,
		Transcript:    transcript,
		ToolsEnabled:  true,
	}

	first, err := l.client.Complete(ctx, key, req)
	if err != nil {
		return nil, err
	}
	if first.ToolCall == nil {
		return &Outcome{Reply: first.Text}, nil
	}

	call := first.ToolCall
	resultText, dispatchErr := Dispatch(ctx, l.calendar, call)
	toolSucceeded := dispatchErr == nil
	if dispatchErr != nil {
		l.logger.Warn().Err(dispatchErr).Str("operation", call.Name).Msg("calendar operation failed")
		resultText = "Error: " + dispatchErr.Error()
	}

	staged := []contract.Turn{
		{Role: contract.TurnAssistant, ToolCall: call},
		{Role: contract.TurnTool, Content: resultText, ToolName: call.Name},
	}

	req.Transcript = append(append([]contract.Turn{}, transcript...), staged...)
	second, err := l.client.Complete(ctx, key, req)

	reply := ""
	switch {
	case err == nil && second.ToolCall == nil:
		reply = second.Text
	case err == nil:
		// A second tool call exceeds the single-round protocol; fall back
		// to the deterministic outcome text.
	case !toolSucceeded:
		return nil, err
	}

	if reply == "" {
		// A failed operation must never read as a success to the patient.
		if toolSucceeded {
			reply = synthesizedConfirmation
		} else {
			reply = CalendarApology
		}
	}

	mutated := toolSucceeded && mutatingOps[call.Name]
	if mutated {
		if suffix := l.bookingSummary(ctx, call); suffix != "" {
			reply = reply + "\n\n" + suffix
		}
	}

	return &Outcome{Reply: reply, Turns: staged, Mutated: mutated}, nil
}

// bookingSummary lists the bookings on the affected date. It is best-effort:
// any failure drops the suffix silently.
func (l *Loop) bookingSummary(ctx context.Context, call *contract.ToolRequest) string {
	date, ok := affectedDate(call)
	if !ok {
		return ""
	}
	appts, err := l.calendar.ListAppointments(ctx, date)
	if err != nil {
		l.logger.Debug().Err(err).Msg("skipping booking summary")
		return ""
	}
	if len(appts) == 0 {
		return ""
	}
	return FormatAppointments(date, appts)
}

func affectedDate(call *contract.ToolRequest) (time.Time, bool) {
	var raw string
	switch call.Name {
	case opCreateAppointment:
		raw, _ = call.Args["appointmentDateTime"].(string)
	case opCancelAppointment:
		raw, _ = call.Args["date"].(string)
	case opRescheduleAppointment:
		raw, _ = call.Args["newDateTime"].(string)
	default:
		return time.Time{}, false
	}
	raw = strings.TrimSpace(raw)
	if len(raw) < len("2006-01-02") {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", raw[:len("2006-01-02")], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var clockPattern = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)

// ConfirmationMarker reports whether the reply reads as a booking
// confirmation: it mentions an appointment together with a concrete HH:MM
// time.
func ConfirmationMarker(reply string) bool {
	lower := strings.ToLower(reply)
	return strings.Contains(lower, "appointment") && clockPattern.MatchString(lower)
}
