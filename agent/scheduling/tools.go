// Package scheduling owns the calendar tool surface: the tool schemas the
// scheduling specialist is offered, the typed dispatch onto the Calendar
// collaborator, and the tool-call loop that turns a structured request into
// a patient-facing reply.
package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"followup-voicebot/agent/contract"
)

const (
	opFindAvailability      = "findAvailability"
	opCreateAppointment     = "createAppointment"
	opListAppointments      = "listAppointments"
	opCancelAppointment     = "cancelAppointment"
	opRescheduleAppointment = "rescheduleAppointment"
)

// ToolInfos is the closed set of calendar operations offered to the
// scheduling model. Anything outside this set is rejected before it reaches
// the collaborator.
func ToolInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: opFindAvailability,
			Desc: "Find open appointment slots on a given date. Use before proposing times.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"date": {
					Type:     schema.String,
					Desc:     "Date to check, formatted YYYY-MM-DD",
					Required: true,
				},
			}),
		},
		{
			Name: opCreateAppointment,
			Desc: "Book a follow-up appointment at an agreed date and time.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"appointmentDateTime": {
					Type:     schema.String,
					Desc:     "Appointment start in ISO 8601, e.g. 2025-01-15T14:00:00",
					Required: true,
				},
				"patientName": {
					Type:     schema.String,
					Desc:     "Full name of the patient the appointment is for",
					Required: true,
				},
			}),
		},
		{
			Name: opListAppointments,
			Desc: "List appointments already booked on a given date.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"date": {
					Type:     schema.String,
					Desc:     "Date to list, formatted YYYY-MM-DD",
					Required: true,
				},
			}),
		},
		{
			Name: opCancelAppointment,
			Desc: "Cancel an existing appointment identified by its date and time.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"date": {
					Type:     schema.String,
					Desc:     "Date of the appointment to cancel, formatted YYYY-MM-DD",
					Required: true,
				},
				"time": {
					Type:     schema.String,
					Desc:     "Start time of the appointment to cancel, formatted HH:MM",
					Required: true,
				},
			}),
		},
		{
			Name: opRescheduleAppointment,
			Desc: "Move an existing appointment to a new date and time.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"originalDate": {
					Type:     schema.String,
					Desc:     "Date of the existing appointment, formatted YYYY-MM-DD",
					Required: true,
				},
				"originalTime": {
					Type:     schema.String,
					Desc:     "Start time of the existing appointment, formatted HH:MM",
					Required: true,
				},
				"newDateTime": {
					Type:     schema.String,
					Desc:     "New appointment start in ISO 8601, e.g. 2025-01-16T11:00:00",
					Required: true,
				},
				"patientName": {
					Type:     schema.String,
					Desc:     "Full name of the patient the appointment is for",
					Required: true,
				},
			}),
		},
	}
}

type toolHandler func(ctx context.Context, cal contract.Calendar, args map[string]any) (string, error)

// handlers is the dispatch table; mutatingOps marks which entries change the
// calendar and therefore earn a booking summary suffix.
var handlers = map[string]toolHandler{
	opFindAvailability:      handleFindAvailability,
	opCreateAppointment:     handleCreateAppointment,
	opListAppointments:      handleListAppointments,
	opCancelAppointment:     handleCancelAppointment,
	opRescheduleAppointment: handleRescheduleAppointment,
}

var mutatingOps = map[string]bool{
	opCreateAppointment:     true,
	opCancelAppointment:     true,
	opRescheduleAppointment: true,
}

// Dispatch validates the operation name and runs it against the calendar.
// Unknown operations return contract.ErrUnknownOperation without touching
// the collaborator.
func Dispatch(ctx context.Context, cal contract.Calendar, req *contract.ToolRequest) (string, error) {
	handler, ok := handlers[req.Name]
	if !ok {
		return "", fmt.Errorf("%w: %q", contract.ErrUnknownOperation, req.Name)
	}
	out, err := handler(ctx, cal, req.Args)
	if err != nil {
		return "", err
	}
	return out, nil
}

func handleFindAvailability(ctx context.Context, cal contract.Calendar, args map[string]any) (string, error) {
	date, err := dateArg(args, "date")
	if err != nil {
		return "", err
	}
	slots, err := cal.FindAvailability(ctx, date)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contract.ErrCollaborator, err)
	}
	if len(slots) == 0 {
		return fmt.Sprintf("No slots are available on %s.", date.Format("2006-01-02")), nil
	}
	return fmt.Sprintf("Available slots on %s: %s", date.Format("2006-01-02"), strings.Join(slots, ", ")), nil
}

func handleCreateAppointment(ctx context.Context, cal contract.Calendar, args map[string]any) (string, error) {
	when, err := dateTimeArg(args, "appointmentDateTime")
	if err != nil {
		return "", err
	}
	name, err := stringArg(args, "patientName")
	if err != nil {
		return "", err
	}
	out, err := cal.CreateAppointment(ctx, when, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contract.ErrCollaborator, err)
	}
	return out, nil
}

func handleListAppointments(ctx context.Context, cal contract.Calendar, args map[string]any) (string, error) {
	date, err := dateArg(args, "date")
	if err != nil {
		return "", err
	}
	appts, err := cal.ListAppointments(ctx, date)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contract.ErrCollaborator, err)
	}
	return FormatAppointments(date, appts), nil
}

func handleCancelAppointment(ctx context.Context, cal contract.Calendar, args map[string]any) (string, error) {
	date, err := dateArg(args, "date")
	if err != nil {
		return "", err
	}
	clock, err := stringArg(args, "time")
	if err != nil {
		return "", err
	}
	out, err := cal.CancelAppointment(ctx, date, clock)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contract.ErrCollaborator, err)
	}
	return out, nil
}

func handleRescheduleAppointment(ctx context.Context, cal contract.Calendar, args map[string]any) (string, error) {
	origDate, err := dateArg(args, "originalDate")
	if err != nil {
		return "", err
	}
	origClock, err := stringArg(args, "originalTime")
	if err != nil {
		return "", err
	}
	newTime, err := dateTimeArg(args, "newDateTime")
	if err != nil {
		return "", err
	}
	name, err := stringArg(args, "patientName")
	if err != nil {
		return "", err
	}
	out, err := cal.RescheduleAppointment(ctx, origDate, origClock, newTime, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contract.ErrCollaborator, err)
	}
	return out, nil
}

// FormatAppointments renders a numbered booking list, the shape used both by
// the list operation and the post-mutation summary suffix.
func FormatAppointments(date time.Time, appts []contract.Appointment) string {
	if len(appts) == 0 {
		return fmt.Sprintf("No appointments are booked on %s.", date.Format("2006-01-02"))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Appointments on %s:", date.Format("2006-01-02"))
	for i, a := range appts {
		fmt.Fprintf(&b, "\n%d. %s at %s", i+1, a.Subject, a.Time)
	}
	return b.String()
}

func stringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", contract.ErrValidation, name)
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: argument %q must be a non-empty string", contract.ErrValidation, name)
	}
	return strings.TrimSpace(s), nil
}

func dateArg(args map[string]any, name string) (time.Time, error) {
	s, err := stringArg(args, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: argument %q: %v", contract.ErrValidation, name, err)
	}
	return t, nil
}

// dateTimeArg accepts the formats completion models actually emit for ISO
// timestamps, with and without zone suffixes.
func dateTimeArg(args map[string]any, name string) (time.Time, error) {
	s, err := stringArg(args, name)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, perr := time.ParseInLocation(layout, s, time.Local); perr == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: argument %q is not a recognized timestamp: %q", contract.ErrValidation, name, s)
}
