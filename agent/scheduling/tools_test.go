package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"followup-voicebot/agent/contract"
	gcalx "followup-voicebot/pkg/gcal"
)

func TestDispatchRejectsUnknownOperation(t *testing.T) {
	t.Parallel()

	_, err := Dispatch(context.Background(), gcalx.NewMemory(), &contract.ToolRequest{Name: "deleteEverything"})
	if !errors.Is(err, contract.ErrUnknownOperation) {
		t.Fatalf("err = %v, want ErrUnknownOperation", err)
	}
}

func TestDispatchValidatesArguments(t *testing.T) {
	t.Parallel()

	cal := gcalx.NewMemory()
	_, err := Dispatch(context.Background(), cal, &contract.ToolRequest{
		Name: opCreateAppointment,
		Args: map[string]any{"appointmentDateTime": "not-a-time", "patientName": "Jane"},
	})
	if !errors.Is(err, contract.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	_, err = Dispatch(context.Background(), cal, &contract.ToolRequest{
		Name: opFindAvailability,
		Args: map[string]any{},
	})
	if !errors.Is(err, contract.ErrValidation) {
		t.Fatalf("missing date: err = %v, want ErrValidation", err)
	}
}

func TestDispatchBookAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cal := gcalx.NewMemory()

	out, err := Dispatch(ctx, cal, &contract.ToolRequest{
		Name: opCreateAppointment,
		Args: map[string]any{"appointmentDateTime": "2026-09-01T14:00:00", "patientName": "Jane Doe"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "14:00") {
		t.Fatalf("create confirmation missing the time: %q", out)
	}

	out, err = Dispatch(ctx, cal, &contract.ToolRequest{
		Name: opFindAvailability,
		Args: map[string]any{"date": "2026-09-01"},
	})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if strings.Contains(out, "14:00") || !strings.Contains(out, "09:00") {
		t.Fatalf("booked slot still offered: %q", out)
	}

	out, err = Dispatch(ctx, cal, &contract.ToolRequest{
		Name: opListAppointments,
		Args: map[string]any{"date": "2026-09-01"},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "1. Appointment for Jane Doe at 14:00") {
		t.Fatalf("numbered list missing booking: %q", out)
	}
}

func TestDispatchCancelAndReschedule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cal := gcalx.NewMemory()

	if _, err := Dispatch(ctx, cal, &contract.ToolRequest{
		Name: opCreateAppointment,
		Args: map[string]any{"appointmentDateTime": "2026-09-01T09:00:00", "patientName": "Jane"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := Dispatch(ctx, cal, &contract.ToolRequest{
		Name: opRescheduleAppointment,
		Args: map[string]any{
			"originalDate": "2026-09-01",
			"originalTime": "09:00",
			"newDateTime":  "2026-09-02T11:00:00",
			"patientName":  "Jane",
		},
	}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	appts, err := cal.ListAppointments(ctx, time.Date(2026, 9, 2, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(appts) != 1 || appts[0].Time != "11:00" {
		t.Fatalf("reschedule did not move the booking: %+v", appts)
	}

	if _, err := Dispatch(ctx, cal, &contract.ToolRequest{
		Name: opCancelAppointment,
		Args: map[string]any{"date": "2026-09-02", "time": "11:00"},
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
}
