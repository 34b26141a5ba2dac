package gcal

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMemoryAvailabilityShrinksAsSlotsBook(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cal := NewMemory()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)

	free, err := cal.FindAvailability(ctx, day)
	if err != nil {
		t.Fatalf("FindAvailability: %v", err)
	}
	if len(free) != len(BusinessSlots) {
		t.Fatalf("fresh day should offer all slots, got %v", free)
	}

	if _, err := cal.CreateAppointment(ctx, day.Add(11*time.Hour), "Jane"); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	free, err = cal.FindAvailability(ctx, day)
	if err != nil {
		t.Fatalf("FindAvailability: %v", err)
	}
	for _, slot := range free {
		if slot == "11:00" {
			t.Fatal("booked slot still offered")
		}
	}
}

func TestMemoryDoubleBookingRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cal := NewMemory()
	at := time.Date(2026, 9, 1, 14, 0, 0, 0, time.Local)

	if _, err := cal.CreateAppointment(ctx, at, "Jane"); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := cal.CreateAppointment(ctx, at, "John"); err == nil {
		t.Fatal("double booking must fail")
	}
}

func TestMemoryCancelAndReschedule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cal := NewMemory()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)

	if _, err := cal.CreateAppointment(ctx, day.Add(9*time.Hour), "Jane"); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := cal.RescheduleAppointment(ctx, day, "09:00", day.AddDate(0, 0, 1).Add(14*time.Hour), "Jane")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !strings.Contains(out, "14:00") {
		t.Fatalf("reschedule confirmation missing new time: %q", out)
	}

	if _, err := cal.CancelAppointment(ctx, day, "09:00"); err == nil {
		t.Fatal("cancelling the moved slot should fail")
	}

	appts, err := cal.ListAppointments(ctx, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(appts) != 1 || appts[0].Time != "14:00" {
		t.Fatalf("moved booking wrong: %+v", appts)
	}
}
