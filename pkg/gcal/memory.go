package gcal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"followup-voicebot/agent/contract"
)

// Memory is an in-process calendar with the same slot rules as the Google
// Calendar client. It backs mock mode and tests.
type Memory struct {
	mu     sync.Mutex
	events map[string][]contract.Appointment // keyed by YYYY-MM-DD
}

var _ contract.Calendar = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{events: make(map[string][]contract.Appointment)}
}

func (m *Memory) FindAvailability(_ context.Context, date time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	taken := make(map[string]bool)
	for _, appt := range m.events[dayKey(date)] {
		taken[appt.Time] = true
	}

	var free []string
	for _, slot := range BusinessSlots {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free, nil
}

func (m *Memory) CreateAppointment(_ context.Context, appointmentTime time.Time, patientName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := dayKey(appointmentTime)
	clock := appointmentTime.Format("15:04")
	for _, appt := range m.events[key] {
		if appt.Time == clock {
			return "", fmt.Errorf("the %s slot on %s is already booked", clock, key)
		}
	}

	m.events[key] = append(m.events[key], contract.Appointment{
		Subject: "Appointment for " + patientName,
		Time:    clock,
	})
	sort.Slice(m.events[key], func(i, j int) bool { return m.events[key][i].Time < m.events[key][j].Time })
	return fmt.Sprintf("Appointment for %s created on %s at %s.", patientName, key, clock), nil
}

func (m *Memory) ListAppointments(_ context.Context, date time.Time) ([]contract.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.events[dayKey(date)]
	out := make([]contract.Appointment, len(src))
	copy(out, src)
	return out, nil
}

func (m *Memory) CancelAppointment(_ context.Context, date time.Time, clock string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := dayKey(date)
	for i, appt := range m.events[key] {
		if appt.Time == clock {
			m.events[key] = append(m.events[key][:i], m.events[key][i+1:]...)
			return fmt.Sprintf("The appointment on %s at %s has been cancelled.", key, clock), nil
		}
	}
	return "", fmt.Errorf("no appointment found on %s at %s", key, clock)
}

func (m *Memory) RescheduleAppointment(ctx context.Context, originalDate time.Time, originalClock string, newTime time.Time, patientName string) (string, error) {
	if _, err := m.CancelAppointment(ctx, originalDate, originalClock); err != nil {
		return "", err
	}
	if _, err := m.CreateAppointment(ctx, newTime, patientName); err != nil {
		return "", err
	}
	return fmt.Sprintf("The appointment has been moved to %s at %s.",
		dayKey(newTime), newTime.Format("15:04")), nil
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }
