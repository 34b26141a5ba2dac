// Package gcal implements the appointment calendar on Google Calendar.
// Slots follow the clinic's business hours; every appointment is a one-hour
// event on the configured calendar.
package gcal

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"followup-voicebot/agent/contract"
)

// BusinessSlots are the bookable start times on any working day.
var BusinessSlots = []string{"09:00", "11:00", "14:00"}

const appointmentDuration = time.Hour

type Config struct {
	CredentialsFile string `envconfig:"CREDENTIALS_FILE" split_words:"true"`
	CalendarID      string `envconfig:"CALENDAR_ID" split_words:"true" default:"primary"`
	Timezone        string `envconfig:"TIMEZONE" split_words:"true" default:"Local"`
}

type Client struct {
	service    *calendar.Service
	calendarID string
	location   *time.Location
}

var _ contract.Calendar = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read calendar credentials: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse calendar credentials: %w", err)
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(jwt.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	loc := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load calendar timezone: %w", err)
		}
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{service: svc, calendarID: calendarID, location: loc}, nil
}

// FindAvailability returns the business-hour slots on date not taken by an
// existing event.
func (c *Client) FindAvailability(ctx context.Context, date time.Time) ([]string, error) {
	taken, err := c.eventsOn(ctx, date)
	if err != nil {
		return nil, err
	}

	takenStarts := make(map[string]bool, len(taken))
	for _, ev := range taken {
		if start, ok := c.eventStart(ev); ok {
			takenStarts[start.Format("15:04")] = true
		}
	}

	var free []string
	for _, slot := range BusinessSlots {
		if !takenStarts[slot] {
			free = append(free, slot)
		}
	}
	return free, nil
}

func (c *Client) CreateAppointment(ctx context.Context, appointmentTime time.Time, patientName string) (string, error) {
	start := appointmentTime.In(c.location)
	event := &calendar.Event{
		Summary: "Appointment for " + patientName,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: start.Add(appointmentDuration).Format(time.RFC3339)},
	}
	if _, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("create appointment: %w", err)
	}
	return fmt.Sprintf("Appointment for %s created on %s at %s.",
		patientName, start.Format("2006-01-02"), start.Format("15:04")), nil
}

func (c *Client) ListAppointments(ctx context.Context, date time.Time) ([]contract.Appointment, error) {
	events, err := c.eventsOn(ctx, date)
	if err != nil {
		return nil, err
	}

	out := make([]contract.Appointment, 0, len(events))
	for _, ev := range events {
		start, ok := c.eventStart(ev)
		if !ok {
			continue
		}
		out = append(out, contract.Appointment{
			Subject: ev.Summary,
			Time:    start.Format("15:04"),
		})
	}
	return out, nil
}

func (c *Client) CancelAppointment(ctx context.Context, date time.Time, clock string) (string, error) {
	ev, err := c.findAt(ctx, date, clock)
	if err != nil {
		return "", err
	}
	if err := c.service.Events.Delete(c.calendarID, ev.Id).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("cancel appointment: %w", err)
	}
	return fmt.Sprintf("The appointment on %s at %s has been cancelled.",
		date.Format("2006-01-02"), clock), nil
}

func (c *Client) RescheduleAppointment(ctx context.Context, originalDate time.Time, originalClock string, newTime time.Time, patientName string) (string, error) {
	if _, err := c.CancelAppointment(ctx, originalDate, originalClock); err != nil {
		return "", err
	}
	if _, err := c.CreateAppointment(ctx, newTime, patientName); err != nil {
		return "", err
	}
	local := newTime.In(c.location)
	return fmt.Sprintf("The appointment has been moved to %s at %s.",
		local.Format("2006-01-02"), local.Format("15:04")), nil
}

func (c *Client) eventsOn(ctx context.Context, date time.Time) ([]*calendar.Event, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.location)
	dayEnd := dayStart.Add(24 * time.Hour)

	list, err := c.service.Events.List(c.calendarID).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return list.Items, nil
}

func (c *Client) findAt(ctx context.Context, date time.Time, clock string) (*calendar.Event, error) {
	events, err := c.eventsOn(ctx, date)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if start, ok := c.eventStart(ev); ok && start.Format("15:04") == clock {
			return ev, nil
		}
	}
	return nil, fmt.Errorf("no appointment found on %s at %s", date.Format("2006-01-02"), clock)
}

func (c *Client) eventStart(ev *calendar.Event) (time.Time, bool) {
	if ev == nil || ev.Start == nil || ev.Start.DateTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(c.location), true
}
