package contract

import (
	"context"
	"time"
)

type Role string

const (
	RoleTriage     Role = "triage"
	RoleAdherence  Role = "adherence"
	RoleScheduling Role = "scheduling"
)

// Route is the per-turn classification result. It is recomputed every turn
// and never persisted.
type Route string

const (
	RouteSafety     Route = "safety"
	RouteAdherence  Route = "adherence"
	RouteScheduling Route = "scheduling"
	RouteFallback   Route = "fallback"
)

type TurnRole string

const (
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
	TurnTool      TurnRole = "tool-result"
)

// Turn is one entry of a conversation transcript. The transcript is
// append-only and owned by exactly one patient session.
type Turn struct {
	Role     TurnRole     `json:"role"`
	Content  string       `json:"content"`
	ToolCall *ToolRequest `json:"tool_call,omitempty"` // assistant turns that requested a calendar action
	ToolName string       `json:"tool_name,omitempty"` // set on tool-result turns
}

type ToolRequest struct {
	ID   string         `json:"id,omitempty"` // completion-service call identifier
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ThreadKey identifies one specialist-scoped conversation thread. A key maps
// to at most one live thread for the lifetime of the process.
type ThreadKey struct {
	PatientID string
	Role      Role
}

// CompletionRequest is one call to the external completion service.
// ThreadContext carries the session facts (patient, medications, dates) that
// the completion client injects into the thread exactly once, at creation.
type CompletionRequest struct {
	Role          Role
	SystemPrompt  string
	ThreadContext string
	Transcript    []Turn
	ToolsEnabled  bool
}

// CompletionResult is either free text or a structured tool-call request,
// never both.
type CompletionResult struct {
	Text     string
	ToolCall *ToolRequest
}

type Appointment struct {
	Subject string
	Time    string
}

// Calendar is the scheduling collaborator boundary. Every operation may
// fail; callers never assume success.
type Calendar interface {
	FindAvailability(ctx context.Context, date time.Time) ([]string, error)
	CreateAppointment(ctx context.Context, appointmentTime time.Time, patientName string) (string, error)
	ListAppointments(ctx context.Context, date time.Time) ([]Appointment, error)
	CancelAppointment(ctx context.Context, date time.Time, clock string) (string, error)
	RescheduleAppointment(ctx context.Context, originalDate time.Time, originalClock string, newTime time.Time, patientName string) (string, error)
}

// CompletionClient is the resilient boundary to the LLM completion service.
type CompletionClient interface {
	Complete(ctx context.Context, key ThreadKey, req CompletionRequest) (*CompletionResult, error)
}
