package state

// AdherencePhase and SchedulingPhase replace the original loose boolean
// pairs with tagged variants so invalid combinations (confirmed but never
// active) cannot be represented.
type AdherencePhase string

const (
	AdherenceNotStarted AdherencePhase = "not_started"
	AdherenceInProgress AdherencePhase = "in_progress"
	AdherenceCompleted  AdherencePhase = "completed"
)

type SchedulingPhase string

const (
	SchedulingNotStarted SchedulingPhase = "not_started"
	SchedulingActive     SchedulingPhase = "active"
	SchedulingConfirmed  SchedulingPhase = "confirmed"
)

// Conversation is the per-session progress state. The lexical flags are
// monotonic; the phases only ever advance (NotStarted -> InProgress/Active ->
// Completed/Confirmed). It is a value type: the tracker and orchestrator
// derive a new state and commit it only once the driving turn succeeds.
type Conversation struct {
	MedicationPickedUp bool
	DosageDiscussed    bool
	SideEffectsAsked   bool

	Adherence  AdherencePhase
	Scheduling SchedulingPhase
}

func NewConversation() Conversation {
	return Conversation{
		Adherence:  AdherenceNotStarted,
		Scheduling: SchedulingNotStarted,
	}
}

func (c Conversation) AdherenceDone() bool { return c.Adherence == AdherenceCompleted }

func (c Conversation) SchedulingDone() bool { return c.Scheduling == SchedulingConfirmed }

func (c Conversation) SchedulingActive() bool { return c.Scheduling == SchedulingActive }

// CompleteAdherence advances the adherence phase; it never regresses.
func (c Conversation) CompleteAdherence() Conversation {
	c.Adherence = AdherenceCompleted
	return c
}

func (c Conversation) StartAdherence() Conversation {
	if c.Adherence == AdherenceNotStarted {
		c.Adherence = AdherenceInProgress
	}
	return c
}

// StartScheduling marks scheduling active unless a booking is already
// confirmed.
func (c Conversation) StartScheduling() Conversation {
	if c.Scheduling == SchedulingNotStarted {
		c.Scheduling = SchedulingActive
	}
	return c
}

// ConfirmScheduling records a confirmed booking; the active marker is
// implicitly cleared by the phase transition.
func (c Conversation) ConfirmScheduling() Conversation {
	c.Scheduling = SchedulingConfirmed
	return c
}
