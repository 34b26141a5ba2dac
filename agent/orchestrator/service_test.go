package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	"followup-voicebot/agent/completion"
	"followup-voicebot/agent/contract"
	"followup-voicebot/agent/patient"
	schedulingx "followup-voicebot/agent/scheduling"
	sessionx "followup-voicebot/agent/session"
	gcalx "followup-voicebot/pkg/gcal"
)

type fakePatients struct {
	profile *patient.Profile
}

func (f *fakePatients) Load(_ context.Context, id string) (*patient.Profile, error) {
	if f.profile == nil || f.profile.ID != id {
		return nil, patient.ErrNotFound
	}
	p := *f.profile
	return &p, nil
}

func (f *fakePatients) First(context.Context) (*patient.Profile, error) {
	if f.profile == nil {
		return nil, patient.ErrNotFound
	}
	p := *f.profile
	return &p, nil
}

func testProfile() *patient.Profile {
	return &patient.Profile{
		ID:                 "pt-1",
		PatientName:        "Jane Doe",
		DoctorName:         "Smith",
		PhoneNumber:        "+1-555-0100",
		DischargeDate:      "2026-08-20",
		FollowUpWindowDays: 14,
		Prescriptions: []patient.Prescription{
			{MedicationName: "Lisinopril", Dosage: "10mg", Frequency: "once daily", Duration: "90 days"},
		},
	}
}

func newTestBot(t *testing.T) *Orchestrator {
	t.Helper()

	models := map[contract.Role]einomodel.BaseChatModel{}
	for _, role := range []contract.Role{contract.RoleTriage, contract.RoleAdherence, contract.RoleScheduling} {
		mock := completion.NewMockModel(role)
		if role == contract.RoleScheduling {
			bound, err := mock.WithTools(schedulingx.ToolInfos())
			if err != nil {
				t.Fatalf("WithTools: %v", err)
			}
			models[role] = bound
			continue
		}
		models[role] = mock
	}

	client, err := completion.NewClient(models, sessionx.NewRegistry(), completion.Policy{
		MaxAttempts:       1,
		AttemptTimeout:    time.Second,
		RequestsPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	bot, err := New(client, gcalx.NewMemory(), &fakePatients{profile: testProfile()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return bot
}

func TestStartCallSentinelProducesGreeting(t *testing.T) {
	t.Parallel()

	bot := newTestBot(t)
	reply, err := bot.HandleTurn(context.Background(), "pt-1", StartCallSentinel)
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	for _, want := range []string{"Jane Doe", "Dr. Smith", "Lisinopril", "pick up your medication"} {
		if !strings.Contains(reply, want) {
			t.Errorf("greeting missing %q: %q", want, reply)
		}
	}
}

func TestSafetyKeywordOverridesEverything(t *testing.T) {
	t.Parallel()

	bot := newTestBot(t)
	ctx := context.Background()

	reply, err := bot.HandleTurn(ctx, "pt-1", "I have chest pain")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	want := "Thanks for letting me know. That could be important. If you're experiencing anything like chest pain, trouble breathing, or feeling very unwell, please call your doctor or 911 right away. Would you like to schedule your follow-up with Dr. Smith?"
	if reply != want {
		t.Fatalf("safety reply mismatch:\n got %q\nwant %q", reply, want)
	}

	conv, ok := bot.State("pt-1")
	if !ok || !conv.AdherenceDone() {
		t.Fatal("safety turn must complete the adherence phase")
	}
}

func TestFullCallAdherenceThenScheduling(t *testing.T) {
	t.Parallel()

	bot := newTestBot(t)
	ctx := context.Background()

	if _, err := bot.HandleTurn(ctx, "pt-1", StartCallSentinel); err != nil {
		t.Fatalf("greeting: %v", err)
	}

	reply, err := bot.HandleTurn(ctx, "pt-1", "yes, I picked up my medication")
	if err != nil {
		t.Fatalf("pickup turn: %v", err)
	}
	if !strings.Contains(strings.ToLower(reply), "taking it") {
		t.Fatalf("expected a dosage question, got %q", reply)
	}

	reply, err = bot.HandleTurn(ctx, "pt-1", "yes, I am taking it once daily")
	if err != nil {
		t.Fatalf("dosage turn: %v", err)
	}
	if !strings.Contains(strings.ToLower(reply), "side effect") {
		t.Fatalf("expected a side-effects probe, got %q", reply)
	}

	// No issues after the probe: adherence completes and the call invites
	// the patient into scheduling without a specialist round trip.
	reply, err = bot.HandleTurn(ctx, "pt-1", "no side effects, everything is good")
	if err != nil {
		t.Fatalf("no-issues turn: %v", err)
	}
	conv, _ := bot.State("pt-1")
	if !conv.AdherenceDone() {
		t.Fatal("adherence should be complete after no-issues follows the probe")
	}
	if !strings.Contains(reply, "What days work best for you?") {
		t.Fatalf("expected the scheduling invitation, got %q", reply)
	}
	if !conv.SchedulingActive() {
		t.Fatal("the invitation should activate the scheduling phase")
	}

	reply, err = bot.HandleTurn(ctx, "pt-1", "what times do you have available?")
	if err != nil {
		t.Fatalf("availability turn: %v", err)
	}
	if !strings.Contains(reply, "14:00") {
		t.Fatalf("expected available slots in reply, got %q", reply)
	}

	reply, err = bot.HandleTurn(ctx, "pt-1", "yes, book the 2pm slot")
	if err != nil {
		t.Fatalf("booking turn: %v", err)
	}
	if !strings.Contains(reply, "14:00") || !strings.Contains(strings.ToLower(reply), "appointment for jane doe") {
		t.Fatalf("expected booking confirmation with the slot, got %q", reply)
	}

	conv, _ = bot.State("pt-1")
	if !conv.SchedulingDone() {
		t.Fatal("booking confirmation should confirm the scheduling phase")
	}
}

func TestSchedulingShortcutFromScratch(t *testing.T) {
	t.Parallel()

	bot := newTestBot(t)
	reply, err := bot.HandleTurn(context.Background(), "pt-1", "i need to schedule an appointment")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if !strings.Contains(reply, "14:00") {
		t.Fatalf("expected the 14:00 slot offered, got %q", reply)
	}
}

func TestUnknownPatientFailsTurn(t *testing.T) {
	t.Parallel()

	bot := newTestBot(t)
	if _, err := bot.HandleTurn(context.Background(), "nobody", "hello"); err == nil {
		t.Fatal("expected an error for an unknown patient")
	}
}

func TestDuplicateAssistantTurnIsNotRecorded(t *testing.T) {
	t.Parallel()

	bot := newTestBot(t)
	ctx := context.Background()

	// The same fallback-shaped utterance twice in a row yields the same
	// adherence opener; the transcript must keep only one copy in a row.
	if _, err := bot.HandleTurn(ctx, "pt-1", "hmm"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	sess := bot.sessions["pt-1"]
	lenBefore := sess.transcript.Len()

	if _, err := bot.HandleTurn(ctx, "pt-1", "hmm again maybe"); err != nil {
		t.Fatalf("second turn: %v", err)
	}
	// one user turn always lands; the duplicate assistant line must not.
	if got := sess.transcript.Len(); got != lenBefore+1 {
		t.Fatalf("transcript grew by %d turns, want 1 (user only)", got-lenBefore)
	}
}
