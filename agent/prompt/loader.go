package prompt

import (
	_ "embed"
	"strconv"
	"strings"
	"time"

	"followup-voicebot/agent/patient"
)

var (
	//go:embed template/shared.txt
	sharedRaw string

	//go:embed template/triage.txt
	triageRaw string

	//go:embed template/adherence.txt
	adherenceRaw string

	//go:embed template/scheduling.txt
	schedulingRaw string
)

// PromptSet holds the loaded role prompts. The triage prompt stands alone;
// the specialist prompts carry the shared call instructions.
type PromptSet struct {
	Triage     string
	Adherence  string
	Scheduling string
}

// LoadPromptSet returns the trimmed prompt templates. Safe to call
// concurrently; the embed is compile-time and concatenation is cheap.
func LoadPromptSet() PromptSet {
	shared := strings.TrimSpace(sharedRaw)
	return PromptSet{
		Triage:     strings.TrimSpace(triageRaw),
		Adherence:  shared + "\n\n" + strings.TrimSpace(adherenceRaw),
		Scheduling: shared + "\n\n" + strings.TrimSpace(schedulingRaw),
	}
}

// Personalize fills the template placeholders from the patient profile and
// the current date.
func Personalize(tpl string, p *patient.Profile, now time.Time) string {
	r := strings.NewReplacer(
		"{Patient_Name}", p.PatientName,
		"{Doctor_Name}", p.DoctorName,
		"{Medication_Details}", p.MedicationDetails(),
		"{Discharge_Date}", p.DischargeDate,
		"{Follow_Up_Window_Days}", strconv.Itoa(p.FollowUpWindowDays),
		"{Current_Date}", now.Format("Monday, January 2, 2006")+" ("+now.Format("2006-01-02")+")",
	)
	return r.Replace(tpl)
}
