package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("patient not found")

// Prescription is a plain value record; it has no lifecycle of its own.
type Prescription struct {
	MedicationName string `json:"medicationName"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	Duration       string `json:"duration"`
}

// Profile is the immutable patient record a conversation is built around.
// It is supplied to the orchestrator at construction and never mutated.
type Profile struct {
	ID                 string         `json:"documentId"`
	PatientName        string         `json:"patientName"`
	DoctorName         string         `json:"doctorName"`
	PhoneNumber        string         `json:"phoneNumber"`
	DischargeDate      string         `json:"dischargeDate"`
	FollowUpWindowDays int            `json:"followUpWindowDays"`
	Prescriptions      []Prescription `json:"prescriptions"`
}

// Store is the patient-record boundary. Record storage itself is an
// external collaborator; the orchestration core only loads profiles.
type Store interface {
	Load(ctx context.Context, patientID string) (*Profile, error)
	First(ctx context.Context) (*Profile, error)
}

func (p *Profile) Validate() error {
	if p == nil {
		return errors.New("nil patient profile")
	}
	if strings.TrimSpace(p.PatientName) == "" {
		return errors.New("patient name is required")
	}
	if strings.TrimSpace(p.DoctorName) == "" {
		return errors.New("doctor name is required")
	}
	return nil
}

// MedicationNames joins prescription names for spoken output:
// "a", "a and b", "a, b, and c".
func (p *Profile) MedicationNames() string {
	names := make([]string, 0, len(p.Prescriptions))
	for _, rx := range p.Prescriptions {
		if strings.TrimSpace(rx.MedicationName) != "" {
			names = append(names, rx.MedicationName)
		}
	}
	switch len(names) {
	case 0:
		return "your medication"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

// MedicationDetails renders the prescriptions as one line of
// "name dosage frequency" entries for specialist context blocks.
func (p *Profile) MedicationDetails() string {
	parts := make([]string, 0, len(p.Prescriptions))
	for _, rx := range p.Prescriptions {
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %s %s", rx.MedicationName, rx.Dosage, rx.Frequency)))
	}
	return strings.Join(parts, ", ")
}
