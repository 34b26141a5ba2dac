// Package patientdb is the Postgres-backed patient store. It serves
// deployments where patient records live in the clinic database instead of
// the local patients.json file.
package patientdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"followup-voicebot/agent/patient"
)

type Config struct {
	DSN string `envconfig:"DSN" split_words:"true"`
}

type patientRow struct {
	bun.BaseModel `bun:"table:patients,alias:p"`

	ID                 string `bun:"document_id,pk"`
	PatientName        string `bun:"patient_name,notnull"`
	DoctorName         string `bun:"doctor_name,notnull"`
	PhoneNumber        string `bun:"phone_number"`
	DischargeDate      string `bun:"discharge_date"`
	FollowUpWindowDays int    `bun:"follow_up_window_days"`

	Prescriptions []prescriptionRow `bun:"rel:has-many,join:document_id=patient_id"`
}

type prescriptionRow struct {
	bun.BaseModel `bun:"table:prescriptions,alias:rx"`

	ID             int64  `bun:"id,pk,autoincrement"`
	PatientID      string `bun:"patient_id,notnull"`
	MedicationName string `bun:"medication_name,notnull"`
	Dosage         string `bun:"dosage"`
	Frequency      string `bun:"frequency"`
	Duration       string `bun:"duration"`
}

// Store loads patient profiles from Postgres through bun.
type Store struct {
	db *bun.DB
}

var _ patient.Store = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("patientdb: dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	return &Store{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func (s *Store) Load(ctx context.Context, id string) (*patient.Profile, error) {
	var row patientRow
	err := s.db.NewSelect().
		Model(&row).
		Relation("Prescriptions").
		Where("p.document_id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, patient.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patientdb: load %q: %w", id, err)
	}
	return row.profile(), nil
}

// First returns the first patient record by document id; it backs the
// single-patient console flow where no id is given.
func (s *Store) First(ctx context.Context) (*patient.Profile, error) {
	var row patientRow
	err := s.db.NewSelect().
		Model(&row).
		Relation("Prescriptions").
		Order("p.document_id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, patient.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patientdb: load first patient: %w", err)
	}
	return row.profile(), nil
}

func (s *Store) Close() error { return s.db.Close() }

func (r *patientRow) profile() *patient.Profile {
	p := &patient.Profile{
		ID:                 r.ID,
		PatientName:        r.PatientName,
		DoctorName:         r.DoctorName,
		PhoneNumber:        r.PhoneNumber,
		DischargeDate:      r.DischargeDate,
		FollowUpWindowDays: r.FollowUpWindowDays,
	}
	for _, rx := range r.Prescriptions {
		p.Prescriptions = append(p.Prescriptions, patient.Prescription{
			MedicationName: rx.MedicationName,
			Dosage:         rx.Dosage,
			Frequency:      rx.Frequency,
			Duration:       rx.Duration,
		})
	}
	return p
}
