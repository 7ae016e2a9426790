package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"med-reminder/internal/model"
	"med-reminder/internal/repository"
)

// ScheduleTracker is told about every change to a medication's daily times.
type ScheduleTracker interface {
	Track(medicationID string, times []string)
	Untrack(medicationID string)
}

type noopTracker struct{}

func (noopTracker) Track(string, []string) {}
func (noopTracker) Untrack(string)         {}

// MedicationInput represents data required to create or replace a dosing plan.
type MedicationInput struct {
	StartDate      time.Time
	EndDate        time.Time
	Dosage         string
	Frequency      int
	CommercialName string
	Route          string
	Times          []string
}

// Validate checks the plan. prefix qualifies field names for nested input.
func (in MedicationInput) Validate(prefix string) error {
	switch {
	case strings.TrimSpace(in.CommercialName) == "":
		return invalid(prefix+"nomCommercial", "is required")
	case strings.TrimSpace(in.Dosage) == "":
		return invalid(prefix+"dosage", "is required")
	case strings.TrimSpace(in.Route) == "":
		return invalid(prefix+"voieAdministration", "is required")
	case in.StartDate.IsZero():
		return invalid(prefix+"dateDebut", "is required")
	case in.EndDate.IsZero():
		return invalid(prefix+"dateFin", "is required")
	case in.EndDate.Before(in.StartDate):
		return invalid(prefix+"dateFin", "must not be before dateDebut")
	case in.Frequency <= 0:
		return invalid(prefix+"frequence", "must be positive")
	case len(in.Times) != in.Frequency:
		return invalid(prefix+"horaires", "exactly %d daily times required, got %d", in.Frequency, len(in.Times))
	}
	if dup, ok := duplicateTime(in.Times); ok {
		return invalid(prefix+"horaires", "daily time %q listed twice", dup)
	}
	return nil
}

func duplicateTime(times []string) (string, bool) {
	seen := make(map[string]struct{}, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if _, ok := seen[t]; ok {
			return t, true
		}
		seen[t] = struct{}{}
	}
	return "", false
}

func (in MedicationInput) apply(med *model.Medication) {
	med.StartDate = dateOnly(in.StartDate)
	med.EndDate = dateOnly(in.EndDate)
	med.Dosage = strings.TrimSpace(in.Dosage)
	med.Frequency = in.Frequency
	med.CommercialName = strings.TrimSpace(in.CommercialName)
	med.Route = strings.TrimSpace(in.Route)
	med.Times = med.Times[:0]
	for i, t := range uniqueTimes(in.Times) {
		med.Times = append(med.Times, model.MedicationTime{TimeOfDay: t, Position: i})
	}
}

// dateOnly keeps the calendar date and stores it as a UTC midnight.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MedicationService wraps dosing plan business logic.
type MedicationService struct {
	repo    *repository.MedicationRepository
	tracker ScheduleTracker
	log     zerolog.Logger
}

func NewMedicationService(repo *repository.MedicationRepository, tracker ScheduleTracker, log zerolog.Logger) *MedicationService {
	if tracker == nil {
		tracker = noopTracker{}
	}
	return &MedicationService{repo: repo, tracker: tracker, log: log.With().Str("component", "medications").Logger()}
}

// Create stores a standalone medication, optionally owned by patientID.
func (s *MedicationService) Create(ctx context.Context, patientID *string, in MedicationInput) (*model.Medication, error) {
	if err := in.Validate(""); err != nil {
		return nil, err
	}
	med := &model.Medication{PatientID: nonEmpty(patientID)}
	in.apply(med)

	if err := s.repo.Create(ctx, med); err != nil {
		return nil, err
	}
	s.tracker.Track(med.ID, med.DailyTimes())
	return med, nil
}

func (s *MedicationService) Get(ctx context.Context, id string) (*model.Medication, error) {
	med, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return med, nil
}

func (s *MedicationService) ListForPatient(ctx context.Context, patientID string) ([]model.Medication, error) {
	meds, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	return meds, nil
}

// Update replaces the dosing plan. Already materialized reminders are kept;
// alarms follow the new daily times.
func (s *MedicationService) Update(ctx context.Context, id string, in MedicationInput) (*model.Medication, error) {
	if err := in.Validate(""); err != nil {
		return nil, err
	}
	med, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	in.apply(med)
	if err := s.repo.Update(ctx, med); err != nil {
		return nil, translate(err)
	}
	s.tracker.Track(med.ID, med.DailyTimes())
	s.log.Info().Str("medication", med.ID).Strs("times", med.DailyTimes()).Msg("medication updated")
	return s.Get(ctx, id)
}

// Delete removes the medication and every reminder it produced.
func (s *MedicationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return translate(err)
	}
	s.tracker.Untrack(id)
	s.log.Info().Str("medication", id).Msg("medication deleted")
	return nil
}

func nonEmpty(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}
