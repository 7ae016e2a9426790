package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"med-reminder/internal/model"
	"med-reminder/internal/repository"
)

// ReminderService turns (medication, time of day) pairs into reminder records
// and serves the patient-facing reminder store.
type ReminderService struct {
	medRepo      *repository.MedicationRepository
	reminderRepo *repository.ReminderRepository
	loc          *time.Location
	log          zerolog.Logger
	now          func() time.Time
}

func NewReminderService(medRepo *repository.MedicationRepository, reminderRepo *repository.ReminderRepository, loc *time.Location, log zerolog.Logger) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{
		medRepo:      medRepo,
		reminderRepo: reminderRepo,
		loc:          loc,
		log:          log.With().Str("component", "reminders").Logger(),
		now:          time.Now,
	}
}

// SetClock replaces the time source used for on-demand and creation-time generation.
func (s *ReminderService) SetClock(now func() time.Time) {
	s.now = now
}

// RenderContent is the human-readable text of a dosing reminder.
func RenderContent(med *model.Medication) string {
	return fmt.Sprintf("Reminder: take %s (%s)", strings.TrimSpace(med.CommercialName), strings.TrimSpace(med.Dosage))
}

// Materialize creates the reminder for med at timeOfDay if one is due at now.
// It returns nil without error when nothing was created: no patient owner yet,
// now outside the validity window, or a reminder for that day already exists.
func (s *ReminderService) Materialize(ctx context.Context, med *model.Medication, timeOfDay TimeOfDay, now time.Time) (*model.Reminder, error) {
	logger := s.log.With().Str("medication", med.ID).Str("time_of_day", timeOfDay.String()).Logger()

	if med.PatientID == nil || *med.PatientID == "" {
		logger.Debug().Msg("medication has no patient, skipping")
		return nil, nil
	}
	if !med.InWindow(now, s.loc) {
		logger.Debug().Str("name", med.CommercialName).Msg("out of period")
		return nil, nil
	}

	reminder := model.Reminder{
		Content:      RenderContent(med),
		Category:     model.CategoryDosing,
		TimeOfDay:    timeOfDay.String(),
		Day:          model.DayOf(now, s.loc),
		CreatedAt:    now,
		PatientID:    *med.PatientID,
		MedicationID: med.ID,
	}

	created, err := s.reminderRepo.CreateOnce(ctx, &reminder)
	if err != nil {
		return nil, fmt.Errorf("materialize %s at %s: %w", med.ID, timeOfDay, translate(err))
	}
	if !created {
		logger.Debug().Str("day", reminder.Day).Msg("reminder already materialized for day")
		return nil, nil
	}

	reminder.Medication = med
	logger.Info().Str("reminder", reminder.ID).Str("name", med.CommercialName).Msg("reminder created")
	return &reminder, nil
}

// Generation is what one pass over a medication's daily times produced.
// Warnings name the daily times that yielded no reminder because they are
// malformed or could not be stored.
type Generation struct {
	Reminders []model.Reminder
	Warnings  []*ValidationError
}

func (g *Generation) add(other Generation) {
	g.Reminders = append(g.Reminders, other.Reminders...)
	g.Warnings = append(g.Warnings, other.Warnings...)
}

// GenerateForMedication materializes every valid daily time of the medication
// at the current instant. Only a missing medication is an error; per-time
// problems come back as warnings next to the reminders that were created.
func (s *ReminderService) GenerateForMedication(ctx context.Context, medicationID string) (Generation, error) {
	med, err := s.medRepo.FindByID(ctx, medicationID)
	if err != nil {
		return Generation{}, translate(err)
	}
	return s.generate(ctx, med, s.now(), "")
}

// generate runs the materializer over each daily time. A rejected or failing
// time never stops the remaining ones. prefix qualifies warning fields.
func (s *ReminderService) generate(ctx context.Context, med *model.Medication, now time.Time, prefix string) (Generation, error) {
	gen := Generation{Reminders: make([]model.Reminder, 0, len(med.Times))}
	for _, raw := range uniqueTimes(med.DailyTimes()) {
		tod, err := ParseTimeOfDay(raw)
		if err != nil {
			s.log.Warn().Str("medication", med.ID).Str("time_of_day", raw).Msg("invalid daily time ignored")
			var verr *ValidationError
			if errors.As(err, &verr) {
				gen.Warnings = append(gen.Warnings, &ValidationError{Field: prefix + verr.Field, Message: verr.Message})
			}
			continue
		}
		reminder, err := s.Materialize(ctx, med, tod, now)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return gen, err
			}
			s.log.Error().Err(err).Str("medication", med.ID).Str("time_of_day", raw).Msg("reminder not created")
			gen.Warnings = append(gen.Warnings, invalid(prefix+"horaires", "reminder for %s could not be created", raw))
			continue
		}
		if reminder != nil {
			gen.Reminders = append(gen.Reminders, *reminder)
		}
	}
	return gen, nil
}

// ListForPatient returns the patient's reminders, newest first. An empty
// result is not an error.
func (s *ReminderService) ListForPatient(ctx context.Context, patientID string) ([]model.Reminder, error) {
	reminders, err := s.reminderRepo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// MarkRead sets read=true on a reminder owned by patientID.
func (s *ReminderService) MarkRead(ctx context.Context, reminderID, patientID string) (*model.Reminder, error) {
	reminder, err := s.reminderRepo.FindByID(ctx, reminderID)
	if err != nil {
		return nil, translate(err)
	}
	if reminder.PatientID != patientID {
		return nil, ErrForbidden
	}
	if reminder.Read {
		return reminder, nil
	}
	if err := s.reminderRepo.MarkRead(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}
