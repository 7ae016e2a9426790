package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"med-reminder/internal/model"
	"med-reminder/internal/repository"
)

// TreatmentInput represents a treatment entered by a clinician.
type TreatmentInput struct {
	Name        string
	Notes       string
	Medications []MedicationInput
}

// TreatmentService records treatments and kicks off reminders for the
// medications they contain.
type TreatmentService struct {
	repo      *repository.TreatmentRepository
	reminders *ReminderService
	tracker   ScheduleTracker
	log       zerolog.Logger
}

func NewTreatmentService(repo *repository.TreatmentRepository, reminders *ReminderService, tracker ScheduleTracker, log zerolog.Logger) *TreatmentService {
	if tracker == nil {
		tracker = noopTracker{}
	}
	return &TreatmentService{
		repo:      repo,
		reminders: reminders,
		tracker:   tracker,
		log:       log.With().Str("component", "treatments").Logger(),
	}
}

// Create stores the treatment with its medications. When a patient owner is
// given, reminders are generated right away for every medication; that step is
// best-effort and never fails the treatment itself.
func (s *TreatmentService) Create(ctx context.Context, doctorID string, patientID *string, in TreatmentInput) (*model.Treatment, Generation, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, Generation{}, invalid("medecin", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, Generation{}, invalid("nom", "is required")
	}
	if len(in.Medications) == 0 {
		return nil, Generation{}, invalid("medicaments", "must be a non-empty array")
	}
	if err := validateMedications(in.Medications); err != nil {
		return nil, Generation{}, err
	}

	owner := nonEmpty(patientID)
	treatment := &model.Treatment{
		Name:        strings.TrimSpace(in.Name),
		Notes:       in.Notes,
		PatientID:   owner,
		DoctorID:    doctorID,
		Medications: buildMedications(owner, in.Medications),
	}

	if err := s.repo.Create(ctx, treatment); err != nil {
		return nil, Generation{}, err
	}

	gen := s.follow(ctx, treatment.ID, treatment.Medications, owner != nil)
	s.log.Info().Str("treatment", treatment.ID).Int("medications", len(treatment.Medications)).Int("reminders", len(gen.Reminders)).Msg("treatment created")
	return treatment, gen, nil
}

// Update rewrites a treatment. A nil patientID keeps the current owner and an
// empty one removes it. Blank Name or Notes keep the stored values. A nil
// medication list keeps the current medications under the resulting owner;
// otherwise they are replaced along with their reminders. Reminders are
// generated when the treatment gains an owner or gets new medications.
func (s *TreatmentService) Update(ctx context.Context, id string, patientID *string, in TreatmentInput) (*model.Treatment, Generation, error) {
	if in.Medications != nil && len(in.Medications) == 0 {
		return nil, Generation{}, invalid("medicaments", "must be a non-empty array")
	}
	if err := validateMedications(in.Medications); err != nil {
		return nil, Generation{}, err
	}

	treatment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, Generation{}, translate(err)
	}
	previous := treatment.PatientID
	if patientID != nil {
		treatment.PatientID = nonEmpty(patientID)
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		treatment.Name = name
	}
	if in.Notes != "" {
		treatment.Notes = in.Notes
	}
	owner := treatment.PatientID

	var replacement []model.Medication
	if in.Medications != nil {
		replacement = buildMedications(owner, in.Medications)
	}
	removed, err := s.repo.Update(ctx, treatment, replacement)
	if err != nil {
		return nil, Generation{}, translate(err)
	}
	for _, medID := range removed {
		s.tracker.Untrack(medID)
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, Generation{}, translate(err)
	}
	meds := replacement
	if meds == nil {
		meds = updated.Medications
	}
	generate := owner != nil && (replacement != nil || !sameOwner(previous, owner))
	gen := s.follow(ctx, id, meds, generate)

	s.log.Info().Str("treatment", id).Int("replaced", len(removed)).Int("reminders", len(gen.Reminders)).Msg("treatment updated")
	return updated, gen, nil
}

// follow tracks the medications and, when generate is set, materializes their
// reminders at the current instant. Failures only produce warnings.
func (s *TreatmentService) follow(ctx context.Context, treatmentID string, meds []model.Medication, generate bool) Generation {
	gen := Generation{Reminders: []model.Reminder{}}
	now := s.reminders.now()
	for i := range meds {
		med := &meds[i]
		s.tracker.Track(med.ID, med.DailyTimes())
		if !generate {
			continue
		}
		created, err := s.reminders.generate(ctx, med, now, fmt.Sprintf("medicaments[%d].", i))
		if err != nil {
			s.log.Warn().Err(err).Str("treatment", treatmentID).Str("medication", med.ID).Msg("reminder generation incomplete")
		}
		gen.add(created)
	}
	return gen
}

func validateMedications(in []MedicationInput) error {
	for i, m := range in {
		if err := m.Validate(fmt.Sprintf("medicaments[%d].", i)); err != nil {
			return err
		}
	}
	return nil
}

func buildMedications(owner *string, in []MedicationInput) []model.Medication {
	meds := make([]model.Medication, len(in))
	for i, m := range in {
		meds[i].PatientID = owner
		m.apply(&meds[i])
	}
	return meds
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *TreatmentService) Get(ctx context.Context, id string) (*model.Treatment, error) {
	treatment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return treatment, nil
}

func (s *TreatmentService) ListForDoctor(ctx context.Context, doctorID string) ([]model.Treatment, error) {
	treatments, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	return treatments, nil
}

// ListForPatient returns the treatments doctorID prescribed to patientID.
func (s *TreatmentService) ListForPatient(ctx context.Context, doctorID, patientID string) ([]model.Treatment, error) {
	treatments, err := s.repo.ListByPatient(ctx, doctorID, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient treatments: %w", err)
	}
	return treatments, nil
}

// Delete removes the treatment, its medications and their reminders.
func (s *TreatmentService) Delete(ctx context.Context, id string) error {
	medIDs, err := s.repo.Delete(ctx, id)
	if err != nil {
		return translate(err)
	}
	for _, medID := range medIDs {
		s.tracker.Untrack(medID)
	}
	s.log.Info().Str("treatment", id).Int("medications", len(medIDs)).Msg("treatment deleted")
	return nil
}
