package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTreatmentService(env *testEnv, tracker ScheduleTracker) *TreatmentService {
	env.reminders.SetClock(func() time.Time { return at("2024-06-10T09:15") })
	return NewTreatmentService(env.treatRepo, env.reminders, tracker, zerolog.Nop())
}

func TestTreatmentService_CreateForPatientGeneratesReminders(t *testing.T) {
	env := newTestEnv(t)
	tracker := newFakeTracker()
	svc := newTreatmentService(env, tracker)

	treatment, gen, err := svc.Create(context.Background(), "doctor-1", strPtr("patient-1"), TreatmentInput{
		Name: "Angine",
		Medications: []MedicationInput{
			validInput("08:00", "20:00"),
			validInput("25:00"),
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(treatment.Medications) != 2 {
		t.Fatalf("expected 2 medications, got %d", len(treatment.Medications))
	}
	if len(gen.Reminders) != 2 {
		t.Fatalf("expected 2 reminders (invalid time skipped), got %d", len(gen.Reminders))
	}
	if len(gen.Warnings) != 1 || gen.Warnings[0].Field != "medicaments[1].horaires" || !strings.Contains(gen.Warnings[0].Message, "25:00") {
		t.Fatalf("expected a warning naming 25:00, got %+v", gen.Warnings)
	}
	for _, r := range gen.Reminders {
		if r.PatientID != "patient-1" || r.MedicationID != treatment.Medications[0].ID {
			t.Fatalf("unexpected reminder %+v", r)
		}
	}
	for _, med := range treatment.Medications {
		if med.PatientID == nil || *med.PatientID != "patient-1" {
			t.Fatalf("medication not bound to patient: %+v", med)
		}
		if _, ok := tracker.get(med.ID); !ok {
			t.Fatalf("medication %s not tracked", med.ID)
		}
	}
}

func TestTreatmentService_CreateWithoutPatient(t *testing.T) {
	env := newTestEnv(t)
	svc := newTreatmentService(env, nil)

	treatment, gen, err := svc.Create(context.Background(), "doctor-1", nil, TreatmentInput{
		Name:        "Suivi",
		Medications: []MedicationInput{validInput("08:00")},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if treatment.PatientID != nil {
		t.Fatalf("expected no patient, got %v", *treatment.PatientID)
	}
	if len(gen.Reminders) != 0 || len(gen.Warnings) != 0 {
		t.Fatalf("expected nothing generated without patient, got %+v", gen)
	}
}

func TestTreatmentService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newTreatmentService(env, nil)
	ctx := context.Background()

	mismatch := validInput("08:00")
	mismatch.Frequency = 2

	tests := []struct {
		name  string
		in    TreatmentInput
		field string
	}{
		{"no medications", TreatmentInput{Name: "x"}, "medicaments"},
		{"no name", TreatmentInput{Medications: []MedicationInput{validInput("08:00")}}, "nom"},
		{"count mismatch", TreatmentInput{Name: "x", Medications: []MedicationInput{validInput("08:00"), mismatch}}, "medicaments[1].horaires"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Create(ctx, "doctor-1", strPtr("patient-1"), tc.in)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected ValidationError on %s, got %v", tc.field, err)
			}
		})
	}

	list, err := svc.ListForDoctor(ctx, "doctor-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("rejected treatments must not be stored, got %d", len(list))
	}
}

func TestTreatmentService_DeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tracker := newFakeTracker()
	svc := newTreatmentService(env, tracker)

	treatment, gen, err := svc.Create(ctx, "doctor-1", strPtr("patient-1"), TreatmentInput{
		Name:        "Angine",
		Medications: []MedicationInput{validInput("08:00"), validInput("12:00", "18:00")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.Reminders) != 3 {
		t.Fatalf("expected 3 reminders, got %d", len(gen.Reminders))
	}

	got, err := svc.Get(ctx, treatment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Medications) != 2 {
		t.Fatalf("expected 2 medications, got %d", len(got.Medications))
	}

	if err := svc.Delete(ctx, treatment.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, treatment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, med := range treatment.Medications {
		if _, err := env.medRepo.FindByID(ctx, med.ID); err == nil {
			t.Fatalf("medication %s survived", med.ID)
		}
		if _, ok := tracker.get(med.ID); ok {
			t.Fatalf("medication %s still tracked", med.ID)
		}
	}
	list, err := env.reminders.ListForPatient(ctx, "patient-1")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected reminders to be gone, got %d, %v", len(list), err)
	}

	if err := svc.Delete(ctx, treatment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTreatmentService_UpdateBindsPatient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tracker := newFakeTracker()
	svc := newTreatmentService(env, tracker)

	treatment, _, err := svc.Create(ctx, "doctor-1", nil, TreatmentInput{
		Name:        "Suivi",
		Notes:       "repos",
		Medications: []MedicationInput{validInput("08:00", "20:00")},
	})
	if err != nil {
		t.Fatal(err)
	}
	medID := treatment.Medications[0].ID

	updated, gen, err := svc.Update(ctx, treatment.ID, strPtr("patient-1"), TreatmentInput{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PatientID == nil || *updated.PatientID != "patient-1" || updated.Name != "Suivi" || updated.Notes != "repos" {
		t.Fatalf("unexpected treatment %+v", updated)
	}
	if len(updated.Medications) != 1 || updated.Medications[0].ID != medID {
		t.Fatalf("medications should be kept, got %+v", updated.Medications)
	}
	if p := updated.Medications[0].PatientID; p == nil || *p != "patient-1" {
		t.Fatalf("medication not bound to patient: %v", p)
	}
	if len(gen.Reminders) != 2 {
		t.Fatalf("expected 2 reminders once bound, got %d", len(gen.Reminders))
	}

	// Binding the same owner again generates nothing new.
	_, gen, err = svc.Update(ctx, treatment.ID, strPtr("patient-1"), TreatmentInput{Name: "Suivi bis"})
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.Reminders) != 0 {
		t.Fatalf("expected no generation without a change of owner, got %d", len(gen.Reminders))
	}

	list, err := svc.ListForPatient(ctx, "doctor-1", "patient-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Suivi bis" {
		t.Fatalf("unexpected patient treatments %+v", list)
	}
	if other, err := svc.ListForPatient(ctx, "doctor-2", "patient-1"); err != nil || len(other) != 0 {
		t.Fatalf("another doctor must not see the treatment, got %d, %v", len(other), err)
	}
}

func TestTreatmentService_UpdateReplacesMedications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tracker := newFakeTracker()
	svc := newTreatmentService(env, tracker)

	treatment, _, err := svc.Create(ctx, "doctor-1", strPtr("patient-1"), TreatmentInput{
		Name:        "Angine",
		Medications: []MedicationInput{validInput("08:00")},
	})
	if err != nil {
		t.Fatal(err)
	}
	oldID := treatment.Medications[0].ID

	updated, gen, err := svc.Update(ctx, treatment.ID, nil, TreatmentInput{
		Medications: []MedicationInput{validInput("12:00", "9:30")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Medications) != 1 || updated.Medications[0].ID == oldID {
		t.Fatalf("expected a replacement medication, got %+v", updated.Medications)
	}
	if _, ok := tracker.get(oldID); ok {
		t.Fatalf("old medication still tracked")
	}
	if times, ok := tracker.get(updated.Medications[0].ID); !ok || len(times) != 2 {
		t.Fatalf("new medication not tracked: %v", times)
	}
	if _, err := env.medRepo.FindByID(ctx, oldID); err == nil {
		t.Fatalf("old medication survived")
	}
	if len(gen.Reminders) != 1 || gen.Reminders[0].TimeOfDay != "12:00" {
		t.Fatalf("expected one 12:00 reminder, got %+v", gen.Reminders)
	}
	if len(gen.Warnings) != 1 || !strings.Contains(gen.Warnings[0].Message, "9:30") {
		t.Fatalf("expected a warning naming 9:30, got %+v", gen.Warnings)
	}

	list, err := env.reminders.ListForPatient(ctx, "patient-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].MedicationID != updated.Medications[0].ID {
		t.Fatalf("old reminders should go with the old medication, got %+v", list)
	}
}

func TestTreatmentService_UpdateErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newTreatmentService(env, nil)

	if _, _, err := svc.Update(ctx, "missing", strPtr("patient-1"), TreatmentInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	treatment, _, err := svc.Create(ctx, "doctor-1", nil, TreatmentInput{
		Name:        "Suivi",
		Medications: []MedicationInput{validInput("08:00")},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = svc.Update(ctx, treatment.ID, nil, TreatmentInput{Medications: []MedicationInput{}})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "medicaments" {
		t.Fatalf("expected ValidationError on medicaments, got %v", err)
	}
}
