package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func validInput(times ...string) MedicationInput {
	return MedicationInput{
		StartDate:      day("2024-06-01"),
		EndDate:        day("2024-06-30"),
		Dosage:         "1 tablet",
		Frequency:      len(times),
		CommercialName: "Amoxil",
		Route:          "oral",
		Times:          times,
	}
}

func TestMedicationInput_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*MedicationInput)
		field string
	}{
		{"frequency larger than times", func(in *MedicationInput) { in.Frequency = 2; in.Times = []string{"08:00"} }, "horaires"},
		{"frequency smaller than times", func(in *MedicationInput) { in.Frequency = 1; in.Times = []string{"08:00", "20:00"} }, "horaires"},
		{"zero frequency", func(in *MedicationInput) { in.Frequency = 0; in.Times = nil }, "frequence"},
		{"window reversed", func(in *MedicationInput) { in.EndDate = day("2024-05-01") }, "dateFin"},
		{"missing start", func(in *MedicationInput) { in.StartDate = day("0001-01-01") }, "dateDebut"},
		{"missing name", func(in *MedicationInput) { in.CommercialName = " " }, "nomCommercial"},
		{"missing dosage", func(in *MedicationInput) { in.Dosage = "" }, "dosage"},
		{"missing route", func(in *MedicationInput) { in.Route = "" }, "voieAdministration"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput("08:00")
			tc.edit(&in)
			err := in.Validate("")
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, verr.Field)
			}
		})
	}

	if err := validInput("08:00", "20:00").Validate(""); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestMedicationService_CreateRejectsCountMismatch(t *testing.T) {
	env := newTestEnv(t)
	tracker := newFakeTracker()
	svc := NewMedicationService(env.medRepo, tracker, zerolog.Nop())

	in := validInput("08:00")
	in.Frequency = 2
	_, err := svc.Create(context.Background(), strPtr("patient-1"), in)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "horaires" {
		t.Fatalf("expected ValidationError on horaires, got %v", err)
	}

	meds, err := svc.ListForPatient(context.Background(), "patient-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(meds) != 0 {
		t.Fatalf("nothing should be stored, got %d medications", len(meds))
	}
	if len(tracker.times) != 0 {
		t.Fatalf("nothing should be tracked, got %v", tracker.times)
	}
}

func TestMedicationService_CreateRejectsDuplicateTimes(t *testing.T) {
	env := newTestEnv(t)
	tracker := newFakeTracker()
	svc := NewMedicationService(env.medRepo, tracker, zerolog.Nop())

	for _, times := range [][]string{{"08:00", "08:00"}, {"08:00", " 08:00"}} {
		_, err := svc.Create(context.Background(), strPtr("patient-1"), validInput(times...))
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "horaires" || !strings.Contains(verr.Message, "08:00") {
			t.Fatalf("%q: expected ValidationError naming 08:00 on horaires, got %v", times, err)
		}
	}

	meds, err := svc.ListForPatient(context.Background(), "patient-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(meds) != 0 || len(tracker.times) != 0 {
		t.Fatalf("nothing should be stored or tracked, got %d medications", len(meds))
	}
}

func TestMedicationService_UpdateRetracksTimes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tracker := newFakeTracker()
	svc := NewMedicationService(env.medRepo, tracker, zerolog.Nop())

	med, err := svc.Create(ctx, strPtr("patient-1"), validInput("08:00", "20:00"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.reminders.Materialize(ctx, med, mustTime(t, "08:00"), at("2024-06-10T08:00")); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, med.ID, validInput("09:00"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := updated.DailyTimes(); len(got) != 1 || got[0] != "09:00" {
		t.Fatalf("unexpected times %v", got)
	}
	if got := len(updated.ReminderIDs()); got != 1 {
		t.Fatalf("existing reminders must survive an update, got %d", got)
	}
	if times, _ := tracker.get(med.ID); len(times) != 1 || times[0] != "09:00" {
		t.Fatalf("tracker not updated: %v", times)
	}

	if _, err := svc.Update(ctx, "missing", validInput("09:00")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMedicationService_DeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tracker := newFakeTracker()
	svc := NewMedicationService(env.medRepo, tracker, zerolog.Nop())

	med, err := svc.Create(ctx, strPtr("patient-1"), validInput("08:00", "20:00"))
	if err != nil {
		t.Fatal(err)
	}
	for _, now := range []string{"2024-06-10T08:00", "2024-06-11T08:00"} {
		for _, raw := range []string{"08:00", "20:00"} {
			if _, err := env.reminders.Materialize(ctx, med, mustTime(t, raw), at(now)); err != nil {
				t.Fatal(err)
			}
		}
	}
	before, _ := env.reminderRepo.ListByMedication(ctx, med.ID)
	if len(before) != 4 {
		t.Fatalf("expected 4 reminders before delete, got %d", len(before))
	}

	if err := svc.Delete(ctx, med.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	after, err := env.reminderRepo.ListByMedication(ctx, med.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 0 {
		t.Fatalf("expected reminders to be gone, got %d", len(after))
	}
	list, err := env.reminders.ListForPatient(ctx, "patient-1")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no reminders for patient, got %d, %v", len(list), err)
	}
	if _, err := svc.Get(ctx, med.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected medication to be gone, got %v", err)
	}
	if _, ok := tracker.get(med.ID); ok {
		t.Fatal("expected medication to be untracked")
	}
	if err := svc.Delete(ctx, med.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
