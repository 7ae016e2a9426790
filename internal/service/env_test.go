package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"med-reminder/internal/model"
	"med-reminder/internal/repository"
)

type testEnv struct {
	db           *gorm.DB
	medRepo      *repository.MedicationRepository
	reminderRepo *repository.ReminderRepository
	treatRepo    *repository.TreatmentRepository
	reminders    *ReminderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	medRepo := repository.NewMedicationRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	return &testEnv{
		db:           db,
		medRepo:      medRepo,
		reminderRepo: reminderRepo,
		treatRepo:    repository.NewTreatmentRepository(db),
		reminders:    NewReminderService(medRepo, reminderRepo, time.UTC, zerolog.Nop()),
	}
}

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }

func (e *testEnv) createMedication(t *testing.T, patientID *string, start, end string, times ...string) *model.Medication {
	t.Helper()
	svc := NewMedicationService(e.medRepo, nil, zerolog.Nop())
	med, err := svc.Create(context.Background(), patientID, MedicationInput{
		StartDate:      day(start),
		EndDate:        day(end),
		Dosage:         "500 mg",
		Frequency:      len(times),
		CommercialName: "Doliprane",
		Route:          "oral",
		Times:          times,
	})
	if err != nil {
		t.Fatalf("create medication: %v", err)
	}
	return med
}

// fakeTracker records the last known times per medication.
type fakeTracker struct {
	mu    sync.Mutex
	times map[string][]string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{times: map[string][]string{}}
}

func (f *fakeTracker) Track(id string, times []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.times[id] = append([]string(nil), times...)
}

func (f *fakeTracker) Untrack(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.times, id)
}

func (f *fakeTracker) get(id string) ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.times[id]
	return v, ok
}
