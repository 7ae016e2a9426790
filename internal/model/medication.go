package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the wire and storage layout of calendar days.
const DateLayout = "2006-01-02"

// Medication is one dosing plan: a validity window plus a set of daily times.
type Medication struct {
	ID             string  `gorm:"primaryKey;size:36"`
	TreatmentID    *string `gorm:"index;size:36"`
	PatientID      *string `gorm:"index;size:64"`
	StartDate      time.Time
	EndDate        time.Time
	Dosage         string
	Frequency      int
	CommercialName string
	Route          string
	Times          []MedicationTime `gorm:"foreignKey:MedicationID;constraint:OnDelete:CASCADE"`
	Reminders      []Reminder       `gorm:"foreignKey:MedicationID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MedicationTime is one daily HH:MM entry of a medication.
type MedicationTime struct {
	ID           uint   `gorm:"primaryKey"`
	MedicationID string `gorm:"size:36;uniqueIndex:idx_medication_time"`
	TimeOfDay    string `gorm:"size:5;uniqueIndex:idx_medication_time;index"`
	Position     int
}

func (m *Medication) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// DailyTimes returns the stored HH:MM strings in entry order.
func (m *Medication) DailyTimes() []string {
	out := make([]string, 0, len(m.Times))
	for _, t := range m.Times {
		out = append(out, t.TimeOfDay)
	}
	return out
}

// ReminderIDs is derived from the reminder rows, oldest first.
func (m *Medication) ReminderIDs() []string {
	out := make([]string, 0, len(m.Reminders))
	for _, r := range m.Reminders {
		out = append(out, r.ID)
	}
	return out
}

// InWindow reports whether the calendar day of t (in loc) lies inside the
// inclusive validity window. Window bounds are stored as UTC midnights.
func (m *Medication) InWindow(t time.Time, loc *time.Location) bool {
	day := DayOf(t, loc)
	return day >= DayOf(m.StartDate, time.UTC) && day <= DayOf(m.EndDate, time.UTC)
}

// DayOf formats the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
