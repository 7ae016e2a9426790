package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryDosing is the only reminder category for now.
const CategoryDosing = "dosing"

// Reminder tells a patient to take a medication at one daily time.
// At most one row exists per medication, time of day and calendar day.
type Reminder struct {
	ID           string `gorm:"primaryKey;size:36"`
	Content      string
	Category     string      `gorm:"size:32"`
	TimeOfDay    string      `gorm:"size:5;uniqueIndex:idx_reminder_once"`
	Day          string      `gorm:"size:10;uniqueIndex:idx_reminder_once"`
	Read         bool        `gorm:"default:false"`
	CreatedAt    time.Time   `gorm:"index"`
	PatientID    string      `gorm:"size:64;index;not null"`
	MedicationID string      `gorm:"size:36;not null;uniqueIndex:idx_reminder_once"`
	Medication   *Medication `gorm:"foreignKey:MedicationID"`
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
