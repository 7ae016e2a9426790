package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Treatment groups the medications a clinician prescribes together.
type Treatment struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string
	Notes       string
	PatientID   *string      `gorm:"index;size:64"`
	DoctorID    string       `gorm:"index;size:64;not null"`
	Medications []Medication `gorm:"foreignKey:TreatmentID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Treatment) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
