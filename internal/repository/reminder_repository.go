package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"med-reminder/internal/model"
)

// ReminderRepository stores materialized reminders.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// CreateOnce inserts the reminder unless one already exists for the same
// medication, time of day and day. The insert is also the link back to the
// medication, so there is no second write that could be lost. It reports
// whether a row was created; gorm.ErrRecordNotFound means the medication is gone.
func (r *ReminderRepository) CreateOnce(ctx context.Context, reminder *model.Reminder) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Medication{}).Where("id = ?", reminder.MedicationID).Count(&count).Error; err != nil {
			return fmt.Errorf("check medication: %w", err)
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "medication_id"}, {Name: "time_of_day"}, {Name: "day"}},
			DoNothing: true,
		}).Omit("Medication").Create(reminder)
		if res.Error != nil {
			return fmt.Errorf("create reminder: %w", res.Error)
		}
		created = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// ListByPatient returns the patient's reminders, newest first, with their medication.
func (r *ReminderRepository) ListByPatient(ctx context.Context, patientID string) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).
		Preload("Medication").
		Where("patient_id = ?", patientID).
		Order("created_at DESC, id DESC").
		Find(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *ReminderRepository) ListByMedication(ctx context.Context, medicationID string) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).
		Where("medication_id = ?", medicationID).
		Order("created_at ASC, id ASC").
		Find(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *ReminderRepository) FindByID(ctx context.Context, id string) (*model.Reminder, error) {
	var reminder model.Reminder
	if err := r.db.WithContext(ctx).Preload("Medication").First(&reminder, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reminder, nil
}

// MarkRead flips the read flag. Nothing else on a reminder is mutable.
func (r *ReminderRepository) MarkRead(ctx context.Context, reminder *model.Reminder) error {
	if err := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ?", reminder.ID).
		Update("read", true).Error; err != nil {
		return fmt.Errorf("mark reminder read: %w", err)
	}
	reminder.Read = true
	return nil
}
