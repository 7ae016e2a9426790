package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"med-reminder/internal/model"
)

// MedicationRepository handles persistence of dosing plans and their daily times.
type MedicationRepository struct {
	db *gorm.DB
}

func NewMedicationRepository(db *gorm.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

func orderedTimes(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func orderedReminders(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// Create stores the medication together with its daily times.
func (r *MedicationRepository) Create(ctx context.Context, med *model.Medication) error {
	if err := r.db.WithContext(ctx).Create(med).Error; err != nil {
		return fmt.Errorf("create medication: %w", err)
	}
	return nil
}

// FindByID loads a medication with its times and reminder links.
func (r *MedicationRepository) FindByID(ctx context.Context, id string) (*model.Medication, error) {
	var med model.Medication
	err := r.db.WithContext(ctx).
		Preload("Times", orderedTimes).
		Preload("Reminders", orderedReminders).
		First(&med, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &med, nil
}

func (r *MedicationRepository) ListByPatient(ctx context.Context, patientID string) ([]model.Medication, error) {
	var meds []model.Medication
	if err := r.db.WithContext(ctx).
		Preload("Times", orderedTimes).
		Preload("Reminders", orderedReminders).
		Where("patient_id = ?", patientID).
		Order("created_at ASC").
		Find(&meds).Error; err != nil {
		return nil, err
	}
	return meds, nil
}

// ListAll returns every medication with its times. Used to arm the scheduler.
func (r *MedicationRepository) ListAll(ctx context.Context) ([]model.Medication, error) {
	var meds []model.Medication
	if err := r.db.WithContext(ctx).Preload("Times", orderedTimes).Find(&meds).Error; err != nil {
		return nil, err
	}
	return meds, nil
}

// ListByTimeOfDay returns medications whose daily times contain timeOfDay.
func (r *MedicationRepository) ListByTimeOfDay(ctx context.Context, timeOfDay string) ([]model.Medication, error) {
	var meds []model.Medication
	sub := r.db.Model(&model.MedicationTime{}).Select("medication_id").Where("time_of_day = ?", timeOfDay)
	if err := r.db.WithContext(ctx).
		Preload("Times", orderedTimes).
		Where("id IN (?)", sub).
		Find(&meds).Error; err != nil {
		return nil, err
	}
	return meds, nil
}

// Update rewrites the dosing fields and replaces the daily times in one transaction.
// Reminder links are left untouched.
func (r *MedicationRepository) Update(ctx context.Context, med *model.Medication) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Medication{}).Where("id = ?", med.ID).Updates(map[string]interface{}{
			"patient_id":      med.PatientID,
			"start_date":      med.StartDate,
			"end_date":        med.EndDate,
			"dosage":          med.Dosage,
			"frequency":       med.Frequency,
			"commercial_name": med.CommercialName,
			"route":           med.Route,
		})
		if res.Error != nil {
			return fmt.Errorf("update medication: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("medication_id = ?", med.ID).Delete(&model.MedicationTime{}).Error; err != nil {
			return fmt.Errorf("clear medication times: %w", err)
		}
		for i := range med.Times {
			med.Times[i].ID = 0
			med.Times[i].MedicationID = med.ID
		}
		if len(med.Times) > 0 {
			if err := tx.Create(&med.Times).Error; err != nil {
				return fmt.Errorf("store medication times: %w", err)
			}
		}
		return nil
	})
}

// Delete removes the medication, its daily times and every reminder it produced.
func (r *MedicationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := deleteMedications(tx, []string{id})
		if err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// deleteMedications cascades explicitly so the result does not depend on the
// driver enforcing foreign keys.
func deleteMedications(tx *gorm.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := tx.Where("medication_id IN ?", ids).Delete(&model.Reminder{}).Error; err != nil {
		return 0, fmt.Errorf("delete reminders: %w", err)
	}
	if err := tx.Where("medication_id IN ?", ids).Delete(&model.MedicationTime{}).Error; err != nil {
		return 0, fmt.Errorf("delete medication times: %w", err)
	}
	res := tx.Where("id IN ?", ids).Delete(&model.Medication{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete medications: %w", res.Error)
	}
	return res.RowsAffected, nil
}
