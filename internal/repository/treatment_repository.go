package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"med-reminder/internal/model"
)

// TreatmentRepository manages treatments and the medications they own.
type TreatmentRepository struct {
	db *gorm.DB
}

func NewTreatmentRepository(db *gorm.DB) *TreatmentRepository {
	return &TreatmentRepository{db: db}
}

// Create stores the treatment, its medications and their daily times in one transaction.
func (r *TreatmentRepository) Create(ctx context.Context, treatment *model.Treatment) error {
	if err := r.db.WithContext(ctx).Create(treatment).Error; err != nil {
		return fmt.Errorf("create treatment: %w", err)
	}
	return nil
}

func (r *TreatmentRepository) FindByID(ctx context.Context, id string) (*model.Treatment, error) {
	var treatment model.Treatment
	if err := r.db.WithContext(ctx).
		Preload("Medications").
		Preload("Medications.Times", orderedTimes).
		First(&treatment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &treatment, nil
}

func (r *TreatmentRepository) ListByDoctor(ctx context.Context, doctorID string) ([]model.Treatment, error) {
	var treatments []model.Treatment
	if err := r.db.WithContext(ctx).
		Preload("Medications").
		Preload("Medications.Times", orderedTimes).
		Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Find(&treatments).Error; err != nil {
		return nil, err
	}
	return treatments, nil
}

// ListByPatient returns the treatments doctorID prescribed to patientID.
func (r *TreatmentRepository) ListByPatient(ctx context.Context, doctorID, patientID string) ([]model.Treatment, error) {
	var treatments []model.Treatment
	if err := r.db.WithContext(ctx).
		Preload("Medications").
		Preload("Medications.Times", orderedTimes).
		Where("doctor_id = ? AND patient_id = ?", doctorID, patientID).
		Order("created_at DESC").
		Find(&treatments).Error; err != nil {
		return nil, err
	}
	return treatments, nil
}

// Update rewrites the treatment fields and its patient owner in one
// transaction. A non-nil medications slice replaces the current medications,
// their daily times and reminders; otherwise the current medications follow
// the new owner. It returns the ids of the replaced medications.
func (r *TreatmentRepository) Update(ctx context.Context, treatment *model.Treatment, medications []model.Medication) ([]string, error) {
	var removed []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Treatment{}).Where("id = ?", treatment.ID).Updates(map[string]interface{}{
			"name":       treatment.Name,
			"notes":      treatment.Notes,
			"patient_id": treatment.PatientID,
		})
		if res.Error != nil {
			return fmt.Errorf("update treatment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if medications == nil {
			if err := tx.Model(&model.Medication{}).
				Where("treatment_id = ?", treatment.ID).
				Update("patient_id", treatment.PatientID).Error; err != nil {
				return fmt.Errorf("rebind medications: %w", err)
			}
			return nil
		}

		if err := tx.Model(&model.Medication{}).Where("treatment_id = ?", treatment.ID).Pluck("id", &removed).Error; err != nil {
			return fmt.Errorf("list treatment medications: %w", err)
		}
		if _, err := deleteMedications(tx, removed); err != nil {
			return err
		}
		for i := range medications {
			medications[i].TreatmentID = &treatment.ID
		}
		if len(medications) > 0 {
			if err := tx.Create(&medications).Error; err != nil {
				return fmt.Errorf("create medications: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Delete removes the treatment and cascades to its medications and reminders.
// It returns the ids of the removed medications.
func (r *TreatmentRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var medIDs []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var treatment model.Treatment
		if err := tx.First(&treatment, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Medication{}).Where("treatment_id = ?", id).Pluck("id", &medIDs).Error; err != nil {
			return fmt.Errorf("list treatment medications: %w", err)
		}
		if _, err := deleteMedications(tx, medIDs); err != nil {
			return err
		}
		if err := tx.Delete(&model.Treatment{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete treatment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return medIDs, nil
}
