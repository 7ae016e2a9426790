package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"med-reminder/internal/model"
	"med-reminder/internal/service"
)

type treatmentRequest struct {
	Nom          string              `json:"nom"`
	Observations string              `json:"observations"`
	Medicaments  []medicationRequest `json:"medicaments"`
}

type treatmentUpdateRequest struct {
	Nom          string              `json:"nom"`
	Observations string              `json:"observations"`
	Patient      *string             `json:"patient"`
	Medicaments  []medicationRequest `json:"medicaments"`
}

type treatmentResponse struct {
	ID           string               `json:"id"`
	Nom          string               `json:"nom"`
	Observations string               `json:"observations,omitempty"`
	Patient      *string              `json:"patient,omitempty"`
	Medecin      string               `json:"medecin"`
	Medicaments  []medicationResponse `json:"medicaments"`
	Reminders    []reminderResponse   `json:"reminders,omitempty"`
	Warnings     []messageResponse    `json:"warnings,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
}

func toTreatmentResponse(t *model.Treatment) treatmentResponse {
	out := treatmentResponse{
		ID:           t.ID,
		Nom:          t.Name,
		Observations: t.Notes,
		Patient:      t.PatientID,
		Medecin:      t.DoctorID,
		Medicaments:  make([]medicationResponse, 0, len(t.Medications)),
		CreatedAt:    t.CreatedAt,
	}
	for i := range t.Medications {
		out.Medicaments = append(out.Medicaments, toMedicationResponse(&t.Medications[i]))
	}
	return out
}

func (a *api) createTreatment(w http.ResponseWriter, r *http.Request) {
	a.recordTreatment(w, r, nil)
}

func (a *api) createPatientTreatment(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	a.recordTreatment(w, r, &patientID)
}

func (a *api) recordTreatment(w http.ResponseWriter, r *http.Request, patientID *string) {
	doctorID, _ := Caller(r.Context())

	var req treatmentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	meds, err := toMedicationInputs(req.Medicaments)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	treatment, gen, err := a.treatments.Create(r.Context(), doctorID, patientID, service.TreatmentInput{
		Name:        req.Nom,
		Notes:       req.Observations,
		Medications: meds,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withGeneration(treatment, gen))
}

func (a *api) updateTreatment(w http.ResponseWriter, r *http.Request) {
	var req treatmentUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	meds, err := toMedicationInputs(req.Medicaments)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	treatment, gen, err := a.treatments.Update(r.Context(), chi.URLParam(r, "id"), req.Patient, service.TreatmentInput{
		Name:        req.Nom,
		Notes:       req.Observations,
		Medications: meds,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withGeneration(treatment, gen))
}

// toMedicationInputs keeps nil for an absent list so updates can tell it from an empty one.
func toMedicationInputs(reqs []medicationRequest) ([]service.MedicationInput, error) {
	if reqs == nil {
		return nil, nil
	}
	out := make([]service.MedicationInput, 0, len(reqs))
	for i, m := range reqs {
		in, err := m.toInput(fmt.Sprintf("medicaments[%d].", i))
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func withGeneration(t *model.Treatment, gen service.Generation) treatmentResponse {
	out := toTreatmentResponse(t)
	out.Reminders = toReminderResponses(gen.Reminders)
	out.Warnings = toWarnings(gen.Warnings)
	return out
}

func (a *api) listTreatments(w http.ResponseWriter, r *http.Request) {
	doctorID, _ := Caller(r.Context())
	treatments, err := a.treatments.ListForDoctor(r.Context(), doctorID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeTreatments(w, treatments)
}

func (a *api) listPatientTreatments(w http.ResponseWriter, r *http.Request) {
	doctorID, _ := Caller(r.Context())
	treatments, err := a.treatments.ListForPatient(r.Context(), doctorID, chi.URLParam(r, "patientID"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeTreatments(w, treatments)
}

func writeTreatments(w http.ResponseWriter, treatments []model.Treatment) {
	if len(treatments) == 0 {
		writeMessage(w, http.StatusOK, "no treatments found")
		return
	}
	out := make([]treatmentResponse, 0, len(treatments))
	for i := range treatments {
		out = append(out, toTreatmentResponse(&treatments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getTreatment(w http.ResponseWriter, r *http.Request) {
	treatment, err := a.treatments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTreatmentResponse(treatment))
}

func (a *api) deleteTreatment(w http.ResponseWriter, r *http.Request) {
	if err := a.treatments.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "treatment and medications deleted")
}
