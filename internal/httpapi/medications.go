package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"med-reminder/internal/model"
	"med-reminder/internal/service"
)

// medicationRequest follows the field names of the medication entry contract.
type medicationRequest struct {
	DateDebut          string   `json:"dateDebut"`
	DateFin            string   `json:"dateFin"`
	Dosage             string   `json:"dosage"`
	Frequence          int      `json:"frequence"`
	NomCommercial      string   `json:"nomCommercial"`
	VoieAdministration string   `json:"voieAdministration"`
	Horaires           []string `json:"horaires"`
}

type medicationResponse struct {
	ID                 string   `json:"id"`
	DateDebut          string   `json:"dateDebut"`
	DateFin            string   `json:"dateFin"`
	Dosage             string   `json:"dosage"`
	Frequence          int      `json:"frequence"`
	NomCommercial      string   `json:"nomCommercial"`
	VoieAdministration string   `json:"voieAdministration"`
	Horaires           []string `json:"horaires"`
	Patient            *string  `json:"patient,omitempty"`
	Treatment          *string  `json:"treatment,omitempty"`
	ReminderIDs        []string `json:"reminderIds"`
}

func (req medicationRequest) toInput(field string) (service.MedicationInput, error) {
	start, err := parseDate(field+"dateDebut", req.DateDebut)
	if err != nil {
		return service.MedicationInput{}, err
	}
	end, err := parseDate(field+"dateFin", req.DateFin)
	if err != nil {
		return service.MedicationInput{}, err
	}
	return service.MedicationInput{
		StartDate:      start,
		EndDate:        end,
		Dosage:         req.Dosage,
		Frequency:      req.Frequence,
		CommercialName: req.NomCommercial,
		Route:          req.VoieAdministration,
		Times:          req.Horaires,
	}, nil
}

// parseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &service.ValidationError{Field: field, Message: "is required"}
	}
	if t, err := time.Parse(model.DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, &service.ValidationError{Field: field, Message: "must be YYYY-MM-DD"}
}

func toMedicationResponse(m *model.Medication) medicationResponse {
	return medicationResponse{
		ID:                 m.ID,
		DateDebut:          m.StartDate.UTC().Format(model.DateLayout),
		DateFin:            m.EndDate.UTC().Format(model.DateLayout),
		Dosage:             m.Dosage,
		Frequence:          m.Frequency,
		NomCommercial:      m.CommercialName,
		VoieAdministration: m.Route,
		Horaires:           m.DailyTimes(),
		Patient:            m.PatientID,
		Treatment:          m.TreatmentID,
		ReminderIDs:        m.ReminderIDs(),
	}
}

func (a *api) createOwnMedication(w http.ResponseWriter, r *http.Request) {
	caller, _ := Caller(r.Context())
	a.createMedication(w, r, caller)
}

func (a *api) createPatientMedication(w http.ResponseWriter, r *http.Request) {
	a.createMedication(w, r, chi.URLParam(r, "patientID"))
}

func (a *api) createMedication(w http.ResponseWriter, r *http.Request, patientID string) {
	var req medicationRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	in, err := req.toInput("")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	med, err := a.medications.Create(r.Context(), &patientID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMedicationResponse(med))
}

func (a *api) listOwnMedications(w http.ResponseWriter, r *http.Request) {
	caller, _ := Caller(r.Context())
	a.listMedications(w, r, caller)
}

func (a *api) listPatientMedications(w http.ResponseWriter, r *http.Request) {
	a.listMedications(w, r, chi.URLParam(r, "patientID"))
}

func (a *api) listMedications(w http.ResponseWriter, r *http.Request, patientID string) {
	meds, err := a.medications.ListForPatient(r.Context(), patientID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if len(meds) == 0 {
		writeMessage(w, http.StatusOK, "no medications found")
		return
	}
	out := make([]medicationResponse, 0, len(meds))
	for i := range meds {
		out = append(out, toMedicationResponse(&meds[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getMedication(w http.ResponseWriter, r *http.Request) {
	med, err := a.medications.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicationResponse(med))
}

func (a *api) updateMedication(w http.ResponseWriter, r *http.Request) {
	var req medicationRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	in, err := req.toInput("")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	med, err := a.medications.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicationResponse(med))
}

func (a *api) deleteMedication(w http.ResponseWriter, r *http.Request) {
	if err := a.medications.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "medication deleted")
}
