package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"med-reminder/internal/model"
)

type reminderResponse struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	Category      string    `json:"category"`
	TimeOfDay     string    `json:"timeOfDay"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
	Patient       string    `json:"patient"`
	Medication    string    `json:"medication"`
	NomCommercial string    `json:"nomCommercial,omitempty"`
	Dosage        string    `json:"dosage,omitempty"`
}

func toReminderResponse(r *model.Reminder) reminderResponse {
	out := reminderResponse{
		ID:         r.ID,
		Content:    r.Content,
		Category:   r.Category,
		TimeOfDay:  r.TimeOfDay,
		Read:       r.Read,
		CreatedAt:  r.CreatedAt,
		Patient:    r.PatientID,
		Medication: r.MedicationID,
	}
	if r.Medication != nil {
		out.NomCommercial = r.Medication.CommercialName
		out.Dosage = r.Medication.Dosage
	}
	return out
}

func toReminderResponses(reminders []model.Reminder) []reminderResponse {
	out := make([]reminderResponse, 0, len(reminders))
	for i := range reminders {
		out = append(out, toReminderResponse(&reminders[i]))
	}
	return out
}

type generationResponse struct {
	Reminders []reminderResponse `json:"reminders"`
	Warnings  []messageResponse  `json:"warnings,omitempty"`
}

// generateReminders answers 201 with the reminders created now, possibly none,
// and a warning for each daily time that produced nothing.
func (a *api) generateReminders(w http.ResponseWriter, r *http.Request) {
	gen, err := a.reminders.GenerateForMedication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, generationResponse{
		Reminders: toReminderResponses(gen.Reminders),
		Warnings:  toWarnings(gen.Warnings),
	})
}

func (a *api) listReminders(w http.ResponseWriter, r *http.Request) {
	caller, _ := Caller(r.Context())
	reminders, err := a.reminders.ListForPatient(r.Context(), caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if len(reminders) == 0 {
		writeMessage(w, http.StatusOK, "no reminders found")
		return
	}
	writeJSON(w, http.StatusOK, toReminderResponses(reminders))
}

func (a *api) markReminderRead(w http.ResponseWriter, r *http.Request) {
	caller, _ := Caller(r.Context())
	reminder, err := a.reminders.MarkRead(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderResponse(reminder))
}
