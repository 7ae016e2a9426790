package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"med-reminder/internal/service"
)

type Options struct {
	Medications *service.MedicationService
	Treatments  *service.TreatmentService
	Reminders   *service.ReminderService
	Logger      zerolog.Logger

	// Empty selects dev identity via the X-User-ID header.
	JWTSecret string
}

type api struct {
	medications *service.MedicationService
	treatments  *service.TreatmentService
	reminders   *service.ReminderService
	log         zerolog.Logger
}

func NewRouter(opts Options) http.Handler {
	a := &api{
		medications: opts.Medications,
		treatments:  opts.Treatments,
		reminders:   opts.Reminders,
		log:         opts.Logger.With().Str("component", "http").Logger(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(a.log))
	r.Use(Recovery(a.log))
	r.Use(Identity(opts.JWTSecret))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireCaller)

		r.Route("/medications", func(mr chi.Router) {
			mr.Post("/", a.createOwnMedication)
			mr.Get("/", a.listOwnMedications)
			mr.Get("/{id}", a.getMedication)
			mr.Put("/{id}", a.updateMedication)
			mr.Delete("/{id}", a.deleteMedication)
			mr.Post("/{id}/reminders/generate", a.generateReminders)
		})

		r.Route("/patients/{patientID}", func(pr chi.Router) {
			pr.Post("/medications", a.createPatientMedication)
			pr.Get("/medications", a.listPatientMedications)
			pr.Post("/treatments", a.createPatientTreatment)
			pr.Get("/treatments", a.listPatientTreatments)
		})

		r.Route("/treatments", func(tr chi.Router) {
			tr.Post("/", a.createTreatment)
			tr.Get("/", a.listTreatments)
			tr.Get("/{id}", a.getTreatment)
			tr.Put("/{id}", a.updateTreatment)
			tr.Delete("/{id}", a.deleteTreatment)
		})

		r.Route("/reminders", func(rr chi.Router) {
			rr.Get("/", a.listReminders)
			rr.Put("/{id}/read", a.markReminderRead)
		})
	})

	return r
}

func requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := Caller(r.Context()); !ok {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
