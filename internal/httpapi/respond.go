package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"med-reminder/internal/service"
)

type messageResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func toWarnings(warnings []*service.ValidationError) []messageResponse {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]messageResponse, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, messageResponse{Message: w.Message, Field: w.Field})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps the service error taxonomy onto HTTP statuses.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: verr.Message, Field: verr.Field})
	case errors.Is(err, service.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "forbidden")
	default:
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return &service.ValidationError{Field: "body", Message: "invalid json"}
	}
	return nil
}
