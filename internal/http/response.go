package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"citymap-backend-go/internal/services"
)

type ErrorResponse struct {
	Message         string     `json:"message"`
	Kind            string     `json:"kind,omitempty"`
	ExistingPointID string     `json:"existingPointId,omitempty"`
	QuotaClass      string     `json:"quotaClass,omitempty"`
	BannedUntil     *time.Time `json:"bannedUntil,omitempty"`
	Permanent       bool       `json:"permanent,omitempty"`
	Restriction     string     `json:"restriction,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError renders engine errors with their actionable details.
// Anything else is a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var serr services.ServiceError
	if !errors.As(err, &serr) {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, serr.Status, ErrorResponse{
		Message:         serr.Message,
		Kind:            string(serr.Kind),
		ExistingPointID: serr.ExistingPointID,
		QuotaClass:      string(serr.QuotaClass),
		BannedUntil:     serr.BannedUntil,
		Permanent:       serr.Permanent,
		Restriction:     string(serr.Restriction),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid request body", Kind: string(services.KindValidation)})
		return false
	}
	return true
}
