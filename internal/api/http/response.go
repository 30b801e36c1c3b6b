package http

import (
	"encoding/json"
	"net/http"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
)

// statusFor maps an error kind to the HTTP status callers see.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case "":
		return http.StatusOK
	case domain.ErrorKindValidation:
		return http.StatusBadRequest
	case domain.ErrorKindNotAuthorized:
		return http.StatusForbidden
	case domain.ErrorKindNotFound:
		return http.StatusNotFound
	case domain.ErrorKindAvailabilityConflict, domain.ErrorKindInvalidTransition:
		return http.StatusConflict
	case domain.ErrorKindPaymentFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusServiceUnavailable
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

// writeResult answers a booking action with the discriminated result.
func writeResult(w http.ResponseWriter, b *domain.Booking, err error) {
	writeJSON(w, statusFor(err), domain.NewResult(b, err))
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), domain.NewResult(nil, err))
}

func writeUnauthenticated(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, domain.Result{
		ErrorKind: domain.ErrorKindNotAuthorized,
		Message:   msg,
	})
}
