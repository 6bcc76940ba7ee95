package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/terangapay/backoffice/internal/domain"
)

type errorResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Message: message})
}

// respondDomainError maps the error taxonomy onto HTTP statuses:
// validation 400, forbidden 403, not-found 404, conflicts 409, everything
// else a generic 500 with the detail logged server-side only.
func respondDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "operation not allowed for this account")
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDuplicateReference):
		respondError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
