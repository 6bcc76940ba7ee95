package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/terangapay/backoffice/internal/app"
	"github.com/terangapay/backoffice/internal/domain"
)

// TransactionHandler exposes the transaction ledger over HTTP.
type TransactionHandler struct {
	service *app.TransactionService
	logger  *zap.Logger
}

// NewTransactionHandler creates a new handler for transaction endpoints.
func NewTransactionHandler(service *app.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, logger: logger}
}

type depositRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"`
}

// Deposit handles POST /transactions/deposit.
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	txn, err := h.service.Deposit(r.Context(), req.AccountNumber, req.Amount)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, txn)
}

// List handles GET /transactions with optional accountNumber, status and
// free-text q filters.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.TransactionFilter{
		AccountNumber: query.Get("accountNumber"),
		Status:        query.Get("status"),
		Query:         query.Get("q"),
	}
	txns, err := h.service.Search(r.Context(), filter)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, txns)
}

type cancelRequest struct {
	Reference     string `json:"reference"`
	Reason        string `json:"reason"`
	AccountNumber string `json:"account_number"`
}

// Cancel handles POST /transactions/cancel (agent-only).
func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := SessionFromContext(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "access denied: token missing")
		return
	}

	txn, err := h.service.Cancel(r.Context(), app.CancelInput{
		Reference:     req.Reference,
		Reason:        req.Reason,
		AccountNumber: req.AccountNumber,
		AgentID:       claims.Subject,
		Role:          claims.Role,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}
