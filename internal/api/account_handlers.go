package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/terangapay/backoffice/internal/app"
	"github.com/terangapay/backoffice/internal/domain"
)

// AccountHandler exposes the account registry over HTTP.
type AccountHandler struct {
	service *app.AccountService
	limiter *app.LoginRateLimiter
	logger  *zap.Logger
}

// NewAccountHandler creates a new handler for account endpoints.
func NewAccountHandler(service *app.AccountService, limiter *app.LoginRateLimiter, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{service: service, limiter: limiter, logger: logger}
}

// Register handles POST /register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input app.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.Register(r.Context(), input)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Account *domain.Account `json:"account"`
}

// Login handles POST /login, rate limited per client IP and email.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	allowed, retryAfter, err := h.limiter.Allow(r.Context(), clientIP(r)+":"+req.Email)
	if err != nil {
		h.logger.Warn("login rate limiter unavailable", zap.Error(err))
	}
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		respondError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	account, token, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token, Account: account})
}

// Logout handles POST /logout. Sessions are stateless: the client simply
// discards its token, so this is an acknowledgement only.
func (h *AccountHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Ping handles GET /ping: authenticated liveness check that doubles as the
// sliding-session refresh trigger.
func (h *AccountHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "ts": time.Now().UnixMilli()})
}

// List handles GET /accounts. Archived accounts are excluded unless
// ?includeArchived=1 (or true) is set.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	include := r.URL.Query().Get("includeArchived")
	accounts, err := h.service.List(r.Context(), include == "1" || include == "true")
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

// Edit handles PUT /accounts/{id}.
func (h *AccountHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var input app.EditInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.Edit(r.Context(), sessionRole(r.Context()), chi.URLParam(r, "id"), input)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

type idListRequest struct {
	IDs []string `json:"ids"`
}

type modifiedResponse struct {
	Modified int64 `json:"modified"`
}

func (h *AccountHandler) bulkStatus(w http.ResponseWriter, r *http.Request, status domain.Status) {
	var req idListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	modified, err := h.service.BulkSetStatus(r.Context(), req.IDs, status)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, modifiedResponse{Modified: modified})
}

// Block handles PATCH /accounts/block.
func (h *AccountHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.bulkStatus(w, r, domain.StatusBlocked)
}

// Unblock handles PATCH /accounts/unblock.
func (h *AccountHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.bulkStatus(w, r, domain.StatusActive)
}

// BulkArchive handles DELETE /accounts/bulk-archive.
func (h *AccountHandler) BulkArchive(w http.ResponseWriter, r *http.Request) {
	var req idListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	modified, err := h.service.BulkArchive(r.Context(), req.IDs)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, modifiedResponse{Modified: modified})
}

// Archive handles DELETE /accounts/{id}. Archiving twice is a no-op success.
func (h *AccountHandler) Archive(w http.ResponseWriter, r *http.Request) {
	account, changed, err := h.service.Archive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	message := "account archived"
	if !changed {
		message = "account already archived"
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": message, "account": account})
}

// UpdateAvatar handles POST /accounts/{id}/avatar. The upload is a
// multipart form with an "avatar" file part, limited to 2 MB and to
// jpeg/png/webp, detected by content sniffing.
func (h *AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxAvatarBytes+4096)
	if err := r.ParseMultipartForm(app.MaxAvatarBytes); err != nil {
		respondError(w, http.StatusBadRequest, "file too large (max 2 MB) or malformed upload")
		return
	}
	file, _, err := r.FormFile("avatar")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file sent")
		return
	}
	defer file.Close()

	contentType, reader, err := sniffContentType(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	account, err := h.service.UpdateAvatar(r.Context(), chi.URLParam(r, "id"), contentType, reader)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// sniffContentType detects the upload's media type from its first bytes
// and returns a reader replaying the whole stream.
func sniffContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
