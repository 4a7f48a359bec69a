package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	acctsvc "github.com/Arianini/CSSECDV-MCO/internal/services/accounts"
	authsvc "github.com/Arianini/CSSECDV-MCO/internal/services/auth"
	"github.com/Arianini/CSSECDV-MCO/internal/transport/http/dto"
	httperrors "github.com/Arianini/CSSECDV-MCO/internal/transport/http/errors"
)

type AuthHandler struct {
	service *acctsvc.Service
}

func NewAuthHandler(service *acctsvc.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}

	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	account, err := h.service.Register(r.Context(), req.Username, req.Password, req.SecurityQuestion, req.SecurityAnswer, r.RemoteAddr)
	if err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, accountResponse(account))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}

	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.Login(r.Context(), req.Username, req.Password, r.RemoteAddr)
	if err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LoginResponse{
		AccessToken:   res.Token,
		ExpiresInSec:  maxInt64(0, int64(time.Until(res.TokenExpires).Seconds())),
		PreviousLogin: res.PreviousLogin,
		Me:            accountResponse(res.Account),
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	var req dto.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.AccountID, req.CurrentPassword, req.NewPassword, r.RemoteAddr); err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleAccountError(w http.ResponseWriter, err error) {
	var verr *acctsvc.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidation(w, verr.Violations)
	case errors.Is(err, acctsvc.ErrAccountLocked):
		writeUnauthorized(w, "ACCOUNT_LOCKED", err.Error())
	case errors.Is(err, acctsvc.ErrInvalidCredentials):
		writeUnauthorized(w, "UNAUTHORIZED", err.Error())
	case errors.Is(err, acctsvc.ErrUsernameTaken):
		writeConflict(w, "USERNAME_TAKEN", "username is already taken")
	case errors.Is(err, acctsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "insufficient role")
	case errors.Is(err, acctsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "account not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func accountResponse(account model.Account) dto.AccountResponse {
	var tags []string
	for _, tag := range account.ManagedTags {
		tags = append(tags, string(tag))
	}
	return dto.AccountResponse{
		ID:          account.ID,
		Username:    account.Username,
		Role:        string(account.Role),
		ManagedTags: tags,
		LastLogin:   account.LastLogin,
		CreatedAt:   account.CreatedAt,
	}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
