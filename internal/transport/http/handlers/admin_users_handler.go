package handlers

import (
	"errors"
	"net/http"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	acctsvc "github.com/Arianini/CSSECDV-MCO/internal/services/accounts"
	authsvc "github.com/Arianini/CSSECDV-MCO/internal/services/auth"
	restrsvc "github.com/Arianini/CSSECDV-MCO/internal/services/restrictions"
	"github.com/Arianini/CSSECDV-MCO/internal/transport/http/dto"
	httperrors "github.com/Arianini/CSSECDV-MCO/internal/transport/http/errors"
)

// AdminUsersHandler carries the administrator account operations: bans,
// restrictions, role assignment and soft deletion. Managers restrict through
// the report workflow instead; this surface is administrator-only.
type AdminUsersHandler struct {
	accounts     *acctsvc.Service
	restrictions *restrsvc.Service
}

func NewAdminUsersHandler(accounts *acctsvc.Service, restrictions *restrsvc.Service) *AdminUsersHandler {
	return &AdminUsersHandler{accounts: accounts, restrictions: restrictions}
}

func (h *AdminUsersHandler) Ban(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	var req dto.BanUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	restriction, err := h.restrictions.Issue(r.Context(), targetID, actor, enums.RestrictionPermanentBan, req.Reason, nil, r.RemoteAddr)
	if err != nil {
		handleRestrictionError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, restrictionResponse(restriction))
}

func (h *AdminUsersHandler) Unban(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	if err := h.restrictions.LiftAll(r.Context(), targetID, actor, r.RemoteAddr); err != nil {
		handleRestrictionError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AdminUsersHandler) Restrict(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	var req dto.RestrictUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	restriction, err := h.restrictions.Issue(r.Context(), targetID, actor, enums.RestrictionType(req.Type), req.Reason, req.Hours, r.RemoteAddr)
	if err != nil {
		handleRestrictionError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, restrictionResponse(restriction))
}

func (h *AdminUsersHandler) Restrictions(w http.ResponseWriter, r *http.Request) {
	_, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	history, err := h.restrictions.History(r.Context(), targetID)
	if err != nil {
		handleRestrictionError(w, err)
		return
	}

	res := dto.RestrictionHistoryResponse{Restrictions: make([]dto.RestrictionResponse, 0, len(history))}
	for _, restriction := range history {
		res.Restrictions = append(res.Restrictions, restrictionResponse(restriction))
	}
	httperrors.Write(w, http.StatusOK, res)
}

func (h *AdminUsersHandler) Role(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	var req dto.ChangeRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	tags := make([]enums.Tag, 0, len(req.ManagedTags))
	for _, tag := range req.ManagedTags {
		tags = append(tags, enums.Tag(tag))
	}

	if err := h.accounts.ChangeRole(r.Context(), actor, targetID, enums.Role(req.Role), tags, r.RemoteAddr); err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AdminUsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Delete(r.Context(), actor, targetID, r.RemoteAddr); err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AdminUsersHandler) actorAndTarget(w http.ResponseWriter, r *http.Request) (model.Account, int64, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return model.Account{}, 0, false
	}
	if h.accounts == nil || h.restrictions == nil {
		writeInternal(w, "ADMIN_SERVICE_UNAVAILABLE", "admin service is unavailable")
		return model.Account{}, 0, false
	}
	targetID, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_REQUEST", "invalid account id")
		return model.Account{}, 0, false
	}

	actor, err := h.accounts.GetByID(r.Context(), identity.AccountID)
	if err != nil {
		if errors.Is(err, acctsvc.ErrNotFound) {
			writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
			return model.Account{}, 0, false
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load account")
		return model.Account{}, 0, false
	}
	return actor, targetID, true
}

func handleRestrictionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, restrsvc.ErrValidation):
		writeValidation(w, []string{err.Error()})
	case errors.Is(err, restrsvc.ErrDurationCap):
		writeValidation(w, []string{err.Error()})
	case errors.Is(err, restrsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "restriction type requires administrator")
	case errors.Is(err, restrsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "account not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func restrictionResponse(restriction model.Restriction) dto.RestrictionResponse {
	return dto.RestrictionResponse{
		ID:        restriction.ID,
		AccountID: restriction.AccountID,
		Type:      string(restriction.Type),
		Reason:    restriction.Reason,
		IssuedBy:  restriction.IssuedBy,
		StartDate: restriction.StartDate,
		EndDate:   restriction.EndDate,
		IsActive:  restriction.IsActive,
	}
}
