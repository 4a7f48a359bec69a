package handlers

import (
	"net/http"

	authsvc "github.com/Arianini/CSSECDV-MCO/internal/services/auth"
	restrsvc "github.com/Arianini/CSSECDV-MCO/internal/services/restrictions"
	"github.com/Arianini/CSSECDV-MCO/internal/transport/http/dto"
	httperrors "github.com/Arianini/CSSECDV-MCO/internal/transport/http/errors"
)

type RestrictionHandler struct {
	service *restrsvc.Service
}

func NewRestrictionHandler(service *restrsvc.Service) *RestrictionHandler {
	return &RestrictionHandler{service: service}
}

// Check reports the caller's own restriction status. Answers come from the
// short-lived redis cache when warm.
func (h *RestrictionHandler) Check(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "RESTRICTION_SERVICE_UNAVAILABLE", "restriction service is unavailable")
		return
	}

	status, err := h.service.IsCurrentlyRestricted(r.Context(), identity.AccountID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load restriction status")
		return
	}

	res := dto.RestrictionStatusResponse{Restricted: status.Restricted}
	if status.Active != nil {
		res.Restriction = &dto.ActiveRestrictionInfo{
			Type:    string(status.Active.Type),
			Reason:  status.Active.Reason,
			EndDate: status.Active.EndDate,
		}
	}
	httperrors.Write(w, http.StatusOK, res)
}
