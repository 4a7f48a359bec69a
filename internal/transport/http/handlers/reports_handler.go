package handlers

import (
	"errors"
	"net/http"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
	acctsvc "github.com/Arianini/CSSECDV-MCO/internal/services/accounts"
	authsvc "github.com/Arianini/CSSECDV-MCO/internal/services/auth"
	reportsvc "github.com/Arianini/CSSECDV-MCO/internal/services/reports"
	restrsvc "github.com/Arianini/CSSECDV-MCO/internal/services/restrictions"
	"github.com/Arianini/CSSECDV-MCO/internal/transport/http/dto"
	httperrors "github.com/Arianini/CSSECDV-MCO/internal/transport/http/errors"
)

type ReportsHandler struct {
	service  *reportsvc.Service
	accounts *acctsvc.Service
}

func NewReportsHandler(service *reportsvc.Service, accounts *acctsvc.Service) *ReportsHandler {
	return &ReportsHandler{service: service, accounts: accounts}
}

func (h *ReportsHandler) File(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req dto.FileReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	report, err := h.service.File(r.Context(), req.ContentID, actor, enums.ReportReason(req.Reason), req.Description, r.RemoteAddr)
	if err != nil {
		handleReportError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, reportResponse(report))
}

func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	reports, err := h.service.List(r.Context(), actor)
	if err != nil {
		handleReportError(w, err)
		return
	}

	res := dto.ReportListResponse{Reports: make([]dto.ReportResponse, 0, len(reports))}
	for _, report := range reports {
		res.Reports = append(res.Reports, reportResponse(report))
	}
	httperrors.Write(w, http.StatusOK, res)
}

func (h *ReportsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	reportID, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_REQUEST", "invalid report id")
		return
	}

	var req dto.HandleReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	report, err := h.service.Handle(r.Context(), reportID, actor, enums.ModerationAction(req.Action), req.Notes, req.Hours, r.RemoteAddr)
	if err != nil {
		handleReportError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, reportResponse(report))
}

func (h *ReportsHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	reportID, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_REQUEST", "invalid report id")
		return
	}

	var req dto.EscalateReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	report, err := h.service.Escalate(r.Context(), reportID, actor, req.Reason, r.RemoteAddr)
	if err != nil {
		handleReportError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, reportResponse(report))
}

// actor resolves the authenticated identity into a full account so role and
// managed tags are current, not whatever the token was minted with.
func (h *ReportsHandler) actor(w http.ResponseWriter, r *http.Request) (model.Account, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return model.Account{}, false
	}
	if h.service == nil || h.accounts == nil {
		writeInternal(w, "REPORT_SERVICE_UNAVAILABLE", "report service is unavailable")
		return model.Account{}, false
	}

	actor, err := h.accounts.GetByID(r.Context(), identity.AccountID)
	if err != nil {
		if errors.Is(err, acctsvc.ErrNotFound) {
			writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
			return model.Account{}, false
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load account")
		return model.Account{}, false
	}
	return actor, true
}

func handleReportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reportsvc.ErrValidation), errors.Is(err, restrsvc.ErrValidation):
		writeValidation(w, []string{err.Error()})
	case errors.Is(err, restrsvc.ErrDurationCap):
		writeValidation(w, []string{err.Error()})
	case errors.Is(err, reportsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "no authority over this content")
	case errors.Is(err, reportsvc.ErrNotFound), errors.Is(err, restrsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "report or content not found")
	case errors.Is(err, reportsvc.ErrDuplicate):
		writeConflict(w, "DUPLICATE_REPORT", "content already reported by this account")
	case errors.Is(err, reportsvc.ErrNotHandleable):
		writeConflict(w, "REPORT_CLOSED", "report is already closed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func reportResponse(report model.Report) dto.ReportResponse {
	return dto.ReportResponse{
		ID:              report.ID,
		ContentID:       report.ContentID,
		ReporterID:      report.ReporterID,
		Reason:          string(report.Reason),
		Description:     report.Description,
		Status:          string(report.Status),
		HandledBy:       report.HandledBy,
		ResolutionNotes: report.ResolutionNotes,
		EscalatedBy:     report.EscalatedBy,
		EscalatedAt:     report.EscalatedAt,
		CreatedAt:       report.CreatedAt,
		ResolvedAt:      report.ResolvedAt,
	}
}
