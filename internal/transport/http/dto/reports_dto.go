package dto

import "time"

type FileReportRequest struct {
	ContentID   int64  `json:"content_id"`
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
}

type HandleReportRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
	Hours  *int   `json:"hours,omitempty"`
}

type EscalateReportRequest struct {
	Reason string `json:"reason"`
}

type ReportResponse struct {
	ID              int64      `json:"id"`
	ContentID       int64      `json:"content_id"`
	ReporterID      int64      `json:"reporter_id"`
	Reason          string     `json:"reason"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	HandledBy       *int64     `json:"handled_by,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	EscalatedBy     *int64     `json:"escalated_by,omitempty"`
	EscalatedAt     *time.Time `json:"escalated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
}
