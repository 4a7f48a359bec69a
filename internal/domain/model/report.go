package model

import (
	"time"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
)

type Report struct {
	ID              int64              `json:"id"`
	ContentID       int64              `json:"content_id"`
	ReporterID      int64              `json:"reporter_id"`
	Reason          enums.ReportReason `json:"reason"`
	Description     string             `json:"description"`
	Status          enums.ReportStatus `json:"status"`
	HandledBy       *int64             `json:"handled_by,omitempty"`
	ResolutionNotes string             `json:"resolution_notes,omitempty"`
	EscalatedBy     *int64             `json:"escalated_by,omitempty"`
	EscalatedAt     *time.Time         `json:"escalated_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	ResolvedAt      *time.Time         `json:"resolved_at,omitempty"`
}
