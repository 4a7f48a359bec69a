package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
)

const reportColumns = `
id, content_id, reporter_id, reason, COALESCE(description, ''), status,
handled_by, COALESCE(resolution_notes, ''), escalated_by, escalated_at, created_at, resolved_at`

// Open reports sort ahead of closed ones, newest first within each group.
const reportOrder = `
ORDER BY (status IN ('resolved', 'dismissed')), created_at DESC, id DESC`

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

// Create relies on the reports_reporter_content_key unique constraint for the
// duplicate check instead of a racy check-then-insert.
func (r *ReportRepo) Create(ctx context.Context, contentID, reporterID int64, reason enums.ReportReason, description string) (model.Report, error) {
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}
	if contentID <= 0 || reporterID <= 0 {
		return model.Report{}, fmt.Errorf("invalid report payload")
	}
	if !reason.Valid() {
		return model.Report{}, fmt.Errorf("invalid report reason %q", reason)
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO reports (
	content_id,
	reporter_id,
	reason,
	description,
	status,
	created_at
) VALUES ($1, $2, $3, $4, 'pending', NOW())
RETURNING `+reportColumns, contentID, reporterID, string(reason), strings.TrimSpace(description))

	report, err := scanReport(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Report{}, ErrDuplicateReport
		}
		return model.Report{}, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

func (r *ReportRepo) GetByID(ctx context.Context, reportID int64) (model.Report, error) {
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}
	if reportID <= 0 {
		return model.Report{}, ErrReportNotFound
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+reportColumns+`
FROM reports
WHERE id = $1
`, reportID)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, fmt.Errorf("query report: %w", err)
	}
	return report, nil
}

func (r *ReportRepo) ListAll(ctx context.Context) ([]model.Report, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+reportColumns+`
FROM reports
`+reportOrder)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// ListByTags returns reports whose content carries one of the delegated tags,
// resolved in a single indexed join rather than two round trips.
func (r *ReportRepo) ListByTags(ctx context.Context, tags []enums.Tag) ([]model.Report, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(tags) == 0 {
		return nil, nil
	}

	tagValues := make([]string, 0, len(tags))
	for _, t := range tags {
		tagValues = append(tagValues, string(t))
	}

	rows, err := r.pool.Query(ctx, `
SELECT r.id, r.content_id, r.reporter_id, r.reason, COALESCE(r.description, ''), r.status,
       r.handled_by, COALESCE(r.resolution_notes, ''), r.escalated_by, r.escalated_at,
       r.created_at, r.resolved_at
FROM reports r
JOIN contents c ON c.id = r.content_id
WHERE c.tag = ANY($1)
ORDER BY (r.status IN ('resolved', 'dismissed')), r.created_at DESC, r.id DESC
`, tagValues)
	if err != nil {
		return nil, fmt.Errorf("query reports by tags: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// MarkHandled transitions an open report to its terminal status. The WHERE
// guard keeps the transition atomic: a report that is no longer handleable is
// reported as such instead of being overwritten.
func (r *ReportRepo) MarkHandled(ctx context.Context, reportID, handlerID int64, status enums.ReportStatus, notes string, resolvedAt time.Time) (model.Report, error) {
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
UPDATE reports
SET status = $3,
    handled_by = $2,
    resolution_notes = $4,
    resolved_at = $5
WHERE id = $1 AND status IN ('pending', 'escalated')
RETURNING `+reportColumns, reportID, handlerID, string(status), notes, resolvedAt)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, fmt.Errorf("mark report handled: %w", err)
	}
	return report, nil
}

// MarkEscalated moves a pending report into the escalated queue.
func (r *ReportRepo) MarkEscalated(ctx context.Context, reportID, escalatorID int64, escalatedAt time.Time) (model.Report, error) {
	if r.pool == nil {
		return model.Report{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
UPDATE reports
SET status = 'escalated',
    escalated_by = $2,
    escalated_at = $3
WHERE id = $1 AND status = 'pending'
RETURNING `+reportColumns, reportID, escalatorID, escalatedAt)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, fmt.Errorf("mark report escalated: %w", err)
	}
	return report, nil
}

func collectReports(rows pgx.Rows) ([]model.Report, error) {
	var reports []model.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanReport(row pgx.Row) (model.Report, error) {
	var (
		out    model.Report
		reason string
		status string
	)
	err := row.Scan(
		&out.ID,
		&out.ContentID,
		&out.ReporterID,
		&reason,
		&out.Description,
		&status,
		&out.HandledBy,
		&out.ResolutionNotes,
		&out.EscalatedBy,
		&out.EscalatedAt,
		&out.CreatedAt,
		&out.ResolvedAt,
	)
	if err != nil {
		return model.Report{}, err
	}
	out.Reason = enums.ReportReason(reason)
	out.Status = enums.ReportStatus(status)
	return out, nil
}
