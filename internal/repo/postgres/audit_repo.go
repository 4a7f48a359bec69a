package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Insert appends one entry to the audit trail. The table is append-only;
// there are no update or delete paths.
func (r *AuditRepo) Insert(ctx context.Context, entry model.AuditEntry) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("audit action is required")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO audit_log (
	actor_id,
	action,
	target_type,
	target_id,
	detail,
	origin_ip,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
`,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Detail,
		entry.OriginIP,
		entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, actor_id, action, target_type, target_id, COALESCE(detail, ''), COALESCE(origin_ip, ''), created_at
FROM audit_log
ORDER BY created_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var entry model.AuditEntry
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.TargetType,
			&entry.TargetID,
			&entry.Detail,
			&entry.OriginIP,
			&entry.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan audit entry: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
