package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/model"
)

const restrictionColumns = `
id, account_id, issued_by, restriction_type, COALESCE(reason, ''), start_date, end_date, is_active, created_at`

type RestrictionRepo struct {
	pool *pgxpool.Pool
}

func NewRestrictionRepo(pool *pgxpool.Pool) *RestrictionRepo {
	return &RestrictionRepo{pool: pool}
}

// Insert appends one row of restriction history inside tx. History is never
// rewritten; re-restricting an already banned account just adds a row.
func (r *RestrictionRepo) Insert(ctx context.Context, tx pgx.Tx, restriction model.Restriction) (model.Restriction, error) {
	if tx == nil {
		return model.Restriction{}, fmt.Errorf("transaction is required")
	}
	if restriction.AccountID <= 0 || restriction.IssuedBy <= 0 {
		return model.Restriction{}, fmt.Errorf("invalid restriction payload")
	}
	if !restriction.Type.Valid() {
		return model.Restriction{}, fmt.Errorf("invalid restriction type %q", restriction.Type)
	}

	row := tx.QueryRow(ctx, `
INSERT INTO restrictions (
	account_id,
	issued_by,
	restriction_type,
	reason,
	start_date,
	end_date,
	is_active,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW())
RETURNING `+restrictionColumns,
		restriction.AccountID,
		restriction.IssuedBy,
		string(restriction.Type),
		strings.TrimSpace(restriction.Reason),
		restriction.StartDate,
		restriction.EndDate,
	)

	inserted, err := scanRestriction(row)
	if err != nil {
		return model.Restriction{}, fmt.Errorf("insert restriction: %w", err)
	}
	return inserted, nil
}

// ListActive returns the restrictions currently in effect for the account,
// most severe first. Expiry is evaluated in the query so a stale is_active
// flag on an expired ban never surfaces. Backed by the
// (account_id, is_active, end_date) index for the polling lookup.
func (r *RestrictionRepo) ListActive(ctx context.Context, accountID int64, now time.Time) ([]model.Restriction, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if accountID <= 0 {
		return nil, ErrAccountNotFound
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+restrictionColumns+`
FROM restrictions
WHERE account_id = $1
  AND is_active
  AND (end_date IS NULL OR end_date >= $2)
ORDER BY
  CASE restriction_type
    WHEN 'permanent_ban' THEN 3
    WHEN 'temporary_ban' THEN 2
    ELSE 1
  END DESC,
  created_at DESC
`, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("query active restrictions: %w", err)
	}
	defer rows.Close()

	var restrictions []model.Restriction
	for rows.Next() {
		restriction, scanErr := scanRestriction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan restriction: %w", scanErr)
		}
		restrictions = append(restrictions, restriction)
	}
	return restrictions, rows.Err()
}

func (r *RestrictionRepo) ListHistory(ctx context.Context, accountID int64) ([]model.Restriction, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if accountID <= 0 {
		return nil, ErrAccountNotFound
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+restrictionColumns+`
FROM restrictions
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query restriction history: %w", err)
	}
	defer rows.Close()

	var restrictions []model.Restriction
	for rows.Next() {
		restriction, scanErr := scanRestriction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan restriction: %w", scanErr)
		}
		restrictions = append(restrictions, restriction)
	}
	return restrictions, rows.Err()
}

// DeactivateAll flips is_active off for every active restriction inside tx.
// Rows stay in place as history. Calling it on an unrestricted account is a
// no-op.
func (r *RestrictionRepo) DeactivateAll(ctx context.Context, tx pgx.Tx, accountID int64) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if accountID <= 0 {
		return 0, ErrAccountNotFound
	}

	res, err := tx.Exec(ctx, `
UPDATE restrictions
SET is_active = FALSE
WHERE account_id = $1 AND is_active
`, accountID)
	if err != nil {
		return 0, fmt.Errorf("deactivate restrictions: %w", err)
	}
	return res.RowsAffected(), nil
}

// DeactivateExpired retires temporary bans whose end date has passed. The
// read path already evaluates expiry in the query, so this only keeps the
// is_active flag honest; it returns the affected account ids so callers can
// drop stale cache entries.
func (r *RestrictionRepo) DeactivateExpired(ctx context.Context, now time.Time) ([]int64, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
UPDATE restrictions
SET is_active = FALSE
WHERE is_active AND end_date IS NOT NULL AND end_date < $1
RETURNING account_id
`, now)
	if err != nil {
		return nil, fmt.Errorf("deactivate expired restrictions: %w", err)
	}
	defer rows.Close()

	var accountIDs []int64
	for rows.Next() {
		var accountID int64
		if scanErr := rows.Scan(&accountID); scanErr != nil {
			return nil, fmt.Errorf("scan expired restriction: %w", scanErr)
		}
		accountIDs = append(accountIDs, accountID)
	}
	return accountIDs, rows.Err()
}

func scanRestriction(row pgx.Row) (model.Restriction, error) {
	var (
		restriction model.Restriction
		kind        string
	)
	err := row.Scan(
		&restriction.ID,
		&restriction.AccountID,
		&restriction.IssuedBy,
		&kind,
		&restriction.Reason,
		&restriction.StartDate,
		&restriction.EndDate,
		&restriction.IsActive,
		&restriction.CreatedAt,
	)
	if err != nil {
		return model.Restriction{}, err
	}
	restriction.Type = enums.RestrictionType(kind)
	return restriction, nil
}
