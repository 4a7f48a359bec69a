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

const accountColumns = `
id, username, password_hash, role, COALESCE(managed_tags, '{}'),
failed_login_attempts, lockout_until, password_changed_at, COALESCE(password_history, '{}'),
COALESCE(security_question, ''), COALESCE(security_answer_hash, ''),
last_login, previous_login, is_deleted, created_at, updated_at`

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Create(ctx context.Context, username, passwordHash, securityQuestion, securityAnswerHash string) (model.Account, error) {
	if r.pool == nil {
		return model.Account{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(username) == "" || passwordHash == "" {
		return model.Account{}, fmt.Errorf("invalid account payload")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO accounts (
	username,
	password_hash,
	role,
	security_question,
	security_answer_hash,
	created_at,
	updated_at
) VALUES ($1, $2, 'user', $3, $4, NOW(), NOW())
RETURNING `+accountColumns, strings.TrimSpace(username), passwordHash, securityQuestion, securityAnswerHash)

	account, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Account{}, ErrUsernameTaken
		}
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (r *AccountRepo) FindByID(ctx context.Context, accountID int64) (model.Account, error) {
	if r.pool == nil {
		return model.Account{}, fmt.Errorf("postgres pool is nil")
	}
	if accountID <= 0 {
		return model.Account{}, ErrAccountNotFound
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+accountColumns+`
FROM accounts
WHERE id = $1 AND NOT is_deleted
`, accountID)
	return r.scanOne(row)
}

func (r *AccountRepo) FindByUsername(ctx context.Context, username string) (model.Account, error) {
	if r.pool == nil {
		return model.Account{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(username) == "" {
		return model.Account{}, ErrAccountNotFound
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+accountColumns+`
FROM accounts
WHERE username = $1 AND NOT is_deleted
`, strings.TrimSpace(username))
	return r.scanOne(row)
}

// MarkLoginFailure increments the failed-attempt counter atomically and arms
// the lockout once the threshold is reached. An attempt made while the account
// is already locked never extends the existing window.
func (r *AccountRepo) MarkLoginFailure(ctx context.Context, accountID int64, maxAttempts int, lockUntil time.Time) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	const query = `
UPDATE accounts
SET failed_login_attempts = failed_login_attempts + 1,
    lockout_until = CASE
        WHEN failed_login_attempts + 1 >= $2
             AND (lockout_until IS NULL OR lockout_until <= NOW())
        THEN $3
        ELSE lockout_until
    END,
    updated_at = NOW()
WHERE id = $1 AND NOT is_deleted
RETURNING lockout_until
`
	var storedLock *time.Time
	err := r.pool.QueryRow(ctx, query, accountID, maxAttempts, lockUntil).Scan(&storedLock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrAccountNotFound
		}
		return false, fmt.Errorf("mark login failure: %w", err)
	}
	return storedLock != nil && storedLock.After(time.Now().UTC()), nil
}

// RecordSuccessfulLogin shifts last_login into previous_login, resets the
// failure counter and clears any lockout.
func (r *AccountRepo) RecordSuccessfulLogin(ctx context.Context, accountID int64, now time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	res, err := r.pool.Exec(ctx, `
UPDATE accounts
SET previous_login = last_login,
    last_login = $2,
    failed_login_attempts = 0,
    lockout_until = NULL,
    updated_at = NOW()
WHERE id = $1 AND NOT is_deleted
`, accountID, now)
	if err != nil {
		return fmt.Errorf("record successful login: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdatePassword replaces the credential, pushes the outgoing hash onto the
// bounded history and stamps password_changed_at in one statement.
func (r *AccountRepo) UpdatePassword(ctx context.Context, accountID int64, newHash string, historySize int, now time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if newHash == "" || historySize <= 0 {
		return fmt.Errorf("invalid password update payload")
	}

	res, err := r.pool.Exec(ctx, `
UPDATE accounts
SET password_history = (array_prepend(password_hash, COALESCE(password_history, '{}')))[1:$3],
    password_hash = $2,
    password_changed_at = $4,
    updated_at = NOW()
WHERE id = $1 AND NOT is_deleted
`, accountID, newHash, historySize, now)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepo) SetRole(ctx context.Context, accountID int64, role enums.Role, managedTags []enums.Tag) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	tags := make([]string, 0, len(managedTags))
	if role == enums.RoleManager {
		for _, t := range managedTags {
			tags = append(tags, string(t))
		}
	}

	res, err := r.pool.Exec(ctx, `
UPDATE accounts
SET role = $2,
    managed_tags = $3,
    updated_at = NOW()
WHERE id = $1 AND NOT is_deleted
`, accountID, string(role), tags)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SoftDelete marks the account deleted. Rows are never removed while content
// still references them.
func (r *AccountRepo) SoftDelete(ctx context.Context, accountID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	res, err := r.pool.Exec(ctx, `
UPDATE accounts
SET is_deleted = TRUE,
    updated_at = NOW()
WHERE id = $1 AND NOT is_deleted
`, accountID)
	if err != nil {
		return fmt.Errorf("soft delete account: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// LockRow takes a row lock on the account inside tx so restriction issue and
// lift-all for the same account serialize.
func (r *AccountRepo) LockRow(ctx context.Context, tx pgx.Tx, accountID int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	var id int64
	err := tx.QueryRow(ctx, `
SELECT id FROM accounts WHERE id = $1 AND NOT is_deleted FOR UPDATE
`, accountID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lock account row: %w", err)
	}
	return nil
}

func (r *AccountRepo) scanOne(row pgx.Row) (model.Account, error) {
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, ErrAccountNotFound
		}
		return model.Account{}, fmt.Errorf("query account: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var (
		account model.Account
		role    string
		tags    []string
		history []string
	)
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&role,
		&tags,
		&account.FailedLogins,
		&account.LockoutUntil,
		&account.PasswordChangedAt,
		&history,
		&account.SecurityQuestion,
		&account.SecurityAnswerHash,
		&account.LastLogin,
		&account.PreviousLogin,
		&account.IsDeleted,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return model.Account{}, err
	}

	account.Role = enums.Role(role)
	account.PasswordHistory = history
	account.ManagedTags = make([]enums.Tag, 0, len(tags))
	for _, t := range tags {
		account.ManagedTags = append(account.ManagedTags, enums.Tag(t))
	}
	return account, nil
}
