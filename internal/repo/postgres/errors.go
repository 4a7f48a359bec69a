package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrContentNotFound = errors.New("content not found")
	ErrReportNotFound  = errors.New("report not found")
	ErrDuplicateReport = errors.New("report already filed for this content")
)

// uniqueViolation code per the postgres error class reference.
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
