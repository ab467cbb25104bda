package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	CodeForeignKeyViolation pq.ErrorCode = "23503"
	CodeUniqueViolation     pq.ErrorCode = "23505"
	CodeCheckViolation      pq.ErrorCode = "23514"
	CodeLockNotAvailable    pq.ErrorCode = "55P03"
	CodeQueryCanceled       pq.ErrorCode = "57014"
)

// ErrorCode returns the SQLSTATE carried by err for either driver, or "" when
// err did not come from the server.
func ErrorCode(err error) pq.ErrorCode {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pq.ErrorCode(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return ErrorCode(err) == CodeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return ErrorCode(err) == CodeForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	return ErrorCode(err) == CodeCheckViolation
}

// IsTimeout reports lock_timeout and statement_timeout expiry.
func IsTimeout(err error) bool {
	code := ErrorCode(err)
	return code == CodeLockNotAvailable || code == CodeQueryCanceled
}
