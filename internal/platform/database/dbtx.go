package database

import (
	"context"
	"database/sql"
)

// DBTX adalah interface untuk *sql.Tx, supaya beberapa repository bisa
// berbagi satu transaksi.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
	Commit() error
	Rollback() error
}
