package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"
)

type MockDBTX struct {
	mock.Mock
}

func (m *MockDBTX) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ret := m.Called(append([]interface{}{ctx, query}, args...)...)
	var r0 sql.Result
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(sql.Result)
	}
	return r0, ret.Error(1)
}

func (m *MockDBTX) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	args := m.Called(ctx, query)
	var r0 *sql.Stmt
	if args.Get(0) != nil {
		r0 = args.Get(0).(*sql.Stmt)
	}
	return r0, args.Error(1)
}

func (m *MockDBTX) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ret := m.Called(append([]interface{}{ctx, query}, args...)...)
	var r0 *sql.Rows
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sql.Rows)
	}
	return r0, ret.Error(1)
}

// QueryRowContext only makes sense with a real *sql.Row; services under test
// never call it directly because row reads go through the repository mocks.
func (m *MockDBTX) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ret := m.Called(append([]interface{}{ctx, query}, args...)...)
	var r0 *sql.Row
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sql.Row)
	}
	return r0
}

func (m *MockDBTX) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBTX) Rollback() error {
	args := m.Called()
	return args.Error(0)
}
