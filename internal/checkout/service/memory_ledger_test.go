package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	ledgerDomain "github.com/ridloal/inventory-pos/internal/ledger/domain"
	ledgerRepo "github.com/ridloal/inventory-pos/internal/ledger/repository"
	"github.com/ridloal/inventory-pos/internal/platform/database"
)

// memoryLedger is an in-process LedgerRepository with row locks and
// transactional staging, so the coordinator can be exercised by many
// goroutines at once.
type memoryLedger struct {
	mu       sync.Mutex
	stock    map[int64]int
	rowLocks map[int64]*sync.Mutex
	sales    []ledgerDomain.Sale
	nextSale int64
}

func newMemoryLedger(stock map[int64]int) *memoryLedger {
	l := &memoryLedger{stock: map[int64]int{}, rowLocks: map[int64]*sync.Mutex{}}
	for id, qty := range stock {
		l.stock[id] = qty
		l.rowLocks[id] = &sync.Mutex{}
	}
	return l
}

func (l *memoryLedger) quantity(id int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[id]
}

func (l *memoryLedger) saleCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sales)
}

type memoryTx struct {
	ledger *memoryLedger
	held   []*sync.Mutex
	staged map[int64]int
	sale   *ledgerDomain.Sale
	done   bool
}

var errNotSQL = errors.New("memory transaction does not run SQL")

func (tx *memoryTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNotSQL
}

func (tx *memoryTx) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errNotSQL
}

func (tx *memoryTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNotSQL
}

func (tx *memoryTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	l := tx.ledger
	l.mu.Lock()
	for id, delta := range tx.staged {
		l.stock[id] += delta
	}
	if tx.sale != nil {
		l.sales = append(l.sales, *tx.sale)
	}
	l.mu.Unlock()
	tx.release()
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.release()
	return nil
}

func (tx *memoryTx) release() {
	tx.done = true
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
}

func (l *memoryLedger) BeginTx(context.Context) (database.DBTX, error) {
	return &memoryTx{ledger: l, staged: map[int64]int{}}, nil
}

func (l *memoryLedger) GetStock(_ context.Context, productID int64) (*ledgerDomain.StockRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	qty, ok := l.stock[productID]
	if !ok {
		return nil, ledgerRepo.ErrStockNotFound
	}
	return &ledgerDomain.StockRecord{ProductID: productID, Quantity: qty}, nil
}

func (l *memoryLedger) ListStockLevels(context.Context) ([]ledgerDomain.StockLevel, error) {
	return nil, nil
}

func (l *memoryLedger) DailySaleTotals(context.Context) ([]ledgerDomain.DailySales, error) {
	return nil, nil
}

func (l *memoryLedger) LockStockForUpdate(_ context.Context, dbops database.DBTX, productID int64) (*ledgerDomain.StockRecord, error) {
	tx := dbops.(*memoryTx)
	l.mu.Lock()
	rowLock, ok := l.rowLocks[productID]
	l.mu.Unlock()
	if !ok {
		return nil, ledgerRepo.ErrStockNotFound
	}
	rowLock.Lock()
	tx.held = append(tx.held, rowLock)

	l.mu.Lock()
	defer l.mu.Unlock()
	return &ledgerDomain.StockRecord{ProductID: productID, Quantity: l.stock[productID] + tx.staged[productID]}, nil
}

func (l *memoryLedger) ApplyDelta(_ context.Context, dbops database.DBTX, productID int64, delta int) (int, error) {
	tx := dbops.(*memoryTx)
	l.mu.Lock()
	defer l.mu.Unlock()
	qty, ok := l.stock[productID]
	if !ok {
		return 0, ledgerRepo.ErrStockNotFound
	}
	next := qty + tx.staged[productID] + delta
	if next < 0 {
		return 0, ledgerRepo.ErrInsufficientStock
	}
	tx.staged[productID] += delta
	return next, nil
}

func (l *memoryLedger) SetStock(context.Context, database.DBTX, int64, int) error {
	return errNotSQL
}

func (l *memoryLedger) RecordSale(_ context.Context, dbops database.DBTX, sale *ledgerDomain.Sale) error {
	tx := dbops.(*memoryTx)
	l.mu.Lock()
	l.nextSale++
	sale.ID = l.nextSale
	l.mu.Unlock()
	for i := range sale.Lines {
		sale.Lines[i].SaleID = sale.ID
	}
	tx.sale = sale
	return nil
}

func (l *memoryLedger) PurgeProductHistory(context.Context, database.DBTX, int64) error {
	return errNotSQL
}
