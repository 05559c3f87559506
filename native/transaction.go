package native

import (
	"fmt"

	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/ps"
)

// Transaction batches mutations of one table into a single commit. The
// table refuses direct mutations while a transaction is open.
type Transaction struct {
	handle
	id      int64
	table   *Table
	builder *ps.TransactionBuilder
	pending map[int64][]core.Value
	done    bool

	ID       func() int64
	Apply    func(r *Row, upsert bool, e **Fault) int64
	ApplyAt  func(rowid int64, r *Row, e **Fault) int64
	DeleteAt func(rowid int64, e **Fault) int64
	Commit   func(e **Fault)
	Rollback func(e **Fault)
	Close    func()
}

func (t *Table) begin(e **Fault) *Transaction {
	if !t.writable(e) {
		return nil
	}
	builder, err := t.store.BeginTransaction()
	if err != nil {
		raise(e, TransactionFailed, fmt.Errorf("failed to begin transaction on %s: %w", t.name, err))
		return nil
	}
	t.revokeBorrowed()
	t.txnSeq++

	txn := &Transaction{
		handle:  newHandle(),
		id:      t.txnSeq,
		table:   t,
		builder: builder,
		pending: make(map[int64][]core.Value),
	}
	txn.ID = func() int64 { return txn.id }
	txn.Apply = txn.apply
	txn.ApplyAt = txn.applyAt
	txn.DeleteAt = txn.deleteAt
	txn.Commit = txn.commit
	txn.Rollback = txn.rollback
	txn.Close = txn.close
	t.txn = txn

	rt.log().Debug("transaction started", "table", t.name, "transaction", txn.id)
	return txn
}

// active reports whether the transaction can still stage operations.
func (txn *Transaction) active(e **Fault) bool {
	if !txn.valid(e, "transaction") || !txn.table.ok(e) {
		return false
	}
	if txn.done {
		throw(e, TransactionFailed, "transaction %d already finished", txn.id)
		return false
	}
	return true
}

func (txn *Transaction) apply(r *Row, upsert bool, e **Fault) int64 {
	if !txn.active(e) {
		return -1
	}
	return txn.table.applyRow(r, upsert, e)
}

func (txn *Transaction) applyAt(rowid int64, r *Row, e **Fault) int64 {
	if !txn.active(e) {
		return -1
	}
	return txn.table.applyRowAt(rowid, r, e)
}

func (txn *Transaction) deleteAt(rowid int64, e **Fault) int64 {
	if !txn.active(e) {
		return -1
	}
	return txn.table.deleteRowAt(rowid, e)
}

func (txn *Transaction) commit(e **Fault) {
	if !txn.active(e) {
		return
	}
	t := txn.table
	operations := txn.builder.OperationCount()
	_, err := txn.builder.Commit(t.identity)
	txn.finish()
	if err != nil {
		raise(e, TransactionFailed, fmt.Errorf("failed to commit transaction %d: %w", txn.id, err))
		if loadErr := t.load(); loadErr != nil {
			rt.log().Error("failed to reload table after commit failure", "table", t.name, "error", loadErr)
		}
		return
	}
	rt.log().Debug("transaction committed", "table", t.name, "transaction", txn.id, "operations", operations)
}

// rollback discards staged operations and restores the table state from
// storage.
func (txn *Transaction) rollback(e **Fault) {
	if !txn.active(e) {
		return
	}
	t := txn.table
	txn.builder.Rollback()
	txn.finish()
	if err := t.load(); err != nil {
		raise(e, StorageRead, fmt.Errorf("failed to reload table %s: %w", t.name, err))
		return
	}
	rt.log().Debug("transaction rolled back", "table", t.name, "transaction", txn.id)
}

func (txn *Transaction) finish() {
	txn.done = true
	txn.pending = nil
	txn.table.revokeBorrowed()
	if txn.table.txn == txn {
		txn.table.txn = nil
	}
}

// close rolls back an unfinished transaction. Closing twice panics.
func (txn *Transaction) close() {
	if txn.freed {
		panic("flintdb: double close of transaction")
	}
	if !txn.done && txn.alive() && txn.table.alive() {
		txn.rollback(nil)
	}
	txn.freed = true
}
