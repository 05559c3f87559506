package flintdb

import "github.com/nickyhof/flintdb/native"

// Transaction stages mutations of one table and stores them as a single
// commit. Closing a transaction that was not committed rolls it back.
type Transaction struct {
	inner *native.Transaction
}

func (txn *Transaction) live() error {
	if txn == nil || txn.inner == nil {
		return closed("transaction")
	}
	return nil
}

func (txn *Transaction) ID() int64 {
	if txn.live() != nil || txn.inner.ID == nil {
		return -1
	}
	return txn.inner.ID()
}

func (txn *Transaction) Apply(r *Row) (int64, error) {
	return txn.apply(r, true, "apply")
}

func (txn *Transaction) Insert(r *Row) (int64, error) {
	return txn.apply(r, false, "insert")
}

func (txn *Transaction) apply(r *Row, upsert bool, op string) (int64, error) {
	if err := txn.live(); err != nil {
		return -1, err
	}
	if txn.inner.Apply == nil {
		return -1, unavailable(op)
	}
	if err := r.live(); err != nil {
		return -1, err
	}
	id, err := call(func(e **native.Fault) int64 { return txn.inner.Apply(r.inner, upsert, e) })
	return rowID(op, id, err)
}

func (txn *Transaction) ApplyAt(rowid int64, r *Row) error {
	if err := txn.live(); err != nil {
		return err
	}
	if txn.inner.ApplyAt == nil {
		return unavailable("apply_at")
	}
	if err := r.live(); err != nil {
		return err
	}
	id, err := call(func(e **native.Fault) int64 { return txn.inner.ApplyAt(rowid, r.inner, e) })
	_, err = rowID("apply_at", id, err)
	return err
}

func (txn *Transaction) DeleteAt(rowid int64) error {
	if err := txn.live(); err != nil {
		return err
	}
	if txn.inner.DeleteAt == nil {
		return unavailable("delete_at")
	}
	n, err := call(func(e **native.Fault) int64 { return txn.inner.DeleteAt(rowid, e) })
	_, err = rowID("delete_at", n, err)
	return err
}

func (txn *Transaction) Commit() error {
	if err := txn.live(); err != nil {
		return err
	}
	if txn.inner.Commit == nil {
		return unavailable("commit")
	}
	return run(txn.inner.Commit)
}

func (txn *Transaction) Rollback() error {
	if err := txn.live(); err != nil {
		return err
	}
	if txn.inner.Rollback == nil {
		return unavailable("rollback")
	}
	return run(txn.inner.Rollback)
}

// Close ends the transaction, rolling back staged operations that were
// not committed. Further calls do nothing.
func (txn *Transaction) Close() {
	if txn == nil || txn.inner == nil {
		return
	}
	if txn.inner.Close != nil {
		txn.inner.Close()
	}
	txn.inner = nil
}
