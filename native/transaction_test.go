package native

import (
	"path/filepath"
	"testing"

	"github.com/nickyhof/flintdb/core"
)

func stageCustomer(t *testing.T, txn *Transaction, m *Meta, id int64, name string) {
	t.Helper()
	var e *Fault
	r := RowNew(m, &e)
	defer r.Free()
	r.I64Set(0, id, &e)
	r.StringSet(1, name, &e)
	txn.Apply(r, true, &e)
	if e != nil {
		t.Fatalf("Failed to stage customer %d: %v", id, e)
	}
}

func TestTransactionCommit(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, m *Meta) {
		tbl := openTable(t, name, RDWR, m)
		defer tbl.Close()
		seedCustomers(t, tbl)

		var e *Fault
		txn := tbl.Begin(&e)
		if e != nil {
			t.Fatalf("Failed to begin transaction: %v", e)
		}
		defer txn.Close()

		stageCustomer(t, txn, m, 4, "Dave")
		stageCustomer(t, txn, m, 5, "Eve")
		txn.DeleteAt(1, &e)
		if e != nil {
			t.Fatalf("Failed to stage delete: %v", e)
		}

		r := RowNew(m, &e)
		defer r.Free()
		r.I64Set(0, 6, &e)
		r.StringSet(1, "Mallory", &e)
		tbl.Apply(r, true, &e)
		if e == nil || e.Code != TableLocked {
			t.Errorf("Expected TableLocked during a transaction, got %v", e)
		}

		e = nil
		if got := tbl.Read(4, &e).Get(1, &e).Format(); got != "Dave" {
			t.Errorf("Expected staged row to be readable, got %q (%v)", got, e)
		}

		txn.Commit(&e)
		if e != nil {
			t.Fatalf("Failed to commit: %v", e)
		}
		if rows := tbl.Rows(&e); rows != 4 {
			t.Errorf("Expected 4 rows after commit, got %d", rows)
		}

		txn.Apply(r, true, &e)
		if e == nil || e.Code != TransactionFailed {
			t.Errorf("Expected TransactionFailed after commit, got %v", e)
		}

		e = nil
		if rowid := tbl.Apply(r, true, &e); rowid != 6 || e != nil {
			t.Errorf("Expected table to accept writes after commit, got %d %v", rowid, e)
		}
	})
}

func TestTransactionSingleCommit(t *testing.T) {
	name := filepath.Join(t.TempDir(), "customer"+core.TableSuffix)
	m := customerMeta(t, "customer")
	tbl := openTable(t, name, RDWR, m)

	var e *Fault
	before := len(tbl.History(100, &e))

	txn := tbl.Begin(&e)
	stageCustomer(t, txn, m, 1, "Alice")
	stageCustomer(t, txn, m, 2, "Bob")
	txn.Commit(&e)
	txn.Close()
	if e != nil {
		t.Fatalf("Failed to commit: %v", e)
	}

	if after := len(tbl.History(100, &e)); after != before+1 {
		t.Errorf("Expected one commit for the transaction, got %d", after-before)
	}

	tbl.Close()
	ro := openTable(t, name, RDONLY, nil)
	defer ro.Close()
	if rows := ro.Rows(&e); rows != 2 {
		t.Errorf("Expected 2 rows after reopen, got %d", rows)
	}
}

func TestTransactionRollback(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, m *Meta) {
		tbl := openTable(t, name, RDWR, m)
		defer tbl.Close()
		seedCustomers(t, tbl)

		var e *Fault
		txn := tbl.Begin(&e)
		stageCustomer(t, txn, m, 4, "Dave")
		txn.DeleteAt(2, &e)
		txn.Rollback(&e)
		if e != nil {
			t.Fatalf("Failed to roll back: %v", e)
		}
		txn.Close()

		if rows := tbl.Rows(&e); rows != 3 {
			t.Errorf("Expected 3 rows after rollback, got %d", rows)
		}
		if got := tbl.Read(2, &e).Get(1, &e).Format(); got != "Bob" {
			t.Errorf("Expected row 2 to survive rollback, got %q", got)
		}
		tbl.Read(4, &e)
		if e == nil || e.Code != RowNotFound {
			t.Errorf("Expected staged row to be discarded, got %v", e)
		}
	})
}

func TestTransactionApplyAtMissingRow(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, m *Meta) {
		tbl := openTable(t, name, RDWR, m)
		defer tbl.Close()
		seedCustomers(t, tbl)

		var e *Fault
		txn := tbl.Begin(&e)
		if e != nil {
			t.Fatalf("Failed to begin transaction: %v", e)
		}
		defer txn.Close()

		r := RowNew(m, &e)
		defer r.Free()
		r.I64Set(0, 99, &e)
		r.StringSet(1, "Nobody", &e)
		txn.ApplyAt(999, r, &e)
		if e == nil || e.Code != RowNotFound {
			t.Errorf("Expected RowNotFound staging rowid 999, got %v", e)
		}

		e = nil
		stageCustomer(t, txn, m, 4, "Dave")
		txn.Commit(&e)
		if e != nil {
			t.Fatalf("Failed to commit: %v", e)
		}
		if rows := tbl.Rows(&e); rows != 4 {
			t.Errorf("Expected 4 rows after commit, got %d", rows)
		}
		tbl.Read(999, &e)
		if e == nil || e.Code != RowNotFound {
			t.Errorf("Expected rowid 999 to stay absent, got %v", e)
		}
	})
}

func TestTransactionCloseRollsBack(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, m *Meta) {
		tbl := openTable(t, name, RDWR, m)
		defer tbl.Close()

		var e *Fault
		txn := tbl.Begin(&e)
		stageCustomer(t, txn, m, 1, "Alice")
		txn.Close()

		if rows := tbl.Rows(&e); rows != 0 {
			t.Errorf("Expected 0 rows after closing an open transaction, got %d", rows)
		}
		if tbl.Begin(&e) == nil {
			t.Errorf("Expected a new transaction after close, got %v", e)
		}

		defer func() {
			if recover() == nil {
				t.Error("Expected panic on double close")
			}
		}()
		txn.Close()
	})
}
