package ps

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/nickyhof/flintdb/core"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

// scanIDs collects the stored row ids in scan order.
func scanIDs(t *testing.T, p *Persistence) []int64 {
	t.Helper()
	var err error
	var ids []int64
	for id := range p.Scan(&err) {
		ids = append(ids, id)
	}
	if err != nil {
		t.Fatalf("Failed to scan rows: %v", err)
	}
	return ids
}

// runWithBothPersistence runs a test against memory and file persistence.
func runWithBothPersistence(t *testing.T, testFunc func(t *testing.T, p *Persistence)) {
	t.Run("Memory", func(t *testing.T) {
		p, err := NewMemoryPersistence()
		if err != nil {
			t.Fatalf("Failed to create memory persistence: %v", err)
		}
		testFunc(t, p)
	})

	t.Run("File", func(t *testing.T) {
		p, err := NewFilePersistence(filepath.Join(t.TempDir(), "table.flintdb"))
		if err != nil {
			t.Fatalf("Failed to create file persistence: %v", err)
		}
		testFunc(t, p)
	})
}

func TestNewMemoryPersistence(t *testing.T) {
	persistence, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create memory persistence: %v", err)
	}

	if !persistence.IsInitialized() {
		t.Error("Expected persistence to be initialized")
	}
	if !persistence.IsMemory() {
		t.Error("Expected memory mode")
	}
}

func TestPersistenceNotInitialized(t *testing.T) {
	var persistence Persistence

	if persistence.IsInitialized() {
		t.Error("Expected uninitialized persistence to return false")
	}

	err := persistence.ensureInitialized()
	if err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestOpenFilePersistenceMissing(t *testing.T) {
	_, err := OpenFilePersistence(filepath.Join(t.TempDir(), "missing.flintdb"))
	if !errors.Is(err, ErrRepoNotFound) {
		t.Errorf("Expected ErrRepoNotFound, got %v", err)
	}
}

func TestFilePersistenceReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reopen.flintdb")

	p, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	if _, err := p.SaveDescriptor([]byte("CREATE TABLE t (id INT)"), testIdentity); err != nil {
		t.Fatalf("Failed to save descriptor: %v", err)
	}
	if _, err := p.SaveRows(map[int64][]byte{1: []byte("one")}, testIdentity); err != nil {
		t.Fatalf("Failed to save rows: %v", err)
	}

	if !Exists(dir) {
		t.Fatal("Expected repository to exist")
	}

	reopened, err := OpenFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	data, ok := reopened.GetRow(1)
	if !ok || string(data) != "one" {
		t.Errorf("Expected row 'one', got %q (exists=%v)", data, ok)
	}
}

func TestDescriptor(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, p *Persistence) {
		if p.HasDescriptor() {
			t.Error("Expected no descriptor before creation")
		}
		if _, err := p.Descriptor(); !IsNotFound(err) {
			t.Errorf("Expected not found, got %v", err)
		}

		txn, err := p.SaveDescriptor([]byte("CREATE TABLE t (id INT)"), testIdentity)
		if err != nil {
			t.Fatalf("Failed to save descriptor: %v", err)
		}
		if txn.Id == "" {
			t.Error("Expected transaction ID to be set")
		}

		data, err := p.Descriptor()
		if err != nil {
			t.Fatalf("Failed to read descriptor: %v", err)
		}
		if string(data) != "CREATE TABLE t (id INT)" {
			t.Errorf("Expected descriptor text, got %q", data)
		}
	})
}

func TestRowsCrud(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, p *Persistence) {
		rows := map[int64][]byte{
			1:  []byte("a"),
			2:  []byte("b"),
			10: []byte("c"),
		}
		if _, err := p.SaveRows(rows, testIdentity); err != nil {
			t.Fatalf("Failed to save rows: %v", err)
		}

		ids := scanIDs(t, p)
		expected := []int64{1, 2, 10}
		if len(ids) != len(expected) {
			t.Fatalf("Expected %v, got %v", expected, ids)
		}
		for i := range expected {
			if ids[i] != expected[i] {
				t.Errorf("Expected %v, got %v", expected, ids)
			}
		}

		if _, err := p.DeleteRows([]int64{2}, testIdentity); err != nil {
			t.Fatalf("Failed to delete row: %v", err)
		}
		if _, ok := p.GetRow(2); ok {
			t.Error("Expected row 2 to be deleted")
		}

		var scanErr error
		var scanned []int64
		for id, data := range p.Scan(&scanErr) {
			scanned = append(scanned, id)
			if id == 10 && string(data) != "c" {
				t.Errorf("Expected 'c', got %q", data)
			}
		}
		if scanErr != nil {
			t.Fatalf("Scan failed: %v", scanErr)
		}
		if len(scanned) != 2 || scanned[0] != 1 || scanned[1] != 10 {
			t.Errorf("Expected [1 10], got %v", scanned)
		}
	})
}

func TestDeleteAllRows(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, p *Persistence) {
		if _, err := p.SaveRows(map[int64][]byte{1: []byte("a")}, testIdentity); err != nil {
			t.Fatalf("Failed to save rows: %v", err)
		}
		if _, err := p.DeleteRows([]int64{1}, testIdentity); err != nil {
			t.Fatalf("Failed to delete rows: %v", err)
		}
		if ids := scanIDs(t, p); len(ids) != 0 {
			t.Errorf("Expected no rows, got %v", ids)
		}
	})
}

func TestTransactionHistory(t *testing.T) {
	p, err := NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	if latest := p.LatestTransaction(); latest.Id != "" {
		t.Errorf("Expected empty transaction, got %v", latest)
	}

	for i := int64(1); i <= 3; i++ {
		if _, err := p.SaveRows(map[int64][]byte{i: []byte("x")}, testIdentity); err != nil {
			t.Fatalf("Failed to save row: %v", err)
		}
	}

	latest := p.LatestTransaction()
	if latest.Author != "test <test@test.com>" {
		t.Errorf("Expected author 'test <test@test.com>', got '%s'", latest.Author)
	}

	history := p.History(2)
	if len(history) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(history))
	}
	if history[0].Id != latest.Id {
		t.Errorf("Expected newest first, got %s", history[0].Id)
	}
	if all := p.History(0); len(all) != 3 {
		t.Errorf("Expected 3 transactions, got %d", len(all))
	}
}
