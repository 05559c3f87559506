package ps

import (
	"errors"
	"fmt"

	"github.com/nickyhof/flintdb/core"
)

var ErrNotStarted = errors.New("transaction not started")

// Operation represents a single write operation in a transaction
type Operation struct {
	Type OperationType
	Path string
	Data []byte
}

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
)

// TransactionBuilder allows batching multiple write operations into a single commit
type TransactionBuilder struct {
	persistence *Persistence
	operations  []Operation
	started     bool
}

// BeginTransaction creates a new transaction builder for batching operations
func (persistence *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{
		persistence: persistence,
		operations:  make([]Operation, 0),
		started:     true,
	}, nil
}

// AddWrite adds a write operation to the transaction batch
func (tb *TransactionBuilder) AddWrite(path string, data []byte) error {
	if !tb.started {
		return ErrNotStarted
	}

	tb.operations = append(tb.operations, Operation{
		Type: WriteOp,
		Path: path,
		Data: data,
	})

	return nil
}

// AddDelete adds a delete operation to the transaction batch
func (tb *TransactionBuilder) AddDelete(path string) error {
	if !tb.started {
		return ErrNotStarted
	}

	tb.operations = append(tb.operations, Operation{
		Type: DeleteOp,
		Path: path,
	})

	return nil
}

// AddRow stages an encoded row.
func (tb *TransactionBuilder) AddRow(rowid int64, data []byte) error {
	return tb.AddWrite(RowKey(rowid), data)
}

// DeleteRow stages the removal of a row.
func (tb *TransactionBuilder) DeleteRow(rowid int64) error {
	return tb.AddDelete(RowKey(rowid))
}

// Commit applies all batched operations in a single git commit using plumbing API.
// Committing an empty batch only ends the transaction.
func (tb *TransactionBuilder) Commit(identity core.Identity) (Transaction, error) {
	if !tb.started {
		return Transaction{}, ErrNotStarted
	}

	if len(tb.operations) == 0 {
		tb.started = false
		return Transaction{}, nil
	}

	// Later operations on the same path win
	latest := make(map[string]int, len(tb.operations))
	for i, op := range tb.operations {
		latest[op.Path] = i
	}

	changes := make([]TreeChange, 0, len(latest))
	for i, op := range tb.operations {
		if latest[op.Path] != i {
			continue
		}

		switch op.Type {
		case WriteOp:
			blobHash, err := tb.persistence.createBlob(op.Data)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", op.Path, err)
			}
			changes = append(changes, TreeChange{
				Path:     op.Path,
				BlobHash: blobHash,
				IsDelete: false,
			})
		case DeleteOp:
			changes = append(changes, TreeChange{
				Path:     op.Path,
				IsDelete: true,
			})
		}
	}

	message := fmt.Sprintf("Batch transaction: %d operation(s)", len(tb.operations))
	txn, err := tb.persistence.applyChanges(changes, identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	tb.started = false
	tb.operations = nil

	return txn, nil
}

// Rollback discards all batched operations without committing
func (tb *TransactionBuilder) Rollback() {
	tb.started = false
	tb.operations = nil
}

// OperationCount returns the number of pending operations
func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.operations)
}
