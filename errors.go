package flintdb

import (
	"fmt"

	"github.com/nickyhof/flintdb/native"
)

// Kind classifies an Error.
type Kind int

const (
	KindInternal Kind = iota
	KindAllocation
	KindValidation
	KindNotFound
	KindIncompatible
	KindUnavailable
	KindTruncation
	KindCorrupt
	KindStorage
	KindClosed
)

var kindNames = map[Kind]string{
	KindInternal:     "internal",
	KindAllocation:   "allocation",
	KindValidation:   "validation",
	KindNotFound:     "not found",
	KindIncompatible: "incompatible",
	KindUnavailable:  "unavailable",
	KindTruncation:   "truncation",
	KindCorrupt:      "corrupt",
	KindStorage:      "storage",
	KindClosed:       "closed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every failing operation. Code is the engine code
// when the failure came from the engine, zero otherwise.
type Error struct {
	Kind    Kind
	Code    native.Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("flintdb: %s: %s", e.Kind, e.Message)
}

// Is matches the per-kind sentinels, so errors.Is(err, ErrNotFound)
// holds for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == 0 && t.Message == "" {
		return t.Kind == e.Kind
	}
	return *t == *e
}

var (
	ErrInternal     = &Error{Kind: KindInternal}
	ErrAllocation   = &Error{Kind: KindAllocation}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrIncompatible = &Error{Kind: KindIncompatible}
	ErrUnavailable  = &Error{Kind: KindUnavailable}
	ErrTruncation   = &Error{Kind: KindTruncation}
	ErrCorrupt      = &Error{Kind: KindCorrupt}
	ErrStorage      = &Error{Kind: KindStorage}
	ErrClosed       = &Error{Kind: KindClosed}
)

// kindOf maps an engine code to its Kind.
func kindOf(code native.Code) Kind {
	switch code {
	case native.DuplicateKey, native.UniqueViolation, native.ForeignKey, native.CheckViolation,
		native.ColumnMismatch, native.RowBytesExceeded, native.InvalidDataType, native.NoIndexes,
		native.InvalidArgument, native.InvalidOperation, native.NotNullViolation, native.TableLocked,
		native.TransactionFailed:
		return KindValidation
	case native.TableNotFound, native.IndexNotFound, native.RowNotFound, native.CommitNotFound:
		return KindNotFound
	case native.StorageRead, native.StorageWrite, native.StorageDelete, native.StorageFull,
		native.LockTimeout, native.Deadlock:
		return KindStorage
	case native.Incompatible:
		return KindIncompatible
	case native.Truncated:
		return KindTruncation
	case native.OutOfMemory:
		return KindAllocation
	case native.Corrupt:
		return KindCorrupt
	case native.InvalidHandle:
		return KindClosed
	case native.ResourceUnavailable:
		return KindUnavailable
	}
	return KindInternal
}

// check converts a populated error slot into an *Error. An empty slot is
// success.
func check(fault *native.Fault) error {
	if fault == nil {
		return nil
	}
	return &Error{Kind: kindOf(fault.Code), Code: fault.Code, Message: fault.Msg}
}

// call issues one engine call with a fresh error slot. The result is only
// returned when the slot stays empty.
func call[T any](fn func(e **native.Fault) T) (T, error) {
	var fault *native.Fault
	result := fn(&fault)
	if err := check(fault); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// run is call for engine operations without a result.
func run(fn func(e **native.Fault)) error {
	var fault *native.Fault
	fn(&fault)
	return check(fault)
}

func errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// unavailable reports an engine operation that is not wired for a handle,
// such as writes on a read-only table.
func unavailable(operation string) error {
	return errorf(KindUnavailable, "operation %s is not available", operation)
}

func closed(what string) error {
	return errorf(KindClosed, "%s is closed", what)
}
