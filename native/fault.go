package native

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/ps"
)

// Code identifies the failure recorded in a Fault.
type Code int

const (
	DuplicateKey    Code = -1000
	UniqueViolation Code = -999
	ForeignKey      Code = -998
	CheckViolation  Code = -997

	ColumnMismatch   Code = -2000
	RowBytesExceeded Code = -1999
	InvalidDataType  Code = -1998

	TableNotFound Code = -3000
	IndexNotFound Code = -2999
	NoIndexes     Code = -2998

	StorageRead   Code = -4000
	StorageWrite  Code = -3999
	StorageDelete Code = -3998
	StorageFull   Code = -3997

	LockTimeout       Code = -5000
	Deadlock          Code = -4999
	TransactionFailed Code = -4998

	InvalidOperation    Code = -9000
	ResourceUnavailable Code = -8999
	InternalError       Code = -8998
)

// Codes raised by this engine beyond the classic set.
const (
	OutOfMemory Code = -10000 - iota
	Truncated
	Incompatible
	InvalidHandle
	InvalidArgument
	RowNotFound
	NotNullViolation
	TableLocked
	Corrupt
	CommitNotFound
)

// Fault is written into the error slot of a failed call. A nil slot after
// a call is the only success signal.
type Fault struct {
	Code Code
	Msg  string
}

func (f *Fault) Error() string {
	return f.Msg
}

var (
	ErrCorrupt     = errors.New("corrupt data")
	ErrUnsupported = errors.New("unsupported")
)

// throw records a fault unless the slot is nil or already holds one.
func throw(e **Fault, code Code, format string, args ...any) {
	if e == nil || *e != nil {
		return
	}
	*e = &Fault{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// raise records err, picking a code from the errors it wraps.
func raise(e **Fault, fallback Code, err error) {
	throw(e, classify(err, fallback), "%s", err.Error())
}

func classify(err error, fallback Code) Code {
	var fault *Fault
	switch {
	case errors.As(err, &fault):
		return fault.Code
	case errors.Is(err, ps.ErrDuplicateKey):
		return DuplicateKey
	case errors.Is(err, core.ErrIncompatible):
		return Incompatible
	case errors.Is(err, core.ErrTypeMismatch):
		return InvalidDataType
	case errors.Is(err, core.ErrOutOfRange), errors.Is(err, core.ErrTooLong):
		return RowBytesExceeded
	case errors.Is(err, ErrCorrupt):
		return Corrupt
	case errors.Is(err, ErrUnsupported):
		return ResourceUnavailable
	case errors.Is(err, ps.ErrCommitNotFound):
		return CommitNotFound
	case ps.IsNotFound(err), errors.Is(err, fs.ErrNotExist):
		return TableNotFound
	}
	return fallback
}
