package ps

import (
	"errors"
	"fmt"
	"iter"
	"strconv"

	"github.com/nickyhof/flintdb/core"
)

const (
	DescriptorFile = "table.desc"
	RowsDir        = "rows"
)

// RowKey is the tree path of a row blob. Ids are zero padded so that tree
// order is id order.
func RowKey(rowid int64) string {
	return fmt.Sprintf("%s/%020d", RowsDir, rowid)
}

func parseRowName(name string) (int64, bool) {
	id, err := strconv.ParseInt(name, 10, 64)
	return id, err == nil
}

// SaveDescriptor stores the CREATE TABLE text of the table.
func (persistence *Persistence) SaveDescriptor(descriptor []byte, identity core.Identity) (Transaction, error) {
	return persistence.WriteFileDirect(DescriptorFile, descriptor, identity, "Creating table")
}

// Descriptor returns the stored CREATE TABLE text, or ErrFileNotFound for a
// repository that holds no table yet.
func (persistence *Persistence) Descriptor() ([]byte, error) {
	return persistence.ReadFileDirect(DescriptorFile)
}

// HasDescriptor reports whether a table was created in this repository.
func (persistence *Persistence) HasDescriptor() bool {
	_, err := persistence.Descriptor()
	return err == nil
}

// SaveRows stores encoded rows in a single commit.
func (persistence *Persistence) SaveRows(rows map[int64][]byte, identity core.Identity) (Transaction, error) {
	files := make(map[string][]byte, len(rows))
	for rowid, data := range rows {
		files[RowKey(rowid)] = data
	}
	return persistence.WriteFilesDirect(files, identity, "Saving row(s)")
}

// GetRow reads one encoded row.
func (persistence *Persistence) GetRow(rowid int64) ([]byte, bool) {
	data, err := persistence.ReadFileDirect(RowKey(rowid))
	if err != nil {
		return nil, false
	}
	return data, true
}

// DeleteRows removes rows in a single commit.
func (persistence *Persistence) DeleteRows(rowids []int64, identity core.Identity) (Transaction, error) {
	paths := make([]string, len(rowids))
	for i, rowid := range rowids {
		paths[i] = RowKey(rowid)
	}
	return persistence.DeletePathDirect(paths, identity, "Deleting row(s)")
}

// Scan yields every stored row in id order. Iteration stops at the first
// read error, which is reported through errp when it is non-nil.
func (persistence *Persistence) Scan(errp *error) iter.Seq2[int64, []byte] {
	return func(yield func(int64, []byte) bool) {
		entries, err := persistence.ListEntriesDirect(RowsDir)
		if err != nil {
			setErr(errp, err)
			return
		}

		for _, entry := range entries {
			id, ok := parseRowName(entry.Name)
			if entry.IsDir || !ok {
				continue
			}
			data, err := persistence.readBlob(entry.Hash)
			if err != nil {
				setErr(errp, fmt.Errorf("failed to read row %d: %w", id, err))
				return
			}
			if !yield(id, data) {
				return
			}
		}
	}
}

func setErr(errp *error, err error) {
	if errp != nil && *errp == nil {
		*errp = err
	}
}

// IsNotFound reports whether err means the requested file, repository or
// commit does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrRepoNotFound) || errors.Is(err, ErrCommitNotFound)
}
