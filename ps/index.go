package ps

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/nickyhof/flintdb/core"
)

var ErrDuplicateKey = errors.New("duplicate key")

// Key is the tuple of column values an index is ordered by.
type Key []core.Value

func (key Key) String() string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func compareKeys(a, b interface{}) int {
	ka := a.(Key)
	kb := b.(Key)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := core.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ka) < len(kb):
		return -1
	case len(ka) > len(kb):
		return 1
	}
	return 0
}

// Index is an ordered in-memory index from key tuples to row ids. It is
// rebuilt from the stored rows whenever a table is opened.
type Index struct {
	Name      string
	Unique    bool
	Positions []int
	tree      *treemap.Map // Key -> []int64, ascending
}

func NewIndex(name string, positions []int, unique bool) *Index {
	return &Index{
		Name:      name,
		Unique:    unique,
		Positions: positions,
		tree:      treemap.NewWith(compareKeys),
	}
}

// KeyOf extracts the index key from a full row.
func (idx *Index) KeyOf(values []core.Value) Key {
	key := make(Key, len(idx.Positions))
	for i, pos := range idx.Positions {
		key[i] = values[pos]
	}
	return key
}

// Insert adds an entry to the index
func (idx *Index) Insert(key Key, rowid int64) error {
	existing := idx.Lookup(key)
	if idx.Unique && len(existing) > 0 && existing[0] != rowid {
		return fmt.Errorf("%w %s on index %s", ErrDuplicateKey, key, idx.Name)
	}

	pos, found := slices.BinarySearch(existing, rowid)
	if found {
		return nil
	}
	idx.tree.Put(key, slices.Insert(slices.Clone(existing), pos, rowid))
	return nil
}

// Delete removes an entry from the index
func (idx *Index) Delete(key Key, rowid int64) {
	existing := idx.Lookup(key)
	pos, found := slices.BinarySearch(existing, rowid)
	if !found {
		return
	}
	remaining := slices.Delete(slices.Clone(existing), pos, pos+1)
	if len(remaining) == 0 {
		idx.tree.Remove(key)
		return
	}
	idx.tree.Put(key, remaining)
}

// Lookup finds row ids for an exact key
func (idx *Index) Lookup(key Key) []int64 {
	value, found := idx.tree.Get(key)
	if !found {
		return nil
	}
	return value.([]int64)
}

// LookupRange finds row ids whose key is within [from, to]. A nil bound is
// open.
func (idx *Index) LookupRange(from, to Key) []int64 {
	var result []int64
	it := idx.tree.Iterator()
	for it.Next() {
		key := it.Key().(Key)
		if from != nil && compareKeys(key, from) < 0 {
			continue
		}
		if to != nil && compareKeys(key, to) > 0 {
			break
		}
		result = append(result, it.Value().([]int64)...)
	}
	return result
}

// Len returns the number of distinct keys.
func (idx *Index) Len() int {
	return idx.tree.Size()
}

func (idx *Index) Clear() {
	idx.tree.Clear()
}

// IndexManager keeps the indexes of one table in descriptor order. The
// first index is the primary index.
type IndexManager struct {
	indexes []*Index
}

// NewIndexManager creates the indexes declared by meta. Keys must already be
// validated against the columns.
func NewIndexManager(meta *core.Meta) *IndexManager {
	im := &IndexManager{}
	for i, def := range meta.Indexes {
		unique := i == 0 && strings.EqualFold(def.Type, core.PrimaryIndex)
		im.indexes = append(im.indexes, NewIndex(def.Name, meta.KeyPositions(def), unique))
	}
	return im
}

// Primary returns the primary index, or nil when the table has none.
func (im *IndexManager) Primary() *Index {
	if len(im.indexes) == 0 || !im.indexes[0].Unique {
		return nil
	}
	return im.indexes[0]
}

// GetIndex retrieves an index by name, case-insensitively.
func (im *IndexManager) GetIndex(name string) (*Index, bool) {
	for _, idx := range im.indexes {
		if strings.EqualFold(idx.Name, name) {
			return idx, true
		}
	}
	return nil, false
}

// Check reports whether values can be stored as rowid without breaking a
// unique index.
func (im *IndexManager) Check(rowid int64, values []core.Value) error {
	for _, idx := range im.indexes {
		if !idx.Unique {
			continue
		}
		key := idx.KeyOf(values)
		if existing := idx.Lookup(key); len(existing) > 0 && existing[0] != rowid {
			return fmt.Errorf("%w %s on index %s", ErrDuplicateKey, key, idx.Name)
		}
	}
	return nil
}

// Add indexes a row under every index.
func (im *IndexManager) Add(rowid int64, values []core.Value) error {
	if err := im.Check(rowid, values); err != nil {
		return err
	}
	for _, idx := range im.indexes {
		if err := idx.Insert(idx.KeyOf(values), rowid); err != nil {
			return err
		}
	}
	return nil
}

// Remove drops a row from every index.
func (im *IndexManager) Remove(rowid int64, values []core.Value) {
	for _, idx := range im.indexes {
		idx.Delete(idx.KeyOf(values), rowid)
	}
}

func (im *IndexManager) Clear() {
	for _, idx := range im.indexes {
		idx.Clear()
	}
}

// Best picks the index whose every key column has an equality constraint,
// preferring the one with most key columns. It returns false when no index
// applies.
func (im *IndexManager) Best(equalities map[int]core.Value) (*Index, Key, bool) {
	var best *Index
	for _, idx := range im.indexes {
		covered := true
		for _, pos := range idx.Positions {
			if _, ok := equalities[pos]; !ok {
				covered = false
				break
			}
		}
		if covered && (best == nil || len(idx.Positions) > len(best.Positions)) {
			best = idx
		}
	}
	if best == nil {
		return nil, nil, false
	}

	key := make(Key, len(best.Positions))
	for i, pos := range best.Positions {
		key[i] = equalities[pos]
	}
	return best, key, true
}
