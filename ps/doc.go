// Package ps provides the persistence layer for flintdb tables.
//
// Every table is its own Git repository, managed with go-git. The
// descriptor is stored as table.desc and every row as a blob under rows/.
// Each write operation creates a Git commit, so a table keeps its full
// history.
//
// # Memory Persistence
//
// For tables declared with STORAGE=memory:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage:
//
//	persistence, err := ps.NewFilePersistence("/path/to/customers.flintdb")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Transaction Batching
//
// For improved write performance, use TransactionBuilder:
//
//	txn, _ := persistence.BeginTransaction()
//	txn.AddRow(1, data1)
//	txn.AddRow(2, data2)
//	result, _ := txn.Commit(identity)
//
// # Indexing
//
// Indexes are ordered trees over key tuples, rebuilt from the rows when a
// table is opened:
//
//	im := ps.NewIndexManager(&meta)
//	im.Add(rowid, values)
//	idx, _ := im.GetIndex("primary")
//	ids := idx.Lookup(ps.Key{core.Int64Value(7)})
package ps
