package state

import (
	"github.com/hashicorp/go-memdb"
)

// Store is a job view state store.
type Store struct {
	schema *memdb.DBSchema
	db     *memdb.MemDB

	abandonCh chan struct{}
}

// New returns a job view state store.
func New() (*Store, error) {
	dbSchema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"index":   indexTableSchema(),
			"jobs":    jobsTableSchema(),
			"minions": minionsTableSchema(),
		},
	}

	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}

	return &Store{
		schema:    dbSchema,
		db:        db,
		abandonCh: make(chan struct{}),
	}, nil
}

// Abandon is used to signal that the given state store has been abandoned.
// Calling this more than one time will panic.
func (s *Store) Abandon() {
	close(s.abandonCh)
}

// AbandonCh returns a channel you can wait on to know if the state store was
// abandoned.
func (s *Store) AbandonCh() <-chan struct{} {
	return s.abandonCh
}

// Snapshot is used to create a point-in-time snapshot of the entire db.
func (s *Store) Snapshot() *Snapshot {
	tx := s.db.Txn(false)

	var tables []string
	for table := range s.schema.Tables {
		tables = append(tables, table)
	}
	idx := maxIndex(tx, tables...)

	return &Snapshot{tx, idx}
}

// Snapshot is used to provide a point-in-time snapshot. It
// works by starting a read transaction against the whole state store.
type Snapshot struct {
	tx        *memdb.Txn
	lastIndex uint64
}

// LastIndex returns that last index that affects the snapshotted data.
func (s *Snapshot) LastIndex() uint64 {
	return s.lastIndex
}

// Close performs cleanup of a state snapshot.
func (s *Snapshot) Close() {
	s.tx.Abort()
}

// IndexEntry keeps a record of the last index per-table.
type IndexEntry struct {
	Table string
	Index uint64
}

func indexTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: "index",
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:         "id",
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field:     "Table",
					Lowercase: true,
				},
			},
		},
	}
}

// nextIndex returns the index for a write in the given transaction.
// Write transactions are serialised, so the index is strictly increasing.
func nextIndex(tx *memdb.Txn) uint64 {
	return maxIndex(tx, "jobs", "minions") + 1
}

func updateIndex(tx *memdb.Txn, tbl string, idx uint64) error {
	return tx.Insert("index", &IndexEntry{Table: tbl, Index: idx})
}

func maxIndex(tx *memdb.Txn, tables ...string) uint64 {
	var max uint64

	for _, table := range tables {
		ti, err := tx.First("index", "id", table)
		if err != nil {
			continue
		}

		if idx, ok := ti.(*IndexEntry); ok && idx.Index > max {
			max = idx.Index
		}
	}
	return max
}

// Index returns the last index of the given tables as well as a watch
// channel that will be closed when any of them change.
func (s *Store) Index(ws memdb.WatchSet, tables ...string) (uint64, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	for _, table := range tables {
		iter, err := tx.Get("index", "id", table)
		if err != nil {
			return 0, err
		}
		ws.Add(iter.WatchCh())
	}
	return maxIndex(tx, tables...), nil
}
