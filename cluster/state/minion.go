package state

import (
	"fmt"

	"github.com/hashicorp/go-memdb"
)

// MinionState is the state of a minion row.
type MinionState int8

// Minion state constants.
const (
	MinionNoResponse MinionState = iota
	MinionActive
	MinionResponded
)

// String returns the minion state as a string.
func (s MinionState) String() string {
	switch s {
	case MinionActive:
		return "active"
	case MinionResponded:
		return "responded"
	default:
		return "no response yet"
	}
}

// Minion is used to store the state of a minion row of a job.
type Minion struct {
	JobID    string
	MinionID string
	State    MinionState
	PID      int

	Index uint64
}

func minionsTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: "minions",
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:         "id",
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.CompoundIndex{
					Indexes: []memdb.Indexer{
						&memdb.StringFieldIndex{Field: "JobID"},
						&memdb.StringFieldIndex{Field: "MinionID"},
					},
				},
			},
			"job": {
				Name:         "job",
				AllowMissing: false,
				Unique:       false,
				Indexer: &memdb.StringFieldIndex{
					Field: "JobID",
				},
			},
		},
	}
}

// Minions returns the minions of a job in the snapshot.
func (s *Snapshot) Minions(jobID string) ([]*Minion, error) {
	iter, err := s.tx.Get("minions", "job", jobID)
	if err != nil {
		return nil, err
	}
	return collectMinions(iter), nil
}

// Minions returns the minions of a job as well as a watch channel that
// will be closed when the minions change.
func (s *Store) Minions(ws memdb.WatchSet, jobID string) (uint64, []*Minion, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	idx := maxIndex(tx, "minions")
	iter, err := tx.Get("minions", "job", jobID)
	if err != nil {
		return 0, nil, fmt.Errorf("db: minion lookup failed: %w", err)
	}
	ws.Add(iter.WatchCh())

	return idx, collectMinions(iter), nil
}

func collectMinions(iter memdb.ResultIterator) []*Minion {
	var minions []*Minion
	for next := iter.Next(); next != nil; next = iter.Next() {
		minions = append(minions, next.(*Minion))
	}
	return minions
}

// EnsureMinion inserts a minion row in the database, replacing any
// existing row.
func (s *Store) EnsureMinion(minion *Minion) error {
	tx := s.db.Txn(true)
	defer tx.Abort()

	if err := insertMinionTx(tx, minion); err != nil {
		return err
	}

	tx.Commit()
	return nil
}

// SetMinionActive upgrades a minion row that has not responded yet to
// active with the given process id. It returns true if the row was
// upgraded.
func (s *Store) SetMinionActive(jobID, minionID string, pid int) (bool, error) {
	tx := s.db.Txn(true)
	defer tx.Abort()

	existing, err := tx.First("minions", "id", jobID, minionID)
	if err != nil {
		return false, fmt.Errorf("db: minion lookup failed: %w", err)
	}
	if existing == nil {
		return false, nil
	}
	minion := *existing.(*Minion)
	if minion.State != MinionNoResponse {
		return false, nil
	}
	minion.State = MinionActive
	minion.PID = pid

	if err := insertMinionTx(tx, &minion); err != nil {
		return false, err
	}

	tx.Commit()
	return true, nil
}

func insertMinionTx(tx *memdb.Txn, minion *Minion) error {
	idx := nextIndex(tx)
	minion.Index = idx

	if err := tx.Insert("minions", minion); err != nil {
		return fmt.Errorf("db: failed inserting minion: %w", err)
	}
	if err := updateIndex(tx, "minions", idx); err != nil {
		return fmt.Errorf("failed updating index: %w", err)
	}
	return nil
}
