package state

import (
	"fmt"

	"github.com/hashicorp/go-memdb"
)

// JobState is the run state of a job.
type JobState int8

// Job state constants.
const (
	JobUnknown JobState = iota
	JobRunning
	JobTerminated
)

// String returns the job state as a string.
func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Job is used to store the status of a displayed job.
type Job struct {
	ID    string
	Level int
	State JobState
	Error string

	Index uint64
}

func jobsTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: "jobs",
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:         "id",
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field: "ID",
				},
			},
		},
	}
}

// Job returns the job with the given id in the snapshot, or nil.
func (s *Snapshot) Job(id string) (*Job, error) {
	job, err := s.tx.First("jobs", "id", id)
	if err != nil {
		return nil, fmt.Errorf("db: job lookup failed: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	return job.(*Job), nil
}

// Job returns a job with the given id or nil, as well as a watch channel
// that will be closed when the job changes.
func (s *Store) Job(ws memdb.WatchSet, id string) (uint64, *Job, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	idx := maxIndex(tx, "jobs")
	iter, err := tx.Get("jobs", "id", id)
	if err != nil {
		return 0, nil, fmt.Errorf("db: job lookup failed: %w", err)
	}
	ws.Add(iter.WatchCh())

	if job := iter.Next(); job != nil {
		return idx, job.(*Job), nil
	}
	return idx, nil, nil
}

// EnsureJob inserts a job with an unknown level and state if it does
// not exist yet.
func (s *Store) EnsureJob(id string) error {
	tx := s.db.Txn(true)
	defer tx.Abort()

	existing, err := tx.First("jobs", "id", id)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if err := insertJobTx(tx, &Job{ID: id}); err != nil {
		return err
	}

	tx.Commit()
	return nil
}

// RaiseLevel stores the level of a job when it is higher than the
// stored level. It returns true if the level was stored.
func (s *Store) RaiseLevel(id string, level int) (bool, error) {
	tx := s.db.Txn(true)
	defer tx.Abort()

	job, err := jobTx(tx, id)
	if err != nil {
		return false, err
	}
	if level <= job.Level {
		return false, nil
	}
	job.Level = level

	if err := insertJobTx(tx, job); err != nil {
		return false, err
	}

	tx.Commit()
	return true, nil
}

// SetJobState sets the run state of a job, clearing any error.
func (s *Store) SetJobState(id string, state JobState) error {
	return s.updateJob(id, func(job *Job) {
		job.State = state
		job.Error = ""
	})
}

// SetJobError records a failure to determine the run state of a job.
func (s *Store) SetJobError(id, msg string) error {
	return s.updateJob(id, func(job *Job) {
		job.Error = msg
	})
}

func (s *Store) updateJob(id string, fn func(job *Job)) error {
	tx := s.db.Txn(true)
	defer tx.Abort()

	job, err := jobTx(tx, id)
	if err != nil {
		return err
	}
	fn(job)

	if err := insertJobTx(tx, job); err != nil {
		return err
	}

	tx.Commit()
	return nil
}

// DeleteJob deletes a job and its minions from the database.
func (s *Store) DeleteJob(id string) error {
	tx := s.db.Txn(true)
	defer tx.Abort()

	job, err := tx.First("jobs", "id", id)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	idx := nextIndex(tx)
	if err := tx.Delete("jobs", job); err != nil {
		return err
	}
	if err := updateIndex(tx, "jobs", idx); err != nil {
		return fmt.Errorf("failed updating index: %w", err)
	}

	n, err := tx.DeleteAll("minions", "job", id)
	if err != nil {
		return err
	}
	if n > 0 {
		if err := updateIndex(tx, "minions", idx); err != nil {
			return fmt.Errorf("failed updating index: %w", err)
		}
	}

	tx.Commit()
	return nil
}

// jobTx returns a copy of the job with the given id, creating it if
// it does not exist. Stored objects must not be modified in place.
func jobTx(tx *memdb.Txn, id string) (*Job, error) {
	existing, err := tx.First("jobs", "id", id)
	if err != nil {
		return nil, fmt.Errorf("db: job lookup failed: %w", err)
	}
	if existing == nil {
		return &Job{ID: id}, nil
	}

	job := *existing.(*Job)
	return &job, nil
}

func insertJobTx(tx *memdb.Txn, job *Job) error {
	idx := nextIndex(tx)
	job.Index = idx

	if err := tx.Insert("jobs", job); err != nil {
		return fmt.Errorf("db: failed inserting job: %w", err)
	}
	if err := updateIndex(tx, "jobs", idx); err != nil {
		return fmt.Errorf("failed updating index: %w", err)
	}
	return nil
}
