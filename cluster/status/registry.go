package status

import (
	"sort"
	"sync"

	"github.com/nrwiersma/saltconsole/cluster/job"
)

// StatusHandle marks the severity of a displayed job.
type StatusHandle interface {
	MarkSeverity(lvl Level)
}

// SummaryHandle displays the run state of a job.
type SummaryHandle interface {
	ShowError(msg string)
	ShowDone()
	ShowRunning(n int)
}

// RowHandle displays a minion row of a job.
type RowHandle interface {
	MarkActive(pid int, actions []job.Action)
}

type rowKey struct {
	jid    string
	minion string
}

// Registry tracks the display handles of the jobs being viewed.
type Registry struct {
	mu      sync.RWMutex
	status  map[string]StatusHandle
	summary map[string]SummaryHandle
	rows    map[rowKey]RowHandle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		status:  make(map[string]StatusHandle),
		summary: make(map[string]SummaryHandle),
		rows:    make(map[rowKey]RowHandle),
	}
}

// AddJob adds the handles of a displayed job.
func (r *Registry) AddJob(jid string, status StatusHandle, summary SummaryHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if status != nil {
		r.status[jid] = status
	}
	if summary != nil {
		r.summary[jid] = summary
	}
}

// AddRow adds the handle of a displayed minion row.
func (r *Registry) AddRow(jid, minion string, row RowHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows[rowKey{jid: jid, minion: minion}] = row
}

// RemoveJob removes all handles of a job.
func (r *Registry) RemoveJob(jid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.status, jid)
	delete(r.summary, jid)
	for key := range r.rows {
		if key.jid == jid {
			delete(r.rows, key)
		}
	}
}

// Status looks up the status handle of a job.
func (r *Registry) Status(jid string) (StatusHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.status[jid]
	return h, ok
}

// Summary looks up the summary handle of a job.
func (r *Registry) Summary(jid string) (SummaryHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.summary[jid]
	return h, ok
}

// Row looks up the row handle of a minion of a job.
func (r *Registry) Row(jid, minion string) (RowHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.rows[rowKey{jid: jid, minion: minion}]
	return h, ok
}

// Jobs returns the ids of all jobs with registered handles.
func (r *Registry) Jobs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.status))
	for jid := range r.status {
		seen[jid] = struct{}{}
	}
	for jid := range r.summary {
		seen[jid] = struct{}{}
	}
	for key := range r.rows {
		seen[key.jid] = struct{}{}
	}

	jids := make([]string, 0, len(seen))
	for jid := range seen {
		jids = append(jids, jid)
	}
	sort.Strings(jids)
	return jids
}
