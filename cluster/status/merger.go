package status

import (
	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/nrwiersma/saltconsole/cluster/event"
	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/nrwiersma/saltconsole/cluster/state"
)

// Config configures a merger.
type Config struct {
	Store      *state.Store
	Registry   *Registry
	Classifier *Classifier

	Logger  log.Logger
	Statter stats.Statter
}

// Merger merges completion events and active job snapshots into the
// state store and the displayed jobs.
type Merger struct {
	store      *state.Store
	reg        *Registry
	classifier *Classifier

	logger  log.Logger
	statter stats.Statter
}

// NewMerger returns a merger.
func NewMerger(cfg Config) *Merger {
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Null
	}
	if cfg.Statter == nil {
		cfg.Statter = stats.Null
	}

	return &Merger{
		store:      cfg.Store,
		reg:        cfg.Registry,
		classifier: cfg.Classifier,
		logger:     cfg.Logger,
		statter:    cfg.Statter,
	}
}

// Apply classifies a completion event and applies its level. It returns
// true if the level of a displayed job changed.
func (m *Merger) Apply(e event.Event) (bool, error) {
	m.statter.Inc("events.received", 1, 1.0)

	lvl, ok := m.classifier.Classify(e)
	if !ok {
		m.statter.Inc("events.ignored", 1, 1.0)
		return false, nil
	}

	return m.ApplyLevel(e.JID, lvl)
}

// ApplyLevel stores the level of a job and marks its severity when the
// job is displayed and the level is higher than the stored level.
func (m *Merger) ApplyLevel(jid string, lvl Level) (bool, error) {
	h, ok := m.reg.Status(jid)
	if !ok {
		return false, nil
	}

	applied, err := m.store.RaiseLevel(jid, int(lvl))
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	h.MarkSeverity(lvl)
	m.statter.Inc("levels.applied", 1, 1.0)
	m.logger.Debug("Job level raised", "jid", jid, "level", lvl.String())

	return true, nil
}

// ReconcileActiveRoster reconciles the active job listing, or the error
// fetching it, with the displayed job.
func (m *Merger) ReconcileActiveRoster(jid string, active job.ActiveJobs, err error) error {
	summary, ok := m.reg.Summary(jid)
	if !ok {
		m.logger.Debug("Discarding active jobs for job not on display", "jid", jid)
		return nil
	}

	if err != nil {
		m.statter.Inc("fetch.error", 1, 1.0)
		summary.ShowError(err.Error())
		return m.store.SetJobError(jid, err.Error())
	}

	info, ok := active[jid]
	if !ok {
		summary.ShowDone()
		return m.store.SetJobState(jid, state.JobTerminated)
	}

	procs := info.Processes()
	summary.ShowRunning(len(info.Running))
	if err = m.store.SetJobState(jid, state.JobRunning); err != nil {
		return err
	}

	for _, proc := range procs {
		upgraded, err := m.store.SetMinionActive(jid, proc.Minion, proc.PID)
		if err != nil {
			return err
		}
		if !upgraded {
			continue
		}

		if row, ok := m.reg.Row(jid, proc.Minion); ok {
			row.MarkActive(proc.PID, job.ProcessActions(proc.Minion, proc.PID))
		}
	}
	return nil
}
