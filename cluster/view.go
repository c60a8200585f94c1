package cluster

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/hashicorp/go-memdb"
	"github.com/nrwiersma/saltconsole/cluster/event"
	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/nrwiersma/saltconsole/cluster/render"
	"github.com/nrwiersma/saltconsole/cluster/server"
	"github.com/nrwiersma/saltconsole/cluster/state"
	"github.com/nrwiersma/saltconsole/cluster/status"
	pkgerrors "github.com/pkg/errors"
	"github.com/segmentio/ksuid"
)

// ErrClosed is returned when using a closed view.
var ErrClosed = errors.New("view: closed")

type detailResult struct {
	info job.Info
	err  error
}

type activeResult struct {
	active job.ActiveJobs
	err    error
}

// View is the view of a single job. Each call to Show starts a new
// activation, discarding responses of any earlier activation.
type View struct {
	config *Config
	log    log.Logger

	statter    stats.Statter
	reg        *status.Registry
	classifier *status.Classifier
	srv        *server.Server

	mu         sync.Mutex
	activation ksuid.KSUID
	jid        string
	minion     string
	store      *state.Store
	merger     *status.Merger
	desc       *job.Descriptor
	panel      *render.Panel
	closed     bool
}

// New returns a job view.
func New(cfg *Config) (*View, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("view: fetcher cannot be nil")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.New(io.Discard, render.DefaultTheme(), false)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Null
	}
	statter := cfg.Statter
	if statter == nil {
		statter = stats.Null
	}

	store, err := state.New()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "view: creating state store")
	}

	v := &View{
		config:     cfg,
		log:        logger,
		statter:    statter,
		reg:        status.NewRegistry(),
		classifier: status.NewClassifier(cfg.Ignored...),
		store:      store,
	}
	srv, err := server.New(v)
	if err != nil {
		return nil, err
	}
	v.srv = srv

	return v, nil
}

// Show shows a job, highlighting the given minion. The job detail and
// the active jobs are fetched concurrently, but the active jobs are
// only reconciled once the job detail is shown.
//
// A failure to fetch the job detail is shown in place of the job and
// returned.
func (v *View) Show(ctx context.Context, jid, minion string) error {
	id, store, merger, err := v.activate(jid, minion)
	if err != nil {
		return err
	}

	details := make(chan detailResult, 1)
	actives := make(chan activeResult, 1)
	go func() {
		info, err := v.config.Fetcher.JobDetail(ctx, jid)
		details <- detailResult{info: info, err: err}
	}()
	go func() {
		active, err := v.config.Fetcher.ActiveJobs(ctx)
		actives <- activeResult{active: active, err: err}
	}()

	var detail detailResult
	select {
	case detail = <-details:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := v.showDetail(id, jid, minion, store, detail); err != nil {
		return err
	}

	var active activeResult
	select {
	case active = <-actives:
	case <-ctx.Done():
		return ctx.Err()
	}
	return v.reconcile(id, jid, merger, active)
}

// RefreshActive fetches the active jobs again and reconciles them with
// the shown job.
func (v *View) RefreshActive(ctx context.Context) error {
	v.mu.Lock()
	id, jid, merger, shown := v.activation, v.jid, v.merger, v.desc != nil
	v.mu.Unlock()

	if !shown {
		return nil
	}

	active, err := v.config.Fetcher.ActiveJobs(ctx)
	return v.reconcile(id, jid, merger, activeResult{active: active, err: err})
}

func (v *View) activate(jid, minion string) (ksuid.KSUID, *state.Store, *status.Merger, error) {
	store, err := state.New()
	if err != nil {
		return ksuid.Nil, nil, nil, pkgerrors.Wrap(err, "view: creating state store")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ksuid.Nil, nil, nil, ErrClosed
	}

	if err := v.release(); err != nil {
		v.log.Error("Could not release shown job", "jid", v.jid, "error", err)
	}

	old := v.store
	v.activation = ksuid.New()
	v.jid, v.minion = jid, minion
	v.store = store
	v.merger = status.NewMerger(status.Config{
		Store:      store,
		Registry:   v.reg,
		Classifier: v.classifier,
		Logger:     v.log,
		Statter:    v.statter,
	})
	v.desc, v.panel = nil, nil
	old.Abandon()

	v.log.Debug("Showing job", "jid", jid, "activation", v.activation.String())

	return v.activation, store, v.merger, nil
}

func (v *View) showDetail(id ksuid.KSUID, jid, minion string, store *state.Store, detail detailResult) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id != v.activation {
		v.log.Debug("Discarding stale job detail", "jid", jid, "activation", id.String())
		return nil
	}

	if detail.err != nil {
		v.statter.Inc("fetch.error", 1, 1.0)
		v.panel = v.config.Renderer.ErrorPanel(jid, detail.err)
		return detail.err
	}

	d := job.NewDescriptor(jid, detail.info)
	if err := d.ShapeError(); err != nil {
		v.log.Info("Job has no minion roster", "jid", jid, "error", err)
	}
	panel := v.config.Renderer.NewPanel(d, minion)

	if err := store.EnsureJob(jid); err != nil {
		return err
	}
	for _, row := range panel.Rows() {
		minionState := state.MinionNoResponse
		if row.Responded() {
			minionState = state.MinionResponded
		}
		if err := store.EnsureMinion(&state.Minion{JobID: jid, MinionID: row.Minion(), State: minionState}); err != nil {
			return err
		}
		v.reg.AddRow(jid, row.Minion(), row)
	}

	jobState := state.JobRunning
	if d.Terminated() {
		jobState = state.JobTerminated
		panel.ShowDone()
	} else {
		panel.ShowLoading()
	}
	if err := store.SetJobState(jid, jobState); err != nil {
		return err
	}

	v.reg.AddJob(jid, panel, panel)
	v.desc, v.panel = d, panel

	return nil
}

func (v *View) reconcile(id ksuid.KSUID, jid string, merger *status.Merger, active activeResult) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id != v.activation || v.desc == nil {
		v.log.Debug("Discarding stale active jobs", "jid", jid, "activation", id.String())
		return nil
	}

	if active.err != nil {
		v.log.Error("Could not fetch active jobs", "jid", jid, "error", active.err)
	}
	return merger.ReconcileActiveRoster(jid, active.active, active.err)
}

// HandleEvent applies a completion event to the shown job. It returns
// true if the severity of the job changed.
func (v *View) HandleEvent(e event.Event) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.merger == nil || v.closed {
		return false, nil
	}
	return v.merger.Apply(e)
}

// JID returns the id of the shown job.
func (v *View) JID() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.jid
}

// Panel returns the panel of the shown job, or nil if nothing is shown.
func (v *View) Panel() *render.Panel {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.panel
}

// Store returns the state store of the current activation.
func (v *View) Store() *state.Store {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.store
}

// Descriptor returns the descriptor of the shown job.
func (v *View) Descriptor(jid string) (*job.Descriptor, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.desc == nil || v.desc.ID != jid {
		return nil, false
	}
	return v.desc, true
}

// Terminated determines if the shown job is known to be terminated.
func (v *View) Terminated() bool {
	v.mu.Lock()
	jid, store := v.jid, v.store
	v.mu.Unlock()

	_, stored, err := store.Job(memdb.NewWatchSet(), jid)
	if err != nil || stored == nil {
		return false
	}
	return stored.State == state.JobTerminated
}

// Menu returns the menu of the shown job.
func (v *View) Menu() []job.Action {
	v.mu.Lock()
	d, store := v.desc, v.store
	v.mu.Unlock()

	if d == nil {
		return nil
	}

	_, stored, err := store.Job(memdb.NewWatchSet(), d.ID)
	if err != nil {
		v.log.Error("Could not get job state", "jid", d.ID, "error", err)
		return job.Menu(d, false)
	}
	return job.Menu(d, stored != nil && stored.State == state.JobRunning)
}

// Call makes an in memory RPC call about the shown job.
func (v *View) Call(method string, req, resp interface{}) error {
	return v.srv.Call(method, req, resp)
}

// Close closes the view. Responses arriving after the view is closed
// are discarded.
func (v *View) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}

	v.closed = true
	v.activation = ksuid.Nil
	v.merger = nil

	return v.release()
}

// release removes the displayed jobs from the registry and the store,
// so that late responses for them find nothing.
func (v *View) release() error {
	var errs []error
	for _, jid := range v.reg.Jobs() {
		v.reg.RemoveJob(jid)
		if err := v.store.DeleteJob(jid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
