package saltconsole

import (
	"context"
	"errors"
	"time"

	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/nrwiersma/saltconsole/cluster/event"
	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/nrwiersma/saltconsole/cluster/render"
	"github.com/nrwiersma/saltconsole/cluster/rpc"
	"github.com/nrwiersma/saltconsole/cluster/state"
)

// DefaultRefreshInterval is the default interval at which the active jobs
// are fetched while following a job.
const DefaultRefreshInterval = 10 * time.Second

// View represents a job view.
type View interface {
	Show(ctx context.Context, jid, minion string) error
	RefreshActive(ctx context.Context) error
	HandleEvent(e event.Event) (bool, error)
	Panel() *render.Panel
	Menu() []job.Action
	Terminated() bool
	Store() *state.Store
	Call(method string, req, resp interface{}) error
}

// Config configures an application.
type Config struct {
	View     View
	Renderer *render.Renderer

	// RefreshInterval is the interval at which the active jobs are
	// fetched while following a job.
	RefreshInterval time.Duration

	Logger  log.Logger
	Statter stats.Statter
}

// Application represents the application.
type Application struct {
	view     View
	renderer *render.Renderer
	db       *DB
	refresh  time.Duration

	logger  log.Logger
	statter stats.Statter
}

// NewApplication creates an instance of Application.
func NewApplication(cfg Config) (*Application, error) {
	if cfg.View == nil {
		return nil, errors.New("app: view cannot be nil")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("app: renderer cannot be nil")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Null
	}
	if cfg.Statter == nil {
		cfg.Statter = stats.Null
	}

	db, err := NewDB(cfg.View)
	if err != nil {
		return nil, err
	}

	return &Application{
		view:     cfg.View,
		renderer: cfg.Renderer,
		db:       db,
		refresh:  cfg.RefreshInterval,
		logger:   cfg.Logger,
		statter:  cfg.Statter,
	}, nil
}

// Show shows a job and writes its panel. A failure to fetch the job is
// written in place of the job and returned.
func (a *Application) Show(ctx context.Context, jid, minion string) error {
	showErr := a.view.Show(ctx, jid, minion)

	if err := a.render(); err != nil {
		return err
	}
	return showErr
}

// WriteMenu writes the menu of the shown job.
func (a *Application) WriteMenu() error {
	return a.renderer.WriteMenu(a.view.Menu())
}

// TargetLists returns the re-run target lists of a shown job.
func (a *Application) TargetLists(jid string) ([]rpc.TargetList, error) {
	req := rpc.TargetListsRequest{JobRequest: rpc.JobRequest{JID: jid}}
	var resp rpc.TargetListsResponse
	if err := a.view.Call("Job.TargetLists", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Lists, nil
}

// Follow applies completion events to the shown job, writing its panel
// whenever its state changes. It returns when the context is done, the
// job is terminated or the event stream fails.
func (a *Application) Follow(ctx context.Context, events <-chan event.Event, errs <-chan error) error {
	ticker := time.NewTicker(a.refresh)
	defer ticker.Stop()

	for {
		if a.view.Terminated() {
			a.logger.Info("Job terminated, stopping")
			return a.render()
		}

		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-events:
			if !ok {
				return a.streamError(ctx, errs)
			}

			if _, err := a.view.HandleEvent(e); err != nil {
				a.logger.Error("Could not apply event", "jid", e.JID, "error", err)
			}

		case <-ticker.C:
			a.statter.Inc("refresh", 1, 1.0)
			if err := a.view.RefreshActive(ctx); err != nil {
				a.logger.Error("Could not refresh active jobs", "error", err)
			}

		case idx := <-a.db.Changes():
			a.logger.Debug("Job state changed", "index", idx)
			if err := a.render(); err != nil {
				return err
			}
		}
	}
}

func (a *Application) streamError(ctx context.Context, errs <-chan error) error {
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (a *Application) render() error {
	p := a.view.Panel()
	if p == nil {
		return nil
	}
	return a.renderer.Write(p)
}

// Close closes the application.
func (a *Application) Close() error {
	return a.db.Close()
}
