package server

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-memdb"
	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/nrwiersma/saltconsole/cluster/rpc"
	"github.com/nrwiersma/saltconsole/cluster/state"
	"github.com/nrwiersma/saltconsole/cluster/status"
)

// ErrJobNotDisplayed is returned when a job is not being viewed.
var ErrJobNotDisplayed = errors.New("server: job not displayed")

// Job serves RPC calls about the displayed job.
type Job struct {
	view ViewDelegate
}

// TargetLists gets the re-run target lists of the job that are present.
func (j *Job) TargetLists(req *rpc.TargetListsRequest, resp *rpc.TargetListsResponse) error {
	d, err := j.descriptor(req.JobRequest)
	if err != nil {
		return err
	}

	lists := []struct {
		name string
		fn   func(*job.Descriptor) (string, bool)
	}{
		{name: "all", fn: job.AllMinionsList},
		{name: "unsuccessful", fn: job.UnsuccessfulMinionsList},
		{name: "failed", fn: job.FailedMinionsList},
		{name: "non-responding", fn: job.NonRespondingMinionsList},
	}
	for _, l := range lists {
		minions, ok := l.fn(d)
		if !ok {
			continue
		}
		resp.Lists = append(resp.Lists, rpc.TargetList{Name: l.name, Minions: minions})
	}

	return nil
}

// Menu gets the menu of the job.
func (j *Job) Menu(req *rpc.MenuRequest, resp *rpc.MenuResponse) error {
	d, err := j.descriptor(req.JobRequest)
	if err != nil {
		return err
	}

	_, stored, err := j.view.Store().Job(memdb.NewWatchSet(), d.ID)
	if err != nil {
		return err
	}
	running := stored != nil && stored.State == state.JobRunning

	for _, action := range job.Menu(d, running) {
		resp.Items = append(resp.Items, rpc.MenuItem{Label: action.Label, Command: action.Request.CLI()})
	}

	return nil
}

// Status gets the status of the job and its minions.
func (j *Job) Status(req *rpc.StatusRequest, resp *rpc.StatusResponse) error {
	d, err := j.descriptor(req.JobRequest)
	if err != nil {
		return err
	}

	snap := j.view.Store().Snapshot()
	defer snap.Close()

	stored, err := snap.Job(d.ID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("server: no status for job %s", d.ID)
	}
	resp.Index = snap.LastIndex()
	resp.Level = status.Level(stored.Level).String()
	resp.State = stored.State.String()
	resp.Error = stored.Error

	minions, err := snap.Minions(d.ID)
	if err != nil {
		return err
	}
	for _, m := range minions {
		resp.Minions = append(resp.Minions, rpc.Minion{ID: m.MinionID, State: m.State.String(), PID: m.PID})
	}

	return nil
}

func (j *Job) descriptor(req rpc.JobRequest) (*job.Descriptor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d, ok := j.view.Descriptor(req.JID)
	if !ok {
		return nil, ErrJobNotDisplayed
	}
	return d, nil
}
