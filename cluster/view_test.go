package cluster_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/nrwiersma/saltconsole/cluster"
	"github.com/nrwiersma/saltconsole/cluster/event"
	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/nrwiersma/saltconsole/cluster/render"
	"github.com/nrwiersma/saltconsole/cluster/rpc"
	"github.com/nrwiersma/saltconsole/cluster/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jid = "20190704194624366796"

type fetcher struct {
	info    job.Info
	infoErr error

	active    job.ActiveJobs
	activeErr error

	// wait blocks the active jobs fetch until closed.
	wait chan struct{}
}

func (f *fetcher) JobDetail(ctx context.Context, id string) (job.Info, error) {
	return f.info, f.infoErr
}

func (f *fetcher) ActiveJobs(ctx context.Context) (job.ActiveJobs, error) {
	if f.wait != nil {
		select {
		case <-f.wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.active, f.activeErr
}

func intPtr(i int) *int { return &i }

func boolPtr(b bool) *bool { return &b }

func runningInfo() job.Info {
	return job.Info{
		JID:        jid,
		Function:   "test.sleep",
		Arguments:  []interface{}{float64(60)},
		Target:     "*",
		TargetType: "glob",
		Minions:    []string{"m1", "m2", "m3"},
		Result: map[string]job.ResultInfo{
			"m1": {Return: true, Success: true, Retcode: intPtr(0)},
			"m2": {Return: false, Success: false, Retcode: intPtr(1)},
		},
	}
}

func newView(t *testing.T, f *fetcher) *cluster.View {
	t.Helper()

	cfg := cluster.NewConfig()
	cfg.Fetcher = f
	cfg.Renderer = render.New(&bytes.Buffer{}, render.DefaultTheme(), false)

	v, err := cluster.New(cfg)
	require.NoError(t, err)

	return v
}

func labels(actions []job.Action) []string {
	var l []string
	for _, a := range actions {
		l = append(l, a.Label)
	}
	return l
}

func TestNew_RequiresFetcher(t *testing.T) {
	_, err := cluster.New(cluster.NewConfig())

	assert.Error(t, err)
}

func TestView_Show(t *testing.T) {
	f := &fetcher{
		info: runningInfo(),
		active: job.ActiveJobs{
			jid: {Running: []map[string]int{{"m3": 1234}}},
		},
	}
	v := newView(t, f)

	err := v.Show(context.Background(), jid, "m2")

	require.NoError(t, err)
	p := v.Panel()
	require.NotNil(t, p)
	assert.Contains(t, p.Render(), "1 active")
	rows := p.Rows()
	require.Len(t, rows, 3)
	assert.Len(t, rows[2].Actions(), 4)
	assert.False(t, v.Terminated())
	assert.Contains(t, labels(v.Menu()), "Kill job...")
}

func TestView_ShowTerminated(t *testing.T) {
	info := runningInfo()
	info.Result["m3"] = job.ResultInfo{Return: true, Success: true, Retcode: intPtr(0)}
	f := &fetcher{info: info, active: job.ActiveJobs{}}
	v := newView(t, f)

	err := v.Show(context.Background(), jid, "")

	require.NoError(t, err)
	assert.True(t, v.Terminated())
	assert.Contains(t, v.Panel().Render(), "done")
	assert.NotContains(t, labels(v.Menu()), "Kill job...")
}

func TestView_ShowAbsentFromActiveIsDone(t *testing.T) {
	f := &fetcher{info: runningInfo(), active: job.ActiveJobs{}}
	v := newView(t, f)

	err := v.Show(context.Background(), jid, "")

	require.NoError(t, err)
	assert.True(t, v.Terminated())
	assert.Contains(t, v.Panel().Render(), "done")
}

func TestView_ShowDetailError(t *testing.T) {
	f := &fetcher{infoErr: errors.New("connection refused")}
	v := newView(t, f)

	err := v.Show(context.Background(), jid, "")

	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, "ERROR\nconnection refused\n", v.Panel().Render())
	assert.Nil(t, v.Menu())
}

func TestView_ShowActiveError(t *testing.T) {
	f := &fetcher{info: runningInfo(), activeErr: errors.New("timeout")}
	v := newView(t, f)

	err := v.Show(context.Background(), jid, "")

	require.NoError(t, err)
	assert.Contains(t, v.Panel().Render(), "(error) timeout")
	assert.False(t, v.Terminated())
}

func TestView_HandleEvent(t *testing.T) {
	f := &fetcher{info: runningInfo(), active: job.ActiveJobs{jid: {Running: []map[string]int{{"m3": 1}}}}}
	v := newView(t, f)
	require.NoError(t, v.Show(context.Background(), jid, ""))

	events := []event.Event{
		{Tag: "salt/job/" + jid + "/ret/m3", JID: jid, Fun: "test.sleep", Minion: "m3", Success: boolPtr(true), Retcode: intPtr(2)},
		{Tag: "salt/job/" + jid + "/ret/m3", JID: jid, Fun: "test.sleep", Minion: "m3", Success: boolPtr(true), Retcode: intPtr(0)},
		{Tag: "salt/job/" + jid + "/ret/m3", JID: jid, Fun: "saltutil.find_job", Minion: "m3", Success: boolPtr(false)},
		{Tag: "salt/job/20190704194624366797/ret/m3", JID: "20190704194624366797", Fun: "test.sleep", Minion: "m3"},
	}
	var changed []bool
	for _, e := range events {
		ok, err := v.HandleEvent(e)
		require.NoError(t, err)
		changed = append(changed, ok)
	}

	assert.Equal(t, []bool{true, false, false, false}, changed)
	assert.Equal(t, status.SuccessWithSkips, v.Panel().Level())
}

func TestView_CloseDiscardsStaleResponses(t *testing.T) {
	f := &fetcher{
		info:   runningInfo(),
		active: job.ActiveJobs{jid: {Running: []map[string]int{{"m3": 1234}}}},
		wait:   make(chan struct{}),
	}
	v := newView(t, f)

	done := make(chan error, 1)
	go func() {
		done <- v.Show(context.Background(), jid, "")
	}()

	// Wait for the detail to be shown before closing.
	for i := 0; v.Panel() == nil; i++ {
		require.True(t, i < 1000, "job detail not shown")
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, v.Close())
	close(f.wait)

	require.NoError(t, <-done)
	assert.Contains(t, v.Panel().Render(), "(loading)")
	assert.Nil(t, v.Panel().Rows()[2].Actions())

	ok, err := v.HandleEvent(event.Event{Tag: "salt/job/" + jid + "/ret/m3", JID: jid, Fun: "test.sleep", Success: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, cluster.ErrClosed, v.Show(context.Background(), jid, ""))
}

func TestView_Call(t *testing.T) {
	f := &fetcher{info: runningInfo(), active: job.ActiveJobs{jid: {Running: []map[string]int{{"m3": 1234}}}}}
	v := newView(t, f)
	require.NoError(t, v.Show(context.Background(), jid, ""))

	var lists rpc.TargetListsResponse
	err := v.Call("Job.TargetLists", &rpc.TargetListsRequest{JobRequest: rpc.JobRequest{JID: jid}}, &lists)
	require.NoError(t, err)
	assert.Equal(t, []rpc.TargetList{
		{Name: "all", Minions: "m1,m2,m3"},
		{Name: "unsuccessful", Minions: "m2,m3"},
		{Name: "failed", Minions: "m2"},
		{Name: "non-responding", Minions: "m3"},
	}, lists.Lists)

	var menu rpc.MenuResponse
	err = v.Call("Job.Menu", &rpc.MenuRequest{JobRequest: rpc.JobRequest{JID: jid}}, &menu)
	require.NoError(t, err)
	require.NotEmpty(t, menu.Items)
	assert.Equal(t, "Re-run job...", menu.Items[0].Label)
	assert.Equal(t, "salt '*' test.sleep 60", menu.Items[0].Command)

	var st rpc.StatusResponse
	err = v.Call("Job.Status", &rpc.StatusRequest{JobRequest: rpc.JobRequest{JID: jid}}, &st)
	require.NoError(t, err)
	assert.Equal(t, "running", st.State)
	assert.Equal(t, "unknown", st.Level)
	assert.Equal(t, []rpc.Minion{
		{ID: "m1", State: "responded"},
		{ID: "m2", State: "responded"},
		{ID: "m3", State: "active", PID: 1234},
	}, st.Minions)
}

func TestView_CallUnknownJob(t *testing.T) {
	v := newView(t, &fetcher{info: runningInfo(), active: job.ActiveJobs{}})
	require.NoError(t, v.Show(context.Background(), jid, ""))

	var lists rpc.TargetListsResponse
	err := v.Call("Job.TargetLists", &rpc.TargetListsRequest{JobRequest: rpc.JobRequest{JID: "20190704194624366797"}}, &lists)

	assert.EqualError(t, err, "server: job not displayed")
}

func TestView_CloseReleasesShownJob(t *testing.T) {
	f := &fetcher{
		info:   runningInfo(),
		active: job.ActiveJobs{jid: {Running: []map[string]int{{"m3": 1234}}}},
	}
	v := newView(t, f)
	require.NoError(t, v.Show(context.Background(), jid, ""))
	store := v.Store()

	err := v.Close()

	require.NoError(t, err)
	_, j, err := store.Job(memdb.NewWatchSet(), jid)
	require.NoError(t, err)
	assert.Nil(t, j)
	_, minions, err := store.Minions(memdb.NewWatchSet(), jid)
	require.NoError(t, err)
	assert.Empty(t, minions)
}

func TestView_ShowAgainReleasesPreviousJob(t *testing.T) {
	f := &fetcher{
		info:   runningInfo(),
		active: job.ActiveJobs{jid: {Running: []map[string]int{{"m3": 1234}}}},
	}
	v := newView(t, f)
	require.NoError(t, v.Show(context.Background(), jid, ""))
	old := v.Store()

	err := v.Show(context.Background(), jid, "m1")

	require.NoError(t, err)
	_, j, err := old.Job(memdb.NewWatchSet(), jid)
	require.NoError(t, err)
	assert.Nil(t, j)
	_, j, err = v.Store().Job(memdb.NewWatchSet(), jid)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "running", j.State.String())
}
