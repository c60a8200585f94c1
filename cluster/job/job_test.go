package job_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listJob = `{
	"jid": "20190704194624366796",
	"Function": "test.rand_sleep",
	"Arguments": [{"__kwarg__": true, "s_time": 5}],
	"Target": ["m1", "m2", "m3"],
	"Target-type": "list",
	"User": "root",
	"StartTime": "2019, Jul 04 19:46:24.366796",
	"Minions": ["m1", "m2", "m3"],
	"Result": {
		"m1": {"return": true, "success": true, "retcode": 0},
		"m2": {"return": "boom", "success": false, "retcode": 1},
		"m4": {"return": true, "success": true}
	}
}`

func TestNewDescriptor(t *testing.T) {
	var info job.Info
	require.NoError(t, json.Unmarshal([]byte(listJob), &info))

	d := job.NewDescriptor("20190704194624366796", info)

	assert.Equal(t, "20190704194624366796", d.ID)
	assert.Equal(t, "test.rand_sleep s_time=5", d.CommandText)
	assert.Equal(t, "list", d.TargetType)
	assert.Equal(t, "m1,m2,m3", d.Target)
	assert.Equal(t, "test.rand_sleep s_time=5 on m1,m2,m3", d.Title())
	assert.Equal(t, job.KindTargeted, d.Kind)
	assert.Equal(t, []string{"m1", "m2", "m3"}, d.Minions())
	assert.Equal(t, time.Date(2019, time.July, 4, 19, 46, 24, 366796000, time.UTC), d.StartTime)
	assert.Equal(t, "", d.Notice.String())
	assert.NoError(t, d.ShapeError())
	assert.True(t, d.Results["m1"].OK())
	assert.False(t, d.Results["m2"].OK())
	assert.Equal(t, -1, d.Results["m4"].Retcode)
	assert.False(t, d.Results["m4"].OK())
	assert.True(t, d.Terminated())
}

func TestNewDescriptor_DoesNotShareRoster(t *testing.T) {
	info := job.Info{Function: "test.ping", Minions: []string{"m1", "m2"}}

	d := job.NewDescriptor("1", info)
	info.Minions[0] = "changed"

	assert.Equal(t, []string{"m1", "m2"}, d.Roster)
}

func TestClassify(t *testing.T) {
	results := map[string]job.Result{"b": {}, "a": {}}

	tests := []struct {
		name        string
		function    string
		roster      []string
		wantKind    job.Kind
		wantMinions []string
	}{
		{
			name:        "Explicit Roster",
			function:    "wheel.key.list_all",
			roster:      []string{"m1"},
			wantKind:    job.KindTargeted,
			wantMinions: []string{"m1"},
		},
		{
			name:        "Empty Roster",
			function:    "test.ping",
			roster:      []string{},
			wantKind:    job.KindTargeted,
			wantMinions: []string{},
		},
		{
			name:        "Wheel",
			function:    "wheel.key.list_all",
			wantKind:    job.KindWheel,
			wantMinions: []string{job.WheelMinion},
		},
		{
			name:        "Runner",
			function:    "runners.jobs.active",
			wantKind:    job.KindRunner,
			wantMinions: []string{job.RunnerMinion},
		},
		{
			name:        "Unknown Roster",
			function:    "test.ping",
			wantKind:    job.KindUnknownRoster,
			wantMinions: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, minions := job.Classify(tt.function, tt.roster, results)

			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantMinions, minions)
		})
	}
}

func TestDescriptor_Notices(t *testing.T) {
	wheel := job.NewDescriptor("1", job.Info{Function: "wheel.key.list_all"})
	runner := job.NewDescriptor("2", job.Info{Function: "runners.jobs.active"})
	unknown := job.NewDescriptor("3", job.Info{Function: "test.ping", Result: map[string]job.ResultInfo{"m1": {}}})

	assert.Equal(t, "ℹ\u00a0WHEEL jobs are not associated with minions", wheel.Notice.String())
	assert.Equal(t, "ℹ\u00a0RUNNER jobs are not associated with minions", runner.Notice.String())
	assert.Equal(t, "⚠\u00a0minion list is missing in the result, thus cannot determine missing output", unknown.Notice.String())
	assert.True(t, errors.Is(unknown.ShapeError(), job.ErrDataShape))
	assert.NoError(t, wheel.ShapeError())
}

func TestDescriptor_Terminated(t *testing.T) {
	tests := []struct {
		name    string
		roster  []string
		results map[string]job.Result
		want    bool
	}{
		{
			name: "No Roster",
			want: true,
		},
		{
			name:    "All Responded",
			roster:  []string{"m1", "m2"},
			results: map[string]job.Result{"m1": {}, "m2": {}},
			want:    true,
		},
		{
			name:    "Waiting",
			roster:  []string{"m1", "m2"},
			results: map[string]job.Result{"m1": {}},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &job.Descriptor{Roster: tt.roster, Results: tt.results}

			assert.Equal(t, tt.want, d.Terminated())
		})
	}
}

func TestDecodeArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want string
	}{
		{
			name: "No Arguments",
			raw:  nil,
			want: "",
		},
		{
			name: "Empty Arguments",
			raw:  []interface{}{},
			want: "",
		},
		{
			name: "Simple Strings",
			raw:  []interface{}{"pkg.installed", "nginx"},
			want: " pkg.installed nginx",
		},
		{
			name: "JID",
			raw:  []interface{}{"20190704194624366796"},
			want: " 20190704194624366796",
		},
		{
			name: "Quoted String",
			raw:  []interface{}{"hello world"},
			want: ` "hello world"`,
		},
		{
			name: "Numbers And Bools",
			raw:  []interface{}{float64(5), true},
			want: " 5 true",
		},
		{
			name: "Kwargs Are Sorted",
			raw:  []interface{}{"arg", map[string]interface{}{"__kwarg__": true, "b": "x y", "a": float64(1)}},
			want: ` arg a=1 b="x y"`,
		},
		{
			name: "Plain Object",
			raw:  []interface{}{map[string]interface{}{"a": "b"}},
			want: ` {"a":"b"}`,
		},
		{
			name: "Not An Array",
			raw:  "single",
			want: " single",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := job.DecodeArguments(tt.raw)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTargetText(t *testing.T) {
	assert.Equal(t, "*", job.TargetText("glob", "*"))
	assert.Equal(t, "m1,m2", job.TargetText("list", "m1,m2"))
	assert.Equal(t, "os:Debian", job.TargetText("", "os:Debian"))
	assert.Equal(t, "grain os:Debian", job.TargetText("grain", "os:Debian"))
}

func TestProject(t *testing.T) {
	d := descriptor([]string{"m1", "m2", "m3"}, map[string]job.Result{
		"m1": {Success: true, Return: "pong"},
		"m2": {Success: false, Retcode: 1, Return: "boom"},
		"m9": {Success: true, Return: "extra"},
	})
	format := func(v interface{}) string { return v.(string) }

	rows := job.Project(d, "m2", format)

	want := []job.Row{
		{Minion: "m1", Responded: true, OK: true, Output: "pong"},
		{Minion: "m2", Responded: true, OK: false, Output: "boom", Highlight: true},
		{Minion: "m3"},
		{Minion: "m9", Responded: true, OK: true, Output: "extra"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}
	assert.Len(t, d.Results, 3)
}

func TestProject_WheelUsesResultKeys(t *testing.T) {
	d := job.NewDescriptor("1", job.Info{
		Function: "wheel.key.list_all",
		Result:   map[string]job.ResultInfo{"master_master": {Success: true}},
	})

	rows := job.Project(d, "", nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "master_master", rows[0].Minion)
}

func TestEmbeddedJIDs(t *testing.T) {
	text := "started 20190704194624366796 and 20190704194624366797, again 20190704194624366796; not 12345"

	links := job.EmbeddedJIDs(text, "20190704194624366797")

	want := []job.Link{
		{JID: "20190704194624366796"},
		{JID: "20190704194624366797", Self: true},
	}
	assert.Equal(t, want, links)
	assert.Nil(t, job.EmbeddedJIDs("nothing here", ""))
}

func TestMenu(t *testing.T) {
	d := descriptor([]string{"m1", "m2", "m3"}, map[string]job.Result{"m1": ok, "m2": failed})
	d.TargetType = "glob"
	d.Target = "m*"
	d.CommandText = "test.ping"

	tests := []struct {
		name    string
		running bool
		want    []string
	}{
		{
			name:    "Running",
			running: true,
			want: []string{
				"Re-run job...",
				"Re-run job on all minions...",
				"Re-run job on unsuccessful minions...",
				"Re-run job on failed minions...",
				"Re-run job on non responding minions...",
				"Terminate job...",
				"Kill job...",
				"Signal job...",
			},
		},
		{
			name:    "Not Running",
			running: false,
			want: []string{
				"Re-run job...",
				"Re-run job on all minions...",
				"Re-run job on unsuccessful minions...",
				"Re-run job on failed minions...",
				"Re-run job on non responding minions...",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := job.Menu(d, tt.running)

			var labels []string
			for _, a := range actions {
				labels = append(labels, a.Label)
			}
			assert.Equal(t, tt.want, labels)
		})
	}
}

func TestMenu_Requests(t *testing.T) {
	d := descriptor([]string{"m1", "m2", "m3"}, map[string]job.Result{"m1": ok, "m2": failed})
	d.TargetType = "glob"
	d.Target = "m*"
	d.CommandText = "test.ping"

	actions := job.Menu(d, true)

	require.Len(t, actions, 8)
	assert.Equal(t, job.RunRequest{TargetType: "glob", Target: "m*", Command: "test.ping"}, actions[0].Request)
	assert.Equal(t, job.RunRequest{TargetType: "list", Target: "m2,m3", Command: "test.ping"}, actions[2].Request)
	assert.Equal(t, job.RunRequest{TargetType: "glob", Target: "m*", Command: "saltutil.signal_job 20190704194624366796 signal=<signalnumber>"}, actions[7].Request)
}

func TestMenu_EmptyJob(t *testing.T) {
	actions := job.Menu(&job.Descriptor{}, false)

	assert.Empty(t, actions)
}

func TestProcessActions(t *testing.T) {
	actions := job.ProcessActions("m1", 4242)

	want := []job.Action{
		{Label: "Show process info...", Request: job.RunRequest{Target: "m1", Command: "ps.proc_info 4242"}},
		{Label: "Terminate process...", Request: job.RunRequest{Target: "m1", Command: "ps.kill_pid 4242 signal=15"}},
		{Label: "Kill process...", Request: job.RunRequest{Target: "m1", Command: "ps.kill_pid 4242 signal=9"}},
		{Label: "Signal process...", Request: job.RunRequest{Target: "m1", Command: "ps.kill_pid 4242 signal=<signalnumber>"}},
	}
	assert.Equal(t, want, actions)
}

func TestRunRequest_CLI(t *testing.T) {
	tests := []struct {
		name string
		req  job.RunRequest
		want string
	}{
		{
			name: "Glob",
			req:  job.RunRequest{TargetType: "glob", Target: "*", Command: "test.ping"},
			want: "salt '*' test.ping",
		},
		{
			name: "List",
			req:  job.RunRequest{TargetType: "list", Target: "m1,m2", Command: "test.ping"},
			want: "salt -L 'm1,m2' test.ping",
		},
		{
			name: "Single Minion",
			req:  job.RunRequest{Target: "m1", Command: "ps.proc_info 1"},
			want: "salt 'm1' ps.proc_info 1",
		},
		{
			name: "Quote In Target",
			req:  job.RunRequest{TargetType: "compound", Target: "G@os:it's", Command: "test.ping"},
			want: `salt -C 'G@os:it'\''s' test.ping`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.CLI())
		})
	}
}
