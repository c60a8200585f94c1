package job

import (
	"strconv"
	"strings"
)

// SignalPlaceholder is the placeholder for a signal number the user
// still has to fill in.
const SignalPlaceholder = "<signalnumber>"

// Standard signals offered on running processes.
const (
	SignalTerm = 15
	SignalKill = 9
)

var targetFlags = map[string]string{
	"list":        "-L",
	"compound":    "-C",
	"grain":       "-G",
	"grain_pcre":  "-P",
	"pcre":        "-E",
	"nodegroup":   "-N",
	"pillar":      "-I",
	"pillar_pcre": "-J",
	"ipcidr":      "-S",
	"range":       "-R",
}

// RunRequest is a command to run on a target.
type RunRequest struct {
	TargetType string
	Target     string
	Command    string
}

// CLI returns the equivalent salt command line.
func (r RunRequest) CLI() string {
	parts := []string{"salt"}
	if flag, ok := targetFlags[r.TargetType]; ok {
		parts = append(parts, flag)
	}
	parts = append(parts, "'"+strings.ReplaceAll(r.Target, "'", `'\''`)+"'")
	if r.Command != "" {
		parts = append(parts, r.Command)
	}
	return strings.Join(parts, " ")
}

// Action is a labelled menu action.
type Action struct {
	Label   string
	Request RunRequest
}

// Menu returns the job menu actions that currently apply.
//
// The job level terminate, kill and signal actions are only offered
// when the job is known to be running.
func Menu(d *Descriptor, running bool) []Action {
	var actions []Action

	if d.Target != "" || d.CommandText != "" {
		actions = append(actions, Action{
			Label:   "Re-run job...",
			Request: RunRequest{TargetType: d.TargetType, Target: d.Target, Command: d.CommandText},
		})
	}

	lists := []struct {
		label string
		fn    func(*Descriptor) (string, bool)
	}{
		{label: "Re-run job on all minions...", fn: AllMinionsList},
		{label: "Re-run job on unsuccessful minions...", fn: UnsuccessfulMinionsList},
		{label: "Re-run job on failed minions...", fn: FailedMinionsList},
		{label: "Re-run job on non responding minions...", fn: NonRespondingMinionsList},
	}
	for _, l := range lists {
		lst, ok := l.fn(d)
		if !ok {
			continue
		}
		actions = append(actions, Action{
			Label:   l.label,
			Request: RunRequest{TargetType: "list", Target: lst, Command: d.CommandText},
		})
	}

	if !running {
		return actions
	}

	jobCmds := []struct {
		label string
		cmd   string
	}{
		{label: "Terminate job...", cmd: "saltutil.term_job " + d.ID},
		{label: "Kill job...", cmd: "saltutil.kill_job " + d.ID},
		{label: "Signal job...", cmd: "saltutil.signal_job " + d.ID + " signal=" + SignalPlaceholder},
	}
	for _, c := range jobCmds {
		actions = append(actions, Action{
			Label:   c.label,
			Request: RunRequest{TargetType: d.TargetType, Target: d.Target, Command: c.cmd},
		})
	}

	return actions
}

// ProcessActions returns the actions for a process of a job still
// running on a minion.
func ProcessActions(minion string, pid int) []Action {
	p := strconv.Itoa(pid)
	req := func(cmd string) RunRequest {
		return RunRequest{Target: minion, Command: cmd}
	}

	return []Action{
		{Label: "Show process info...", Request: req("ps.proc_info " + p)},
		{Label: "Terminate process...", Request: req("ps.kill_pid " + p + " signal=" + strconv.Itoa(SignalTerm))},
		{Label: "Kill process...", Request: req("ps.kill_pid " + p + " signal=" + strconv.Itoa(SignalKill))},
		{Label: "Signal process...", Request: req("ps.kill_pid " + p + " signal=" + SignalPlaceholder)},
	}
}
