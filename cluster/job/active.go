package job

import "sort"

// Process is a job process running on a minion.
type Process struct {
	Minion string
	PID    int
}

// Active is the active state of a job.
type Active struct {
	Running []map[string]int `json:"Running"`
}

// Processes returns the running processes of the job, in listing order.
func (a Active) Processes() []Process {
	var procs []Process
	for _, running := range a.Running {
		minions := make([]string, 0, len(running))
		for minion := range running {
			minions = append(minions, minion)
		}
		sort.Strings(minions)

		for _, minion := range minions {
			procs = append(procs, Process{Minion: minion, PID: running[minion]})
		}
	}
	return procs
}

// ActiveJobs is a listing of the active jobs by job id.
type ActiveJobs map[string]Active
