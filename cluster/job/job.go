package job

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Pseudo minions used for jobs that are not tied to a roster.
const (
	WheelMinion  = "WHEEL"
	RunnerMinion = "RUNNER"
)

const (
	wheelPrefix  = "wheel."
	runnerPrefix = "runners."

	startTimeLayout = "2006, Jan 02 15:04:05.000000"
)

// ErrDataShape is returned when a job payload lacks the fields needed
// to determine its minion roster.
var ErrDataShape = errors.New("job: minion list is missing in the result")

// Kind is the kind of roster a job has.
type Kind int8

// Kind constants.
const (
	KindTargeted Kind = iota
	KindWheel
	KindRunner
	KindUnknownRoster
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTargeted:
		return "targeted"
	case KindWheel:
		return "wheel"
	case KindRunner:
		return "runner"
	case KindUnknownRoster:
		return "unknown-roster"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

// Info is a job as returned by the jobs.list_job runner.
type Info struct {
	JID        string                `json:"jid"`
	Function   string                `json:"Function"`
	Arguments  interface{}           `json:"Arguments"`
	Target     interface{}           `json:"Target"`
	TargetType string                `json:"Target-type"`
	User       string                `json:"User"`
	StartTime  string                `json:"StartTime"`
	Minions    []string              `json:"Minions"`
	Result     map[string]ResultInfo `json:"Result"`
	Error      string                `json:"Error"`
}

// ResultInfo is a single minion result as returned by jobs.list_job.
type ResultInfo struct {
	Return  interface{} `json:"return"`
	Success bool        `json:"success"`
	Retcode *int        `json:"retcode"`
}

// Result is the outcome of a job on a minion.
type Result struct {
	Success bool
	Retcode int
	Return  interface{}
}

// OK determines if the result is successful.
func (r Result) OK() bool {
	return r.Success && r.Retcode == 0
}

// Notice is a banner shown above the job output.
type Notice struct {
	Info bool
	Text string
}

// noBreakSpace keeps a notice sign on the same line as its text.
const noBreakSpace = "\u00a0"

// String returns the notice with its sign.
func (n Notice) String() string {
	if n.Text == "" {
		return ""
	}
	if n.Info {
		return "ℹ" + noBreakSpace + n.Text
	}
	return "⚠" + noBreakSpace + n.Text
}

// Descriptor describes a job for a single view activation.
//
// A Descriptor must not be modified once created.
type Descriptor struct {
	ID            string
	Function      string
	CommandText   string
	TargetType    string
	Target        string
	User          string
	StartTime     time.Time
	StartTimeText string
	Kind          Kind

	// Roster is the explicit minion roster, nil when the job did not
	// report one.
	Roster []string

	// Results holds the minion results. A minion without an entry
	// has not responded.
	Results map[string]Result

	Notice Notice
}

// NewDescriptor creates a descriptor from job info.
func NewDescriptor(jid string, info Info) *Descriptor {
	results := make(map[string]Result, len(info.Result))
	for id, res := range info.Result {
		retcode := -1
		if res.Retcode != nil {
			retcode = *res.Retcode
		}
		results[id] = Result{Success: res.Success, Retcode: retcode, Return: res.Return}
	}

	var roster []string
	if info.Minions != nil {
		roster = make([]string, len(info.Minions))
		copy(roster, info.Minions)
	}

	kind, _ := Classify(info.Function, roster, results)

	d := &Descriptor{
		ID:            jid,
		Function:      info.Function,
		CommandText:   info.Function + DecodeArguments(info.Arguments),
		TargetType:    info.TargetType,
		Target:        targetString(info.Target),
		User:          info.User,
		StartTimeText: info.StartTime,
		Kind:          kind,
		Roster:        roster,
		Results:       results,
		Notice:        noticeFor(kind),
	}
	if t, err := time.Parse(startTimeLayout, info.StartTime); err == nil {
		d.StartTime = t
	}

	return d
}

// Minions returns the minions to display for the job.
func (d *Descriptor) Minions() []string {
	_, minions := Classify(d.Function, d.Roster, d.Results)
	return minions
}

// Title returns the job title.
func (d *Descriptor) Title() string {
	return d.CommandText + " on " + TargetText(d.TargetType, d.Target)
}

// ShapeError returns ErrDataShape when the roster had to be guessed.
func (d *Descriptor) ShapeError() error {
	if d.Kind != KindUnknownRoster {
		return nil
	}
	return fmt.Errorf("%s: %w", d.ID, ErrDataShape)
}

// Terminated determines if the job already has all its results.
func (d *Descriptor) Terminated() bool {
	if d.Roster == nil {
		return true
	}
	return len(d.Results) >= len(d.Roster)
}

// Classify determines the kind of job and the minions it should be displayed with.
func Classify(function string, roster []string, results map[string]Result) (Kind, []string) {
	switch {
	case roster != nil:
		return KindTargeted, roster
	case strings.HasPrefix(function, wheelPrefix):
		return KindWheel, []string{WheelMinion}
	case strings.HasPrefix(function, runnerPrefix):
		return KindRunner, []string{RunnerMinion}
	}

	minions := make([]string, 0, len(results))
	for id := range results {
		minions = append(minions, id)
	}
	sort.Strings(minions)
	return KindUnknownRoster, minions
}

func noticeFor(kind Kind) Notice {
	switch kind {
	case KindWheel:
		return Notice{Info: true, Text: "WHEEL jobs are not associated with minions"}
	case KindRunner:
		return Notice{Info: true, Text: "RUNNER jobs are not associated with minions"}
	case KindUnknownRoster:
		return Notice{Text: "minion list is missing in the result, thus cannot determine missing output"}
	default:
		return Notice{}
	}
}

func targetString(target interface{}) string {
	switch t := target.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, v := range t {
			parts = append(parts, fmt.Sprint(v))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// TargetText returns the human readable target of a job.
func TargetText(targetType, target string) string {
	switch targetType {
	case "", "glob", "list":
		return target
	default:
		return targetType + " " + target
	}
}
