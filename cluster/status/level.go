// Package status merges job completion events and active job snapshots
// into a per job severity level.
package status

import (
	"github.com/nrwiersma/saltconsole/cluster/event"
)

// Level is the severity level of a job.
type Level int8

// Level constants, in increasing severity.
const (
	Unknown Level = iota
	Success
	SuccessWithSkips
	Failed
)

// String returns the level as a string.
func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case SuccessWithSkips:
		return "success-with-skips"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultIgnored are the housekeeping functions whose events are ignored.
var DefaultIgnored = []string{"saltutil.find_job", "saltutil.running"}

// Classifier classifies completion events into levels.
type Classifier struct {
	ignored map[string]struct{}
}

// NewClassifier returns a classifier ignoring events of the given
// functions, or of DefaultIgnored when none are given.
func NewClassifier(ignore ...string) *Classifier {
	if len(ignore) == 0 {
		ignore = DefaultIgnored
	}

	ignored := make(map[string]struct{}, len(ignore))
	for _, fun := range ignore {
		ignored[fun] = struct{}{}
	}

	return &Classifier{ignored: ignored}
}

// Classify returns the level of a completion event. It returns false
// if the event should be ignored. Only return events are expected, see
// event.Stream.
func (c *Classifier) Classify(e event.Event) (Level, bool) {
	if e.JID == "" {
		return Unknown, false
	}
	if _, ok := c.ignored[e.Fun]; ok {
		return Unknown, false
	}

	success := e.Success != nil && *e.Success
	switch {
	case success && e.Retcode != nil && *e.Retcode == 0:
		return Success, true
	case success:
		return SuccessWithSkips, true
	default:
		return Failed, true
	}
}
