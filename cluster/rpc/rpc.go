package rpc

import (
	"errors"

	"github.com/nrwiersma/saltconsole/cluster/job"
)

// ErrInvalidJID is returned when a request has an invalid job id.
var ErrInvalidJID = errors.New("rpc: invalid job id")

// JobRequest is used to request information about a job.
type JobRequest struct {
	JID string
}

// Validate validates the request.
func (r JobRequest) Validate() error {
	if !job.IsJID(r.JID) {
		return ErrInvalidJID
	}
	return nil
}

// TargetListsRequest is used to request the re-run target lists of a job.
type TargetListsRequest struct {
	JobRequest
}

// TargetList is a named re-run target list.
type TargetList struct {
	Name    string
	Minions string
}

// TargetListsResponse holds the target lists that are present.
type TargetListsResponse struct {
	Lists []TargetList
}

// MenuRequest is used to request the menu of a job.
type MenuRequest struct {
	JobRequest
}

// MenuItem is a menu action and its salt command line.
type MenuItem struct {
	Label   string
	Command string
}

// MenuResponse holds the menu of a job.
type MenuResponse struct {
	Items []MenuItem
}

// StatusRequest is used to request the status of a job.
type StatusRequest struct {
	JobRequest
}

// Minion is the status of a minion of a job.
type Minion struct {
	ID    string
	State string
	PID   int
}

// StatusResponse holds the status of a job.
type StatusResponse struct {
	// Index is the store index the status was read at.
	Index   uint64
	Level   string
	State   string
	Error   string
	Minions []Minion
}
