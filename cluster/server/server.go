// Package server answers questions about the shown job over net/rpc,
// without a network connection.
package server

import (
	"fmt"
	"net/rpc"

	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/nrwiersma/saltconsole/cluster/state"
	"github.com/nrwiersma/saltconsole/pkg/memcodec"
)

// serviceName is the name the job service is registered under.
const serviceName = "Job"

// ViewDelegate represents the view whose job is served.
type ViewDelegate interface {
	Store() *state.Store
	Descriptor(jid string) (*job.Descriptor, bool)
}

// Server serves in memory calls about the shown job.
type Server struct {
	rpc *rpc.Server
}

// New returns a server for the job shown in view.
func New(view ViewDelegate) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(serviceName, &Job{view: view}); err != nil {
		return nil, fmt.Errorf("server: registering %s service: %w", serviceName, err)
	}

	return &Server{rpc: srv}, nil
}

// Call calls method, e.g. "Job.Status", with req and decodes the reply
// into resp. Errors returned by the method itself are returned as is.
func (s *Server) Call(method string, req, resp interface{}) error {
	codec := memcodec.New(method, req, resp)
	if err := s.rpc.ServeRequest(codec); err != nil {
		return fmt.Errorf("server: calling %s: %w", method, err)
	}
	return codec.Error
}
