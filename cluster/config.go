package cluster

import (
	"context"

	"github.com/hamba/pkg/log"
	"github.com/hamba/pkg/stats"
	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/nrwiersma/saltconsole/cluster/render"
	"github.com/nrwiersma/saltconsole/cluster/status"
)

// Fetcher fetches job information.
type Fetcher interface {
	JobDetail(ctx context.Context, jid string) (job.Info, error)
	ActiveJobs(ctx context.Context) (job.ActiveJobs, error)
}

// Config holds the configuration for a View.
type Config struct {
	// Fetcher fetches the job detail and active jobs.
	Fetcher Fetcher

	// Renderer renders the job panel.
	Renderer *render.Renderer

	// Ignored are the functions whose completion events are ignored.
	Ignored []string

	// Logger is the logger to log to.
	Logger log.Logger

	// Statter is the statter to report to.
	Statter stats.Statter
}

// NewConfig creates/returns a default configuration.
func NewConfig() *Config {
	ignored := make([]string, len(status.DefaultIgnored))
	copy(ignored, status.DefaultIgnored)

	return &Config{
		Ignored: ignored,
	}
}
