package main

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/hamba/cmd"
	"github.com/nrwiersma/saltconsole"
	"github.com/nrwiersma/saltconsole/cluster"
	"github.com/nrwiersma/saltconsole/cluster/event"
	"github.com/nrwiersma/saltconsole/cluster/render"
	"github.com/nrwiersma/saltconsole/cluster/saltapi"
	"github.com/pkg/errors"
)

// Application =============================

func newApplication(c *cmd.Context, client *saltapi.Client, fileCfg fileConfig, w io.Writer) (*saltconsole.Application, error) {
	renderer := render.New(w, fileCfg.Theme, !c.Bool(flagNoColor))

	view, err := newView(c, client, fileCfg, renderer)
	if err != nil {
		return nil, err
	}

	refresh := fileCfg.Refresh
	if d := c.Duration(flagRefresh); d > 0 {
		refresh = d
	}

	return saltconsole.NewApplication(saltconsole.Config{
		View:            view,
		Renderer:        renderer,
		RefreshInterval: refresh,
		Logger:          c.Logger(),
		Statter:         c.Statter(),
	})
}

// View ====================================

func newView(c *cmd.Context, client *saltapi.Client, fileCfg fileConfig, renderer *render.Renderer) (*cluster.View, error) {
	cfg := cluster.NewConfig()
	cfg.Fetcher = client
	cfg.Renderer = renderer
	cfg.Logger = c.Logger()
	cfg.Statter = c.Statter()
	if len(fileCfg.Ignore) > 0 {
		cfg.Ignored = fileCfg.Ignore
	}

	return cluster.New(cfg)
}

// Client ==================================

func newClient(ctx context.Context, c *cmd.Context) (*saltapi.Client, error) {
	client := saltapi.New(c.String(flagAPIURL), saltapi.WithToken(c.String(flagToken)))
	if client.Token() != "" {
		return client, nil
	}

	username := c.String(flagUsername)
	if username == "" {
		return nil, errors.New("a token or username is required")
	}
	if err := client.Login(ctx, username, c.String(flagPassword), c.String(flagEAuth)); err != nil {
		return nil, errors.Wrap(err, "could not login")
	}
	return client, nil
}

// Events ==================================

type eventSource interface {
	event.Reader
	io.Closer
}

type busSource struct {
	*event.BusReader
	io.Closer
}

func newEventSource(ctx context.Context, c *cmd.Context, client *saltapi.Client) (eventSource, error) {
	path := c.String(flagEventBus)
	if path == "" {
		stream, err := client.Events(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "could not open event stream")
		}
		return stream, nil
	}

	conn, err := openEventBus(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open event bus")
	}
	return busSource{BusReader: event.NewBusReader(conn), Closer: conn}, nil
}

func openEventBus(path string) (io.ReadCloser, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.Mode()&os.ModeSocket != 0 {
		return net.Dial("unix", path)
	}
	return os.Open(path)
}
