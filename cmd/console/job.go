package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/hamba/cmd"
	"github.com/nrwiersma/saltconsole/cluster/event"
	"github.com/nrwiersma/saltconsole/cluster/job"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"
)

func runJob(c *cli.Context) error {
	ctx, err := cmd.NewContext(c)
	if err != nil {
		return err
	}

	jid, err := jidArg(c)
	if err != nil {
		return err
	}

	fileCfg, err := loadFileConfig(c.String(flagConfig))
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-cmd.WaitForSignals()
		cancel()
	}()

	client, err := newClient(runCtx, ctx)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, client, fileCfg, os.Stdout)
	if err != nil {
		return err
	}
	defer app.Close()

	if err = app.Show(runCtx, jid, c.String(flagMinion)); err != nil {
		return err
	}
	fmt.Println()
	if err = app.WriteMenu(); err != nil {
		return err
	}

	if !c.Bool(flagFollow) {
		return nil
	}

	src, err := newEventSource(runCtx, ctx, client)
	if err != nil {
		return err
	}
	defer src.Close()

	events, errs := event.Stream(runCtx, src)
	if err = app.Follow(runCtx, events, errs); err != nil && err != io.EOF {
		return errors.Wrap(err, "event stream failed")
	}
	return nil
}

func runTargets(c *cli.Context) error {
	ctx, err := cmd.NewContext(c)
	if err != nil {
		return err
	}

	jid, err := jidArg(c)
	if err != nil {
		return err
	}

	fileCfg, err := loadFileConfig(c.String(flagConfig))
	if err != nil {
		return err
	}

	client, err := newClient(context.Background(), ctx)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, client, fileCfg, io.Discard)
	if err != nil {
		return err
	}
	defer app.Close()

	if err = app.Show(context.Background(), jid, ""); err != nil {
		return err
	}

	lists, err := app.TargetLists(jid)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 10, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", "List", "Minions")
	for _, l := range lists {
		fmt.Fprintf(tw, "%s\t%s\n", l.Name, l.Minions)
	}
	return tw.Flush()
}

func jidArg(c *cli.Context) (string, error) {
	jid := c.Args().First()
	if !job.IsJID(jid) {
		return "", fmt.Errorf("invalid job id %q", jid)
	}
	return jid, nil
}
