package main

import (
	"log"
	"os"

	"github.com/hamba/cmd"
	"gopkg.in/urfave/cli.v2"
)

import _ "github.com/joho/godotenv/autoload"

const (
	flagAPIURL   = "api-url"
	flagToken    = "token"
	flagUsername = "username"
	flagPassword = "password"
	flagEAuth    = "eauth"
	flagMinion   = "minion"
	flagFollow   = "follow"
	flagEventBus = "event-bus"
	flagRefresh  = "refresh"
	flagConfig   = "config"
	flagNoColor  = "no-color"
)

var version = "¯\\_(ツ)_/¯"

var apiFlags = cmd.Flags{
	&cli.StringFlag{
		Name:    flagAPIURL,
		Usage:   "The salt-api url.",
		Value:   "http://localhost:8000",
		EnvVars: []string{"SALT_API_URL"},
	},
	&cli.StringFlag{
		Name:    flagToken,
		Usage:   "The salt-api authentication token.",
		EnvVars: []string{"SALT_API_TOKEN"},
	},
	&cli.StringFlag{
		Name:    flagUsername,
		Usage:   "The salt-api username, used when no token is given.",
		EnvVars: []string{"SALT_API_USERNAME"},
	},
	&cli.StringFlag{
		Name:    flagPassword,
		Usage:   "The salt-api password, used when no token is given.",
		EnvVars: []string{"SALT_API_PASSWORD"},
	},
	&cli.StringFlag{
		Name:    flagEAuth,
		Usage:   "The salt-api external authentication system.",
		Value:   "pam",
		EnvVars: []string{"SALT_API_EAUTH"},
	},
	&cli.StringFlag{
		Name:    flagConfig,
		Usage:   "The path to a yaml configuration file.",
		EnvVars: []string{"SALTCONSOLE_CONFIG"},
	},
}

var commands = []*cli.Command{
	{
		Name:      "job",
		Usage:     "Show a job and its menu",
		ArgsUsage: "<jid>",
		Flags: cmd.Flags{
			&cli.StringFlag{
				Name:    flagMinion,
				Usage:   "The minion to highlight.",
				EnvVars: []string{"SALTCONSOLE_MINION"},
			},
			&cli.BoolFlag{
				Name:    flagFollow,
				Usage:   "Follow the job until it terminates.",
				EnvVars: []string{"SALTCONSOLE_FOLLOW"},
			},
			&cli.StringFlag{
				Name:    flagEventBus,
				Usage:   "The path to the master event bus. The salt-api event stream is used when empty.",
				EnvVars: []string{"SALTCONSOLE_EVENT_BUS"},
			},
			&cli.DurationFlag{
				Name:    flagRefresh,
				Usage:   "The interval at which active jobs are fetched while following.",
				EnvVars: []string{"SALTCONSOLE_REFRESH"},
			},
			&cli.BoolFlag{
				Name:    flagNoColor,
				Usage:   "Disable colour output.",
				EnvVars: []string{"NO_COLOR"},
			},
		}.Merge(apiFlags).Merge(cmd.CommonFlags),
		Action: runJob,
	},
	{
		Name:      "targets",
		Usage:     "Print the re-run target lists of a job",
		ArgsUsage: "<jid>",
		Flags:     apiFlags.Merge(cmd.CommonFlags),
		Action:    runTargets,
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "saltconsole",
		Usage:    "A terminal console for salt jobs",
		Version:  version,
		Commands: commands,
	}
}

func main() {
	app := newApp()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
