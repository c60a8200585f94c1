package main

import (
	"os"
	"time"

	"github.com/nrwiersma/saltconsole/cluster/render"
	"github.com/nrwiersma/saltconsole/cluster/status"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional yaml configuration file.
type fileConfig struct {
	// Ignore are the functions whose completion events are ignored.
	Ignore []string `yaml:"ignore"`

	// Theme are the colours of the job panel.
	Theme render.Theme `yaml:"theme"`

	// Refresh is the interval at which active jobs are fetched while
	// following a job.
	Refresh time.Duration `yaml:"refresh"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Ignore: status.DefaultIgnored,
		Theme:  render.DefaultTheme(),
	}
}

func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config: reading file")
	}

	return parseFileConfig(b)
}

func parseFileConfig(b []byte) (fileConfig, error) {
	cfg := defaultFileConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "config: parsing file")
	}
	return cfg, nil
}
