package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

type CleanCommand struct {
}

func (*CleanCommand) Name() string     { return "clean" }
func (*CleanCommand) Synopsis() string { return "remove cached files" }
func (*CleanCommand) Usage() string {
	return `Usage: cmpdl clean

	Removes all downloaded mods from the cache. Same as -clear-cache.
`
}

func (cmd *CleanCommand) SetFlags(f *flag.FlagSet) {
}

func (cmd *CleanCommand) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := args[0].(*app)
	cfg, err := a.Config()
	if err != nil {
		logrus.Errorf("load config: %+v", err)
		return subcommands.ExitFailure
	}
	c, err := openCache(cfg)
	if err != nil {
		logrus.Errorf("open cache %q: %+v", cfg.CacheDir, err)
		return subcommands.ExitFailure
	}
	defer closeCache(c)

	if err := c.Clear(); err != nil {
		logrus.Errorf("clean %q: %+v", cfg.CacheDir, err)
		return subcommands.ExitFailure
	}
	logrus.Infof("Cleared cache in %q", cfg.CacheDir)
	return subcommands.ExitSuccess
}
