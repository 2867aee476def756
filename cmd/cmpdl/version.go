package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/tie/cmpdl/version"
)

type VersionCommand struct {
}

func (*VersionCommand) Name() string     { return "version" }
func (*VersionCommand) Synopsis() string { return "print version" }
func (*VersionCommand) Usage() string {
	return `Usage: cmpdl version
`
}

func (cmd *VersionCommand) SetFlags(f *flag.FlagSet) {
}

func (cmd *VersionCommand) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	version.Print(os.Stdout)
	return subcommands.ExitSuccess
}
