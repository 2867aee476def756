package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/fetcher"
	"github.com/tie/cmpdl/manifest"
	"github.com/tie/cmpdl/modloader"
	"github.com/tie/cmpdl/pack"
	"github.com/tie/cmpdl/pipeline"
	"github.com/tie/cmpdl/progress"
)

type DownloadCommand struct {
	MultiMC bool
	Server  bool
	Zip     bool
	Output  string
}

func (*DownloadCommand) Name() string     { return "download" }
func (*DownloadCommand) Synopsis() string { return "download a modpack" }
func (*DownloadCommand) Usage() string {
	return `Usage: cmpdl download [-m | -s] [-z] [-o dir] <url or zip path>

	Downloads a Curse modpack and its mods. The bare form
	"cmpdl [flags] <file>" is the same command.

Flags:
`
}

func (cmd *DownloadCommand) SetFlags(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.MultiMC, "m", false, "alias for -multimc")
	fs.BoolVar(&cmd.MultiMC, "multimc", false, "create a MultiMC instance")
	fs.BoolVar(&cmd.Server, "s", false, "alias for -server")
	fs.BoolVar(&cmd.Server, "server", false, "install the server side only")
	fs.BoolVar(&cmd.Zip, "z", false, "alias for -zip")
	fs.BoolVar(&cmd.Zip, "zip", false, "use a local zip file instead of a URL")
	fs.StringVar(&cmd.Output, "o", "", "alias for -output")
	fs.StringVar(&cmd.Output, "output", "", "output `dir` (default is the pack name)")
}

func (cmd *DownloadCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := args[0].(*app)
	files, err := parseInterspersed(fs, fs.Args())
	if err != nil {
		return subcommands.ExitUsageError
	}
	return cmd.download(ctx, a, files)
}

func (cmd *DownloadCommand) download(ctx context.Context, a *app, files []string) subcommands.ExitStatus {
	if len(files) != 1 {
		logrus.Errorf("expected exactly one modpack URL or path, got %d", len(files))
		return subcommands.ExitUsageError
	}
	if cmd.MultiMC && cmd.Server {
		logrus.Error("-multimc and -server are mutually exclusive")
		return subcommands.ExitUsageError
	}

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

	client := newClient()
	opts := pipeline.Options{
		Source:    source(files[0], cmd.Zip),
		Mode:      cmd.mode(),
		OutputDir: cmd.Output,
		Filter: pack.Filter{
			ClientOnly: cfg.ClientOnly,
			Exclude:    cfg.Exclude,
		},
		Loader: &manifest.Loader{
			Client:    client,
			UserAgent: cfg.UserAgent,
		},
		Fetcher: &fetcher.Fetcher{
			Cache:     c,
			Client:    client,
			APIURL:    cfg.APIURL,
			APIKey:    cfg.APIKey,
			UserAgent: cfg.UserAgent,
		},
	}
	if opts.Mode == cmpdl.ModeServer {
		opts.Installer = &modloader.Installer{
			Client:    client,
			UserAgent: cfg.UserAgent,
		}
	}
	if cfg.APIKey == "" {
		logrus.Warn("No API key set, file lookups may be rejected")
	}

	if istty, _ := fdinfo(int(os.Stderr.Fd())); istty && !a.Quiet && !a.Debug {
		ctx = progress.WithWriter(ctx, os.Stderr)
	}

	if _, err := pipeline.Run(ctx, opts); err != nil {
		logrus.Errorf("download %s: %v", opts.Source, err)
		return exitStatus(err)
	}
	return subcommands.ExitSuccess
}

func (cmd *DownloadCommand) mode() cmpdl.Mode {
	switch {
	case cmd.MultiMC:
		return cmpdl.ModeMultiMC
	case cmd.Server:
		return cmpdl.ModeServer
	}
	return cmpdl.ModeInstance
}

func source(arg string, zip bool) cmpdl.Source {
	if zip {
		return cmpdl.Local{Path: arg}
	}
	return cmpdl.Remote{URL: arg}
}

func exitStatus(err error) subcommands.ExitStatus {
	var perr *cmpdl.ManifestParseError
	switch {
	case errors.As(err, &perr):
		return exitParseError
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	}
	return subcommands.ExitFailure
}
