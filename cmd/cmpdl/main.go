package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl/config"
	"github.com/tie/cmpdl/logging"
	"github.com/tie/cmpdl/version"
)

const programName = config.ProgramName

const (
	exitParseError  subcommands.ExitStatus = 3
	exitInterrupted subcommands.ExitStatus = 99
)

// app holds the global flags shared by all commands.
type app struct {
	ConfigPath string
	Quiet      bool
	Debug      bool
	Version    bool
	ClearCache bool

	cfg *config.Config
}

func (a *app) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&a.ConfigPath, "c", "", "alias for -config")
	fs.StringVar(&a.ConfigPath, "config", "", "config file `path` (default "+config.DefaultConfigPath+")")
	fs.BoolVar(&a.Quiet, "q", false, "alias for -quiet")
	fs.BoolVar(&a.Quiet, "quiet", false, "only print errors")
	fs.BoolVar(&a.Debug, "d", false, "alias for -debug")
	fs.BoolVar(&a.Debug, "debug", false, "print debug messages")
	fs.BoolVar(&a.Version, "v", false, "alias for -version")
	fs.BoolVar(&a.Version, "version", false, "print version and exit")
	fs.BoolVar(&a.ClearCache, "clear-cache", false, "clear the download cache and exit")
}

// Config loads the configuration once.
func (a *app) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

func main() {
	os.Exit(int(run(os.Args[1:])))
}

func run(args []string) subcommands.ExitStatus {
	a := &app{}
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	var help bool
	fs.BoolVar(&help, "h", false, "alias for help")
	fs.BoolVar(&help, "help", false, "print usage")
	a.SetFlags(fs)

	// Flags of the bare "cmpdl [flags] <file>" form.
	bare := &DownloadCommand{}
	bare.SetFlags(fs)

	cdr := subcommands.NewCommander(fs, programName)
	commands := []subcommands.Command{
		&DownloadCommand{},
		&CleanCommand{},
		&SumsCommand{},
		&FormatCommand{},
		&VersionCommand{},
	}
	for _, cmd := range commands {
		cdr.Register(cmd, "")
	}
	cdr.Register(cdr.HelpCommand(), "help")
	cdr.Register(cdr.FlagsCommand(), "help")
	cdr.Register(cdr.CommandsCommand(), "help")
	names := map[string]bool{"help": true, "flags": true, "commands": true}
	for _, cmd := range commands {
		names[cmd.Name()] = true
	}

	if err := fs.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	// Without a command name, flags may follow the file argument.
	var files []string
	if fs.NArg() > 0 && !names[fs.Arg(0)] {
		var err error
		files, err = parseInterspersed(fs, fs.Args())
		if err != nil {
			return subcommands.ExitUsageError
		}
	}
	if help {
		fs.Usage()
		return subcommands.ExitSuccess
	}
	if a.Quiet && a.Debug {
		logrus.Error("-quiet and -debug are mutually exclusive")
		return subcommands.ExitUsageError
	}

	_, color := fdinfo(int(os.Stderr.Fd()))
	logging.Setup(os.Stderr, a.Quiet, a.Debug, color)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	status := dispatch(ctx, a, fs, cdr, files, bare)
	if ctx.Err() != nil {
		logrus.Error("Interrupted")
		return exitInterrupted
	}
	return status
}

func dispatch(ctx context.Context, a *app, fs *flag.FlagSet, cdr *subcommands.Commander, files []string, bare *DownloadCommand) subcommands.ExitStatus {
	switch {
	case a.Version:
		version.Print(os.Stdout)
		return subcommands.ExitSuccess
	case a.ClearCache:
		return (&CleanCommand{}).Execute(ctx, fs, a)
	case len(files) > 0:
		return bare.download(ctx, a, files)
	case fs.NArg() > 0:
		return cdr.Execute(ctx, a)
	}
	fs.Usage()
	return subcommands.ExitUsageError
}

// parseInterspersed parses flags anywhere in args and returns the
// remaining positional arguments in order. Everything after "--" is
// positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		consumed := args[:len(args)-len(rest)]
		if n := len(consumed); n > 0 && consumed[n-1] == "--" {
			return append(pos, rest...), nil
		}
		if len(rest) == 0 {
			return pos, nil
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}
