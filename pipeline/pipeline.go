// Package pipeline runs a modpack download from the manifest source to
// the finished layout.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/builder"
	"github.com/tie/cmpdl/builder/dir"
	"github.com/tie/cmpdl/builder/multimc"
	"github.com/tie/cmpdl/builder/server"
	"github.com/tie/cmpdl/fetcher"
	"github.com/tie/cmpdl/manifest"
	"github.com/tie/cmpdl/pack"
	"github.com/tie/cmpdl/progress"
)

type State int

const (
	Start State = iota
	ManifestLoaded
	Resolving
	LayoutWritten
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case ManifestLoaded:
		return "manifest loaded"
	case Resolving:
		return "resolving"
	case LayoutWritten:
		return "layout written"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Options struct {
	Source cmpdl.Source
	Mode   cmpdl.Mode

	// OutputDir defaults to the pack name in the current directory.
	OutputDir string

	Filter pack.Filter

	Loader  *manifest.Loader
	Fetcher *fetcher.Fetcher

	// Installer fetches the mod loader installer in server mode. Nil skips it.
	Installer server.LoaderInstaller

	// OnState is called on every state transition. For Resolving, i is
	// the 1-based index of the entry out of n.
	OnState func(s State, i, n int)
}

type Result struct {
	Manifest  cmpdl.Manifest
	OutputDir string
	Files     []cmpdl.ResolvedFile
	Stats     fetcher.Stats
}

type run struct {
	opts  Options
	state State
}

func (r *run) set(s State, i, n int) {
	r.state = s
	if s == Resolving {
		logrus.Debugf("state: %s %d/%d", s, i, n)
	} else {
		logrus.Debugf("state: %s", s)
	}
	if r.opts.OnState != nil {
		r.opts.OnState(s, i, n)
	}
}

// Run loads the manifest from opts.Source, fetches every mod and writes
// the layout for opts.Mode. The first error stops the run. Nothing is
// written to the output directory if the manifest can't be loaded.
func Run(ctx context.Context, opts Options) (res Result, err error) {
	r := &run{opts: opts}
	r.set(Start, 0, 0)
	defer func() {
		if err != nil {
			r.set(Failed, 0, 0)
		}
	}()

	workDir, err := os.MkdirTemp("", "cmpdl-")
	if err != nil {
		return res, errors.Wrap(err, "create work dir")
	}
	defer func() {
		err := os.RemoveAll(workDir)
		if err != nil {
			logrus.Warnf("remove %q: %+v", workDir, err)
		}
	}()

	logrus.Infof("Loading modpack from %s", opts.Source)
	m, err := opts.Loader.Load(ctx, opts.Source, workDir)
	if err != nil {
		return res, err
	}
	res.Manifest = m
	r.set(ManifestLoaded, 0, 0)
	logrus.Infof("Modpack: %s %s (Minecraft %s, %s)", m.Name, m.Version, m.MinecraftVersion, m.ModLoader)

	out := opts.OutputDir
	if out == "" {
		out = DefaultOutputDir(m)
	}
	res.OutputDir = out
	if err := os.MkdirAll(out, 0755); err != nil {
		return res, &cmpdl.WriteError{Path: out, Err: err}
	}

	mods := pack.ForMode(pack.ModList(m, opts.Filter), opts.Mode)
	b := r.builder(m, out, manifest.OverridesPath(workDir, m))

	bar := progress.Count(ctx, len(mods), "Downloading mods")
	defer bar.Close()

	var size int64
	for i, e := range mods {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r.set(Resolving, i+1, len(mods))
		rf, err := opts.Fetcher.Fetch(ctx, e)
		if err != nil {
			return res, err
		}
		bar.On(rf.FileName)
		logrus.Debugf("[%d/%d] %s", i+1, len(mods), rf.FileName)
		if err := b.Add(rf); err != nil {
			return res, err
		}
		res.Files = append(res.Files, rf)
		size += rf.Size
		bar.Tick()
	}

	if err := b.Close(); err != nil {
		return res, err
	}
	if sb, ok := b.(*server.ServerBuilder); ok {
		if err := sb.InstallLoader(ctx); err != nil {
			return res, err
		}
	}
	r.set(LayoutWritten, 0, 0)

	res.Stats = opts.Fetcher.Stats()
	logrus.Infof("Done: %d mods (%s, %d from cache) in %q",
		len(res.Files), humanize.Bytes(uint64(size)), res.Stats.Hits, out)
	r.set(Done, 0, 0)
	return res, nil
}

func (r *run) builder(m cmpdl.Manifest, out, overrides string) builder.Builder {
	files := r.opts.Fetcher
	switch r.opts.Mode {
	case cmpdl.ModeMultiMC:
		return multimc.NewMultiMCBuilder(files, m, out, overrides)
	case cmpdl.ModeServer:
		return server.NewServerBuilder(files, m, out, overrides, r.opts.Installer)
	}
	return dir.NewDirBuilder(files, out, overrides)
}

// DefaultOutputDir derives a directory name from the pack name.
func DefaultOutputDir(m cmpdl.Manifest) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(m.Name))
	if name == "" || name == "." || name == ".." {
		return "modpack"
	}
	return filepath.Clean(name)
}
