// Package server writes the server side of a modpack.
package server

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/builder"
	"github.com/tie/cmpdl/builder/dir"
	"github.com/tie/cmpdl/modloader"
)

var _ builder.Builder = (*ServerBuilder)(nil)

// LoaderInstaller fetches the server installer of a mod loader into a directory.
type LoaderInstaller interface {
	Download(ctx context.Context, mcVersion string, l modloader.Loader, dir string) (string, error)
}

// ServerBuilder is a plain layout without client-only mods.
type ServerBuilder struct {
	dir.DirBuilder

	Manifest  cmpdl.Manifest
	Installer LoaderInstaller
}

func NewServerBuilder(files builder.Opener, m cmpdl.Manifest, root, overrides string, inst LoaderInstaller) *ServerBuilder {
	b := dir.DirBuilder{
		Files:     files,
		Root:      root,
		Overrides: overrides,
	}
	return &ServerBuilder{b, m, inst}
}

func (b *ServerBuilder) Add(rf cmpdl.ResolvedFile) error {
	if rf.Entry.ClientOnly {
		logrus.Debugf("skip client-only mod %s", rf.FileName)
		return nil
	}
	return b.DirBuilder.Add(rf)
}

// InstallLoader downloads the mod loader server installer into Root and
// runs it with java. Without java on PATH the installer jar is left in
// place for a manual install. It is a no-op if Installer is nil.
func (b *ServerBuilder) InstallLoader(ctx context.Context) error {
	if b.Installer == nil {
		return nil
	}
	l := modloader.Parse(b.Manifest.ModLoader)
	switch l.Name {
	case modloader.Forge, modloader.NeoForge:
	case "":
		return nil
	default:
		logrus.Warnf("Can't install %s server, install it yourself", l.Name)
		return nil
	}

	logrus.Infof("Downloading %s server installer", l)
	fpath, err := b.Installer.Download(ctx, b.Manifest.MinecraftVersion, l, b.Root)
	if err != nil {
		return errors.Wrapf(err, "fetch %s installer", l)
	}

	java, err := exec.LookPath("java")
	if err != nil {
		logrus.Warnf("Can't find java. Install %s yourself: java -jar %s --installServer", l, filepath.Base(fpath))
		return nil
	}

	logrus.Infof("Installing %s server", l)
	if err := runInstaller(ctx, java, fpath, b.Root); err != nil {
		return errors.Wrapf(err, "install %s server", l)
	}
	for _, name := range []string{fpath, fpath + ".log"} {
		err := os.Remove(name)
		if err != nil && !os.IsNotExist(err) {
			logrus.Warnf("remove %q: %+v", name, err)
		}
	}
	logrus.Infof("Installed %s server", l)
	return nil
}

func runInstaller(ctx context.Context, java, jar, dir string) error {
	out := logrus.StandardLogger().WriterLevel(logrus.DebugLevel)
	defer func() {
		err := out.Close()
		if err != nil {
			logrus.Warnf("close installer output: %+v", err)
		}
	}()
	cmd := exec.CommandContext(ctx, java, "-jar", filepath.Base(jar), "--installServer")
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}
