// Package dir writes a plain instance directory.
package dir

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/builder"
)

var _ builder.Builder = (*DirBuilder)(nil)

// DirBuilder places mods under Root/mods and copies the overrides over Root.
type DirBuilder struct {
	Files     builder.Opener
	Root      string
	Overrides string

	// written maps file names placed in mods to their entry.
	written map[string]cmpdl.ModEntry
}

func NewDirBuilder(files builder.Opener, root, overrides string) *DirBuilder {
	return &DirBuilder{Files: files, Root: root, Overrides: overrides}
}

func (b *DirBuilder) Add(rf cmpdl.ResolvedFile) error {
	src, err := b.Files.Open(rf)
	if err != nil {
		return errors.Wrapf(err, "open cached %s", rf.Entry)
	}
	defer func() {
		err := src.Close()
		if err != nil {
			logrus.Warnf("close: %+v", err)
		}
	}()
	if prev, ok := b.written[rf.FileName]; ok {
		logrus.Warnf("%s and %s are both named %q, keeping %s", prev, rf.Entry, rf.FileName, rf.Entry)
	}
	fpath := filepath.Join(b.Root, builder.ModsDir, rf.FileName)
	if err := builder.WriteFile(fpath, src); err != nil {
		return err
	}
	if b.written == nil {
		b.written = make(map[string]cmpdl.ModEntry)
	}
	b.written[rf.FileName] = rf.Entry
	return nil
}

func (b *DirBuilder) Close() error {
	if b.Overrides == "" {
		return nil
	}
	logrus.Info("Copying overrides")
	return builder.CopyTree(b.Overrides, b.Root)
}
