// Package builder lays out resolved mod files as an installable instance.
package builder

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl"
)

// ModsDir is the directory mods are placed in, relative to the game directory.
const ModsDir = "mods"

type Builder interface {
	Add(rf cmpdl.ResolvedFile) error
	Close() error
}

// Opener gives access to the content of resolved files.
type Opener interface {
	Open(rf cmpdl.ResolvedFile) (io.ReadCloser, error)
}

// WriteFile writes the content of r to fpath, creating parent directories.
// Failures are reported as *cmpdl.WriteError.
func WriteFile(fpath string, r io.Reader) (err error) {
	if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
		return &cmpdl.WriteError{Path: fpath, Err: err}
	}
	f, err := os.Create(fpath)
	if err != nil {
		return &cmpdl.WriteError{Path: fpath, Err: err}
	}
	defer func() {
		cerr := f.Close()
		if err == nil && cerr != nil {
			err = &cmpdl.WriteError{Path: fpath, Err: cerr}
		}
	}()
	if _, err := io.Copy(f, r); err != nil {
		return &cmpdl.WriteError{Path: fpath, Err: err}
	}
	return nil
}

// CopyTree copies the directory tree at src over dst. A missing src is
// not an error since overrides are optional.
func CopyTree(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		logrus.Debugf("no overrides at %q", src)
		return nil
	}
	return filepath.WalkDir(src, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rpath, err := filepath.Rel(src, fpath)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rpath)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return &cmpdl.WriteError{Path: target, Err: err}
			}
			return nil
		}
		if !d.Type().IsRegular() {
			logrus.Debugf("skip override %q: not a regular file", rpath)
			return nil
		}
		return copyFile(fpath, target, rpath)
	})
}

func copyFile(src, dst, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		err := f.Close()
		if err != nil {
			logrus.Warnf("close %q: %+v", src, err)
		}
	}()
	if err := WriteFile(dst, f); err != nil {
		return err
	}
	logrus.Debugf("override: %s", name)
	return nil
}
