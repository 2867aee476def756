// Package pack prepares the list of mods to install from a manifest.
package pack

import (
	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl"
)

// Filter holds per-project overrides of the manifest.
type Filter struct {
	// ClientOnly projects are not installed on servers.
	ClientOnly map[int]bool
	// Exclude projects are never installed.
	Exclude map[int]bool
}

// ModList returns the manifest entries in order, without excluded
// projects and with client-only projects marked.
func ModList(m cmpdl.Manifest, f Filter) []cmpdl.ModEntry {
	if len(m.Entries) <= 0 {
		return nil
	}

	mods := make([]cmpdl.ModEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		if f.Exclude[e.ProjectID] {
			logrus.Debugf("exclude %s", e)
			continue
		}
		if f.ClientOnly[e.ProjectID] {
			e.ClientOnly = true
		}
		mods = append(mods, e)
	}
	return mods
}

// ForMode drops entries that are not installed in the given layout mode.
func ForMode(mods []cmpdl.ModEntry, mode cmpdl.Mode) []cmpdl.ModEntry {
	if mode != cmpdl.ModeServer {
		return mods
	}
	n := 0
	out := make([]cmpdl.ModEntry, 0, len(mods))
	for _, e := range mods {
		if e.ClientOnly {
			n++
			continue
		}
		out = append(out, e)
	}
	if n > 0 {
		logrus.Infof("Skipping %d client-only mods", n)
	}
	return out
}
