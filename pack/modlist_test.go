package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tie/cmpdl"
)

var testManifest = cmpdl.Manifest{
	Entries: []cmpdl.ModEntry{
		{ProjectID: 1, FileID: 10, Required: true},
		{ProjectID: 2, FileID: 20, Required: true},
		{ProjectID: 3, FileID: 30},
	},
}

func TestModList(t *testing.T) {
	mods := ModList(testManifest, Filter{
		ClientOnly: map[int]bool{2: true},
		Exclude:    map[int]bool{3: true},
	})
	assert.Equal(t, []cmpdl.ModEntry{
		{ProjectID: 1, FileID: 10, Required: true},
		{ProjectID: 2, FileID: 20, Required: true, ClientOnly: true},
	}, mods)

	// The manifest itself is left untouched.
	assert.False(t, testManifest.Entries[1].ClientOnly)
}

func TestModListEmpty(t *testing.T) {
	assert.Nil(t, ModList(cmpdl.Manifest{}, Filter{}))
}

func TestForMode(t *testing.T) {
	mods := ModList(testManifest, Filter{ClientOnly: map[int]bool{1: true}})

	assert.Len(t, ForMode(mods, cmpdl.ModeInstance), 3)
	assert.Len(t, ForMode(mods, cmpdl.ModeMultiMC), 3)

	server := ForMode(mods, cmpdl.ModeServer)
	assert.Len(t, server, 2)
	for _, e := range server {
		assert.False(t, e.ClientOnly)
	}
}
