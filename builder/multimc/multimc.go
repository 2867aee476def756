// Package multimc writes a MultiMC instance: instance.cfg, mmc-pack.json
// and the game directory in .minecraft.
package multimc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/tie/internal/renameio"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/builder"
	"github.com/tie/cmpdl/builder/dir"
	"github.com/tie/cmpdl/modloader"
)

const (
	GameDir        = ".minecraft"
	InstanceConfig = "instance.cfg"
	PackFile       = "mmc-pack.json"
)

func init() {
	// MultiMC writes key=value without padding.
	ini.PrettyFormat = false
}

var _ builder.Builder = (*MultiMCBuilder)(nil)

type MultiMCBuilder struct {
	dir.DirBuilder

	Manifest cmpdl.Manifest
	Instance string
}

// NewMultiMCBuilder returns a builder for an instance rooted at instance.
func NewMultiMCBuilder(files builder.Opener, m cmpdl.Manifest, instance, overrides string) *MultiMCBuilder {
	b := dir.DirBuilder{
		Files:     files,
		Root:      filepath.Join(instance, GameDir),
		Overrides: overrides,
	}
	return &MultiMCBuilder{b, m, instance}
}

func (b *MultiMCBuilder) Close() error {
	if err := b.DirBuilder.Close(); err != nil {
		return err
	}
	logrus.Info("Setting up MultiMC instance")
	cfg, err := InstanceCfg(b.Manifest)
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(b.Instance, InstanceConfig), cfg); err != nil {
		return err
	}
	pack, err := MMCPack(b.Manifest)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(b.Instance, PackFile), pack)
}

func writeFile(fpath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
		return &cmpdl.WriteError{Path: fpath, Err: err}
	}
	if err := renameio.WriteFile(fpath, data, 0644); err != nil {
		return &cmpdl.WriteError{Path: fpath, Err: err}
	}
	return nil
}

// InstanceCfg renders instance.cfg for m.
func InstanceCfg(m cmpdl.Manifest) ([]byte, error) {
	notes := "Generated by cmpdl."
	if m.Author != "" {
		notes = fmt.Sprintf("Modpack by %s. %s", m.Author, notes)
	}
	if l := modloader.Parse(m.ModLoader); l.Name == modloader.Forge && l.Version != "" {
		notes += fmt.Sprintf(" Using Forge %s.", l.Version)
	}
	name := m.Name
	if m.Version != "" {
		name += " " + m.Version
	}

	cfg := ini.Empty()
	sec := cfg.Section("")
	keys := []struct {
		name, value string
	}{
		{"InstanceType", "OneSix"},
		{"IntendedVersion", m.MinecraftVersion},
		{"LogPrePostOutput", "true"},
		{"OverrideCommands", "false"},
		{"OverrideConsole", "false"},
		{"OverrideJavaArgs", "false"},
		{"OverrideJavaLocation", "false"},
		{"OverrideMemory", "false"},
		{"OverrideWindow", "false"},
		{"iconKey", "default"},
		{"lastLaunchTime", "0"},
		{"name", name},
		{"notes", notes},
		{"totalTimePlayed", "0"},
	}
	for _, k := range keys {
		if _, err := sec.NewKey(k.name, k.value); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type mmcPack struct {
	Components    []component `json:"components"`
	FormatVersion int         `json:"formatVersion"`
}

type component struct {
	UID       string `json:"uid"`
	Version   string `json:"version,omitempty"`
	Important bool   `json:"important,omitempty"`
}

// MMCPack renders mmc-pack.json for m.
func MMCPack(m cmpdl.Manifest) ([]byte, error) {
	p := mmcPack{
		Components: []component{
			{UID: "net.minecraft", Version: m.MinecraftVersion, Important: true},
		},
		FormatVersion: 1,
	}
	l := modloader.Parse(m.ModLoader)
	switch l.Name {
	case modloader.Forge:
		p.Components = append(p.Components, component{UID: "net.minecraftforge", Version: l.Version})
	case modloader.NeoForge:
		p.Components = append(p.Components, component{UID: "net.neoforged", Version: l.Version})
	case modloader.Fabric:
		p.Components = append(p.Components,
			component{UID: "net.fabricmc.intermediary", Version: m.MinecraftVersion},
			component{UID: "net.fabricmc.fabric-loader", Version: l.Version},
		)
	case modloader.Quilt:
		p.Components = append(p.Components,
			component{UID: "net.fabricmc.intermediary", Version: m.MinecraftVersion},
			component{UID: "org.quiltmc.quilt-loader", Version: l.Version},
		)
	case "":
	default:
		logrus.Warnf("unknown mod loader %q, leaving it out of %s", m.ModLoader, PackFile)
	}
	return json.MarshalIndent(&p, "", "    ")
}
