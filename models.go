package cmpdl

import "fmt"

// ModEntry is a single CurseForge file reference from a modpack manifest.
type ModEntry struct {
	// ProjectID specifies the project ID on CurseForge.
	ProjectID int
	// FileID specifies the file ID of the CurseForge project.
	FileID int

	// Required mirrors the manifest flag. It does not affect downloading.
	Required bool

	// ClientOnly marks mods that are skipped in server layouts.
	ClientOnly bool
}

func (e ModEntry) String() string {
	return fmt.Sprintf("%d/%d", e.ProjectID, e.FileID)
}

// Manifest is the parsed modpack manifest. It is not modified after loading.
type Manifest struct {
	Name    string
	Version string
	Author  string

	MinecraftVersion string
	// ModLoader is the primary loader id, e.g. "forge-14.23.5.2847".
	ModLoader string

	// Overrides is the directory inside the archive that is
	// copied over the instance.
	Overrides string

	Entries []ModEntry
}

// ResolvedFile is a mod entry whose content is available in the cache.
type ResolvedFile struct {
	Entry       ModEntry
	FileName    string
	DownloadURL string
	Size        int64

	// Cached is true if no network access was needed.
	Cached bool
}

// Source is where the modpack archive comes from, either Remote or Local.
type Source interface {
	fmt.Stringer
	isSource()
}

// Remote is a modpack archive (or a page linking to one) behind a URL.
type Remote struct {
	URL string
}

// Local is a modpack archive on the local filesystem.
type Local struct {
	Path string
}

func (Remote) isSource() {}
func (Local) isSource()  {}

func (s Remote) String() string { return s.URL }
func (s Local) String() string  { return s.Path }

// Mode selects the output layout.
type Mode int

const (
	ModeInstance Mode = iota
	ModeMultiMC
	ModeServer
)

func (m Mode) String() string {
	switch m {
	case ModeInstance:
		return "instance"
	case ModeMultiMC:
		return "multimc"
	case ModeServer:
		return "server"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}
