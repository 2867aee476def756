// Package jsonspec describes the manifest.json format of Curse modpacks.
package jsonspec

const (
	ManifestType    = "minecraftModpack"
	ManifestVersion = 1

	DefaultOverrides = "overrides"
)

type Manifest struct {
	ManifestType    string `json:"manifestType"`
	ManifestVersion int    `json:"manifestVersion"`

	Minecraft MinecraftInstance `json:"minecraft"`

	Name      string `json:"name"`
	Version   string `json:"version"`
	Author    string `json:"author"`
	Desc      string `json:"description,omitempty"`
	ProjectID int    `json:"projectID,omitempty"`

	Files     []File `json:"files"`
	Overrides string `json:"overrides"`
}

type MinecraftInstance struct {
	Version    string      `json:"version"`
	ModLoaders []ModLoader `json:"modLoaders"`
}

// PrimaryLoader returns the id of the primary mod loader. If none is
// marked primary, the first one is used.
func (m MinecraftInstance) PrimaryLoader() string {
	for _, l := range m.ModLoaders {
		if l.Primary {
			return l.ID
		}
	}
	if len(m.ModLoaders) > 0 {
		return m.ModLoaders[0].ID
	}
	return ""
}

type ModLoader struct {
	ID      string `json:"id"`
	Primary bool   `json:"primary"`
}

type File struct {
	ProjectID int  `json:"projectID"`
	FileID    int  `json:"fileID"`
	Required  bool `json:"required"`
}
