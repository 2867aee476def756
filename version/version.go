// Package version holds the build version, set with -ldflags -X.
package version

import (
	"fmt"
	"io"
	"runtime/debug"
)

var GitCommit string
var Version string

func SetDefaults() {
	build, infoOk := debug.ReadBuildInfo()

	if GitCommit == "" {
		GitCommit = ".dev"
		if infoOk {
			for _, setting := range build.Settings {
				if setting.Key == "vcs.revision" {
					GitCommit = setting.Value
					break
				}
			}
		}
	}

	if Version == "" {
		Version = "unknown"
		if infoOk && build.Main.Version != "" && build.Main.Version != "(devel)" {
			Version = build.Main.Version
		}
	}
}

// UserAgent is sent with every HTTP request.
func UserAgent() string {
	SetDefaults()
	return "cmpdl/" + Version
}

func Print(w io.Writer) {
	SetDefaults()
	fmt.Fprintln(w, "Version: "+Version)
	fmt.Fprintln(w, "Commit: "+GitCommit)
}
