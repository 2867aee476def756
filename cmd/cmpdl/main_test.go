package main

import (
	"archive/zip"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tie/cmpdl"
)

func setupEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CMPDL_CONFIG", "")
	t.Setenv("CMPDL_CACHE_DIR", t.TempDir())
}

func writeZip(t *testing.T, files map[string]string) string {
	fpath := filepath.Join(t.TempDir(), "pack.zip")
	f, err := os.Create(fpath)
	require.NoError(t, err)
	defer f.Close()
	z := zip.NewWriter(f)
	for name, content := range files {
		w, err := z.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, z.Close())
	return fpath
}

func TestRunExitCodes(t *testing.T) {
	setupEnv(t)
	badPack := writeZip(t, map[string]string{"manifest.json": "{"})
	emptyPack := writeZip(t, map[string]string{
		"manifest.json": `{"manifestType": "minecraftModpack", "manifestVersion": 1, "name": "Empty",
			"minecraft": {"version": "1.12.2", "modLoaders": []}, "files": []}`,
	})
	out := filepath.Join(t.TempDir(), "out")
	mmc := filepath.Join(t.TempDir(), "mmc")
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"version", []string{"-version"}, subcommands.ExitSuccess},
		{"no args", nil, subcommands.ExitUsageError},
		{"bad flag", []string{"-nope"}, subcommands.ExitUsageError},
		{"conflicting modes", []string{"-m", "-s", "x"}, subcommands.ExitUsageError},
		{"missing zip", []string{"-q", "-z", filepath.Join(t.TempDir(), "nope.zip")}, subcommands.ExitFailure},
		{"bad manifest", []string{"-q", "-z", badPack}, exitParseError},
		{"empty pack", []string{"-q", "-z", "-o", out, emptyPack}, subcommands.ExitSuccess},
		{"download command", []string{"-q", "download", "-z", "-o", out, emptyPack}, subcommands.ExitSuccess},
		{"flags after file", []string{emptyPack, "-q", "-z", "-o", out}, subcommands.ExitSuccess},
		{"mode after file", []string{"-q", "-z", "-o", mmc, emptyPack, "-m"}, subcommands.ExitSuccess},
		{"url then mode", []string{"-q", srv.URL + "/pack.zip", "-m"}, subcommands.ExitFailure},
		{"download flags after file", []string{"-q", "download", emptyPack, "-z", "-o", out}, subcommands.ExitSuccess},
		{"two files", []string{"-q", "-z", emptyPack, emptyPack}, subcommands.ExitUsageError},
		{"quiet and debug", []string{"-q", "-d", "-z", emptyPack}, subcommands.ExitUsageError},
		{"quiet and debug after file", []string{emptyPack, "-q", "-d"}, subcommands.ExitUsageError},
		{"clean", []string{"-q", "clean"}, subcommands.ExitSuccess},
		{"clear cache", []string{"-q", "-clear-cache"}, subcommands.ExitSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}

func TestRunMultiMCAfterFile(t *testing.T) {
	setupEnv(t)
	pack := writeZip(t, map[string]string{
		"manifest.json": `{"manifestType": "minecraftModpack", "manifestVersion": 1, "name": "Empty",
			"minecraft": {"version": "1.12.2", "modLoaders": []}, "files": []}`,
	})
	out := filepath.Join(t.TempDir(), "inst")

	require.Equal(t, subcommands.ExitSuccess, run([]string{pack, "-z", "-q", "-m", "-o", out}))
	_, err := os.Stat(filepath.Join(out, "instance.cfg"))
	assert.NoError(t, err)
}

func TestParseInterspersed(t *testing.T) {
	tests := []struct {
		args  []string
		files []string
		multi bool
		out   string
	}{
		{[]string{"a.zip"}, []string{"a.zip"}, false, ""},
		{[]string{"a.zip", "-m"}, []string{"a.zip"}, true, ""},
		{[]string{"-o", "dir", "a.zip", "-m"}, []string{"a.zip"}, true, "dir"},
		{[]string{"a.zip", "-o", "dir", "b.zip"}, []string{"a.zip", "b.zip"}, false, "dir"},
		{[]string{"a.zip", "--", "-m"}, []string{"a.zip", "-m"}, false, ""},
		{nil, nil, false, ""},
	}
	for _, tt := range tests {
		var cmd DownloadCommand
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		cmd.SetFlags(fs)

		files, err := parseInterspersed(fs, tt.args)
		require.NoError(t, err, "%q", tt.args)
		assert.Equal(t, tt.files, files, "%q", tt.args)
		assert.Equal(t, tt.multi, cmd.MultiMC, "%q", tt.args)
		assert.Equal(t, tt.out, cmd.Output, "%q", tt.args)
	}
}

func TestParseInterspersedUnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))
	_, err := parseInterspersed(fs, []string{"a.zip", "-nope"})
	assert.Error(t, err)
}

func TestExitStatus(t *testing.T) {
	assert.Equal(t, exitParseError, exitStatus(&cmpdl.ManifestParseError{Err: cmpdl.ErrNoManifest}))
	assert.Equal(t, subcommands.ExitFailure, exitStatus(&cmpdl.ManifestFetchError{Err: errors.New("boom")}))
	assert.Equal(t, subcommands.ExitFailure, exitStatus(&cmpdl.DownloadError{Err: errors.New("boom")}))
}

func TestSource(t *testing.T) {
	assert.Equal(t, cmpdl.Local{Path: "pack.zip"}, source("pack.zip", true))
	assert.Equal(t, cmpdl.Remote{URL: "https://example.com/p"}, source("https://example.com/p", false))
}

func TestSumsBuilder(t *testing.T) {
	f := hclwrite.NewEmptyFile()
	sb := SumsBuilder{Body: f.Body()}
	sb.Add(cmpdl.ResolvedFile{
		Entry:    cmpdl.ModEntry{ProjectID: 1, FileID: 2},
		FileName: "examplemod.jar",
	}, []string{"md5-abc"})

	out := string(f.Bytes())
	assert.Contains(t, out, "check {")
	assert.Contains(t, out, `"examplemod.jar"`)
	assert.Contains(t, out, `"md5-abc"`)
	assert.Equal(t, 1, sb.Length)
}
