package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tie/cmpdl/version"
)

const testConfig = `
cache_dir   = "/tmp/cmpdl-test-cache"
api_url     = "http://localhost:8080"
client_only = [238222, 32274]
exclude     = [60089]
`

func writeConfig(t *testing.T, src string) string {
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("CMPDL_API_KEY", "")
	t.Setenv("CMPDL_API_URL", "")
	t.Setenv("CMPDL_CACHE_DIR", "")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/cmpdl-test-cache", cfg.CacheDir)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, version.UserAgent(), cfg.UserAgent)
	assert.Contains(t, cfg.UserAgent, ProgramName+"/")
	assert.True(t, cfg.ClientOnly[238222])
	assert.True(t, cfg.ClientOnly[32274])
	assert.False(t, cfg.ClientOnly[60089])
	assert.True(t, cfg.Exclude[60089])
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CMPDL_API_URL", "http://example.invalid")
	t.Setenv("CMPDL_API_KEY", "secret")
	t.Setenv("CMPDL_CACHE_DIR", "/tmp/other")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://example.invalid", cfg.APIURL)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "/tmp/other", cfg.CacheDir)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CMPDL_CONFIG", "")
	t.Setenv("CMPDL_API_URL", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.Empty(t, cfg.ClientOnly)
}

func TestLoadMissingExplicit(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.Error(t, err)
}

func TestDecodeBytesInvalid(t *testing.T) {
	var f File
	err := DecodeBytes([]byte(`client_only = "nope"`), "bad.hcl", &f)
	require.Error(t, err)

	err = DecodeBytes([]byte(`unknown_key = 1`), "bad.hcl", &f)
	require.Error(t, err)
}
