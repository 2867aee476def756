// Package config loads cmpdl settings from an HCL file and the environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/tie/internal/robustio"

	"github.com/tie/cmpdl/version"
)

const (
	ProgramName = "cmpdl"

	DefaultConfigPath = "~/.config/cmpdl/config.hcl"
	DefaultAPIURL     = "https://api.curseforge.com"
)

// File is the on-disk configuration format.
type File struct {
	CacheDir   string `hcl:"cache_dir,optional"`
	APIURL     string `hcl:"api_url,optional"`
	APIKey     string `hcl:"api_key,optional"`
	UserAgent  string `hcl:"user_agent,optional"`
	ClientOnly []int  `hcl:"client_only,optional"`
	Exclude    []int  `hcl:"exclude,optional"`
}

// Config is the resolved configuration for a run.
type Config struct {
	Path string

	CacheDir  string
	APIURL    string
	APIKey    string
	UserAgent string

	ClientOnly map[int]bool
	Exclude    map[int]bool
}

// Load reads the configuration at path. An empty path means the
// CMPDL_CONFIG variable or the default location, and a missing default
// file is not an error. Environment variables override file values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if loc := os.Getenv("CMPDL_CONFIG"); loc != "" {
			path = loc
			explicit = true
		} else {
			path = DefaultConfigPath
		}
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrap(err, "expand config path")
	}

	var f File
	_, err = os.Stat(path)
	switch {
	case err == nil:
		if err := Decode(path, &f); err != nil {
			return nil, err
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrapf(err, "stat %q", path)
	}

	cfg := &Config{Path: path}
	if err := cfg.apply(f); err != nil {
		return nil, err
	}
	if err := cfg.updateFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses the HCL file at path into f.
func Decode(path string, f *File) error {
	src, err := robustio.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %q", path)
	}
	return DecodeBytes(src, path, f)
}

// DecodeBytes parses HCL source into f. The filename is used in diagnostics.
func DecodeBytes(src []byte, filename string, f *File) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return diagsError(diags)
	}
	diags = gohcl.DecodeBody(file.Body, nil, f)
	if diags.HasErrors() {
		return diagsError(diags)
	}
	return nil
}

func diagsError(diags hcl.Diagnostics) error {
	return errors.Wrap(diags, "decode config")
}

func (c *Config) apply(f File) error {
	c.APIURL = DefaultAPIURL
	if f.APIURL != "" {
		c.APIURL = f.APIURL
	}
	c.APIKey = f.APIKey
	c.UserAgent = f.UserAgent
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}

	c.ClientOnly = idSet(f.ClientOnly)
	c.Exclude = idSet(f.Exclude)

	if f.CacheDir != "" {
		return c.SetCacheDir(f.CacheDir)
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return errors.Wrap(err, "user cache dir")
	}
	c.CacheDir = filepath.Join(dir, ProgramName)
	return nil
}

func (c *Config) updateFromEnv() error {
	if v := os.Getenv("CMPDL_CACHE_DIR"); v != "" {
		if err := c.SetCacheDir(v); err != nil {
			return err
		}
	}
	if v := os.Getenv("CMPDL_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("CMPDL_API_KEY"); v != "" {
		c.APIKey = v
	}
	return nil
}

// SetCacheDir sets the cache directory, expanding a leading tilde.
func (c *Config) SetCacheDir(dir string) error {
	d, err := homedir.Expand(dir)
	if err != nil {
		return errors.Wrapf(err, "expand %q", dir)
	}
	c.CacheDir = d
	return nil
}

func idSet(ids []int) map[int]bool {
	m := make(map[int]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
