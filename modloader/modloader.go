// Package modloader identifies the mod loader of a pack and fetches its
// server installer.
package modloader

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/builder"
)

const (
	Forge    = "forge"
	NeoForge = "neoforge"
	Fabric   = "fabric"
	Quilt    = "quilt"
)

const (
	ForgeMaven    = "https://maven.minecraftforge.net"
	NeoForgeMaven = "https://maven.neoforged.net"
)

var ErrUnsupported = errors.New("unsupported mod loader")

// Loader is a parsed manifest mod loader id such as "forge-14.23.5.2847".
type Loader struct {
	Name    string
	Version string
}

func Parse(id string) Loader {
	i := strings.IndexByte(id, '-')
	if i < 0 {
		return Loader{Name: id}
	}
	return Loader{Name: id[:i], Version: id[i+1:]}
}

func (l Loader) String() string {
	if l.Version == "" {
		return l.Name
	}
	return l.Name + "-" + l.Version
}

// Installer downloads server installer jars from the loader mavens.
type Installer struct {
	Client    *http.Client
	UserAgent string

	ForgeMaven    string
	NeoForgeMaven string
}

// Download stores the server installer for l into dir and returns its path.
func (i *Installer) Download(ctx context.Context, mcVersion string, l Loader, dir string) (string, error) {
	var candidates []string
	switch l.Name {
	case Forge:
		candidates = i.forgeURLs(mcVersion, l.Version)
	case NeoForge:
		candidates = i.neoForgeURLs(l.Version)
	default:
		return "", errors.Wrap(ErrUnsupported, l.Name)
	}

	for _, u := range candidates {
		ok, err := i.exists(ctx, u)
		if err != nil {
			return "", err
		}
		if !ok {
			logrus.Debugf("no installer at %q", u)
			continue
		}
		fpath := filepath.Join(dir, u[strings.LastIndexByte(u, '/')+1:])
		if err := i.fetch(ctx, u, fpath); err != nil {
			return "", err
		}
		return fpath, nil
	}
	return "", errors.Errorf("can't find %s installer %s", l.Name, l.Version)
}

func (i *Installer) forgeURLs(mc, v string) []string {
	base := maven(i.ForgeMaven, ForgeMaven) + "/releases/net/minecraftforge/forge"
	u := "%s/%s-%s/forge-%s-%s-installer.jar"
	// Old versions carry the minecraft version twice.
	legacy := "%s/%s-%s-%s/forge-%s-%s-%s-installer.jar"
	return []string{
		fmt.Sprintf(u, base, mc, v, mc, v),
		fmt.Sprintf(legacy, base, mc, v, mc, mc, v, mc),
	}
}

func (i *Installer) neoForgeURLs(v string) []string {
	base := maven(i.NeoForgeMaven, NeoForgeMaven) + "/releases/net/neoforged/neoforge"
	return []string{
		fmt.Sprintf("%s/%s/neoforge-%s-installer.jar", base, v, v),
	}
}

func maven(u, def string) string {
	if u == "" {
		return def
	}
	return strings.TrimSuffix(u, "/")
}

func (i *Installer) exists(ctx context.Context, u string) (bool, error) {
	req, err := i.newRequest(ctx, http.MethodHead, u)
	if err != nil {
		return false, err
	}
	resp, err := i.Client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (i *Installer) fetch(ctx context.Context, u, fpath string) error {
	req, err := i.newRequest(ctx, http.MethodGet, u)
	if err != nil {
		return err
	}
	resp, err := i.Client.Do(req)
	if err != nil {
		return err
	}
	r := resp.Body
	defer func() {
		err := r.Close()
		if err != nil {
			logrus.Warnf("close %q: %+v", u, err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return &cmpdl.StatusError{URL: u, Status: resp.StatusCode}
	}
	return builder.WriteFile(fpath, r)
}

func (i *Installer) newRequest(ctx context.Context, method, u string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	if i.UserAgent != "" {
		req.Header.Set("User-Agent", i.UserAgent)
	}
	return req, nil
}
