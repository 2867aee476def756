// Package manifest obtains a modpack archive and reads its manifest.json.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/codeclysm/extract/v3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/manifest/jsonspec"
)

const (
	FileName = "manifest.json"

	// Subdirectory of the work directory the archive is extracted to.
	extractDir = "pack"
)

var downloadSel = cascadia.MustCompile(`a.download-button, a[href$="/download"]`)

var curseHosts = map[string]bool{
	"minecraft.curseforge.com": true,
	"www.curseforge.com":       true,
	"curseforge.com":           true,
}

type Loader struct {
	Client    *http.Client
	UserAgent string
}

// Load fetches or opens the modpack archive, extracts it into workDir
// and decodes the manifest.
func (l *Loader) Load(ctx context.Context, src cmpdl.Source, workDir string) (cmpdl.Manifest, error) {
	var data []byte
	switch s := src.(type) {
	case cmpdl.Remote:
		b, err := l.fetchArchive(ctx, s.URL)
		if err != nil {
			return cmpdl.Manifest{}, &cmpdl.ManifestFetchError{Source: s.URL, Err: err}
		}
		data = b
	case cmpdl.Local:
		b, err := os.ReadFile(s.Path)
		if err != nil {
			return cmpdl.Manifest{}, &cmpdl.ManifestFetchError{Source: s.Path, Err: err}
		}
		data = b
	default:
		return cmpdl.Manifest{}, errors.Errorf("unknown source %T", src)
	}

	logrus.Info("Unzipping modpack file")
	dir := ExtractPath(workDir)
	if err := extract.Zip(ctx, bytes.NewReader(data), dir, nil); err != nil {
		return cmpdl.Manifest{}, &cmpdl.ManifestParseError{Source: src.String(), Err: err}
	}

	m, err := ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return cmpdl.Manifest{}, &cmpdl.ManifestParseError{Source: src.String(), Err: err}
	}
	return m, nil
}

// ExtractPath returns the directory Load extracts the archive to.
func ExtractPath(workDir string) string {
	return filepath.Join(workDir, extractDir)
}

// OverridesPath returns the extracted overrides directory of m.
func OverridesPath(workDir string, m cmpdl.Manifest) string {
	return filepath.Join(ExtractPath(workDir), filepath.FromSlash(m.Overrides))
}

// ReadFile decodes the manifest.json at fpath.
func ReadFile(fpath string) (cmpdl.Manifest, error) {
	f, err := os.Open(fpath)
	if os.IsNotExist(err) {
		return cmpdl.Manifest{}, cmpdl.ErrNoManifest
	}
	if err != nil {
		return cmpdl.Manifest{}, err
	}
	defer func() {
		err := f.Close()
		if err != nil {
			logrus.Warnf("close %q: %+v", fpath, err)
		}
	}()
	return Decode(f)
}

// Decode reads a manifest.json document from r.
func Decode(r io.Reader) (cmpdl.Manifest, error) {
	var jm jsonspec.Manifest
	if err := json.NewDecoder(r).Decode(&jm); err != nil {
		return cmpdl.Manifest{}, errors.Wrap(err, "decode")
	}
	if jm.ManifestType != jsonspec.ManifestType {
		return cmpdl.Manifest{}, errors.Wrapf(cmpdl.ErrNotModpack, "manifest type %q", jm.ManifestType)
	}
	if jm.ManifestVersion != jsonspec.ManifestVersion {
		return cmpdl.Manifest{}, errors.Wrapf(cmpdl.ErrUnknownManifestVer, "version %d", jm.ManifestVersion)
	}

	overrides := jm.Overrides
	if overrides == "" {
		overrides = jsonspec.DefaultOverrides
	}
	overrides = path.Clean(overrides)
	if path.IsAbs(overrides) || overrides == ".." || strings.HasPrefix(overrides, "../") {
		return cmpdl.Manifest{}, errors.Errorf("overrides path %q escapes the archive", jm.Overrides)
	}

	m := cmpdl.Manifest{
		Name:             jm.Name,
		Version:          jm.Version,
		Author:           jm.Author,
		MinecraftVersion: jm.Minecraft.Version,
		ModLoader:        jm.Minecraft.PrimaryLoader(),
		Overrides:        overrides,
		Entries:          make([]cmpdl.ModEntry, 0, len(jm.Files)),
	}

	seen := make(map[cmpdl.ModEntry]bool, len(jm.Files))
	for _, f := range jm.Files {
		e := cmpdl.ModEntry{
			ProjectID: f.ProjectID,
			FileID:    f.FileID,
		}
		if seen[e] {
			logrus.Debugf("duplicate manifest entry %s", e)
			continue
		}
		seen[e] = true
		e.Required = f.Required
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}

// NormalizeURL points CurseForge project pages at their latest file.
func NormalizeURL(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil || !curseHosts[u.Host] {
		return rawurl
	}
	p := strings.TrimSuffix(u.Path, "/")
	switch {
	case strings.HasSuffix(p, "/download"), strings.HasSuffix(p, "/files/latest"):
	case strings.HasSuffix(p, "/files"):
		p += "/latest"
	case strings.Contains(p, "/files/"):
		p += "/download"
	default:
		p += "/files/latest"
	}
	u.Path = p
	return u.String()
}

func (l *Loader) fetchArchive(ctx context.Context, rawurl string) ([]byte, error) {
	u := NormalizeURL(rawurl)
	logrus.Info("Downloading modpack file")
	logrus.Debugf("get %q", u)

	data, final, err := l.get(ctx, u)
	if err != nil {
		return nil, err
	}
	mime := mimetype.Detect(data)
	if isZip(mime) {
		return data, nil
	}
	if !mime.Is("text/html") {
		return nil, errors.Wrap(cmpdl.ErrUnexpectedContent, mime.String())
	}

	link, err := downloadLink(data, final)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("follow download link %q", link)
	data, _, err = l.get(ctx, link)
	if err != nil {
		return nil, err
	}
	if mime := mimetype.Detect(data); !isZip(mime) {
		return nil, errors.Wrap(cmpdl.ErrUnexpectedContent, mime.String())
	}
	return data, nil
}

// get returns the response body and the URL after redirects.
func (l *Loader) get(ctx context.Context, rawurl string) ([]byte, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, nil, err
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	r := resp.Body
	defer func() {
		err := r.Close()
		if err != nil {
			logrus.Warnf("close %q: %+v", rawurl, err)
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &cmpdl.StatusError{URL: rawurl, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return data, resp.Request.URL, nil
}

func downloadLink(page []byte, base *url.URL) (string, error) {
	// Don’t parse HTML pages larger than 1MiB.
	lr := io.LimitReader(bytes.NewReader(page), 1024*1024)
	root, err := html.Parse(lr)
	if err != nil {
		return "", err
	}
	n := downloadSel.MatchFirst(root)
	if n == nil {
		return "", cmpdl.ErrNoDownloadLink
	}
	for _, attr := range n.Attr {
		if attr.Namespace != "" || attr.Key != "href" {
			continue
		}
		ref, err := url.Parse(attr.Val)
		if err != nil {
			return "", errors.Wrapf(err, "parse link %q", attr.Val)
		}
		return base.ResolveReference(ref).String(), nil
	}
	return "", cmpdl.ErrNoDownloadLink
}

func isZip(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}
