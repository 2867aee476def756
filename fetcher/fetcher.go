// Package fetcher resolves CurseForge mod entries and downloads them into the cache.
package fetcher

import (
	"context"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/cache"
)

// Stats counts resolution attempts of a Fetcher.
type Stats struct {
	Attempts int
	Hits     int
	Misses   int
}

type Fetcher struct {
	Cache  *cache.Cache
	Client *http.Client

	APIURL    string
	APIKey    string
	UserAgent string

	stats Stats
}

func (f *Fetcher) Stats() Stats {
	return f.stats
}

// Fetch makes the content of e available in the cache. On a cache miss the
// file info endpoint is queried and the file is downloaded.
func (f *Fetcher) Fetch(ctx context.Context, e cmpdl.ModEntry) (cmpdl.ResolvedFile, error) {
	f.stats.Attempts++
	k := key(e)

	ce, err := f.Cache.Stat(k)
	if err == nil {
		f.stats.Hits++
		logrus.Debugf("cache hit %s: %s", k, ce.FileName)
		return resolved(e, ce, true), nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		return cmpdl.ResolvedFile{}, err
	}
	f.stats.Misses++

	fi, err := f.fetchFileInfo(ctx, e)
	if err != nil {
		return cmpdl.ResolvedFile{}, &cmpdl.ResolveError{Entry: e, Err: err}
	}

	rawurl := *fi.DownloadURL
	ce = cache.Entry{
		FileName:    fi.FileName,
		DownloadURL: rawurl,
	}
	ce, err = f.download(ctx, k, ce, fi.sums())
	if err != nil {
		return cmpdl.ResolvedFile{}, &cmpdl.DownloadError{Entry: e, URL: rawurl, Err: err}
	}
	logrus.Debugf("downloaded %s: %s (%s)", k, ce.FileName, humanize.Bytes(uint64(ce.Size)))
	return resolved(e, ce, false), nil
}

func (f *Fetcher) download(ctx context.Context, k cache.Key, ce cache.Entry, sums []string) (cache.Entry, error) {
	req, err := f.newRequest(ctx, ce.DownloadURL)
	if err != nil {
		return ce, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return ce, err
	}
	r := resp.Body
	defer func() {
		err := r.Close()
		if err != nil {
			logrus.Warnf("close %q: %+v", ce.DownloadURL, err)
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ce, &cmpdl.StatusError{URL: ce.DownloadURL, Status: resp.StatusCode}
	}
	return f.Cache.Put(k, ce, r, sums...)
}

func (f *Fetcher) newRequest(ctx context.Context, rawurl string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	return req, nil
}

// Open returns the content of a resolved file.
func (f *Fetcher) Open(rf cmpdl.ResolvedFile) (io.ReadCloser, error) {
	return f.Cache.Open(key(rf.Entry))
}

func key(e cmpdl.ModEntry) cache.Key {
	return cache.Key{ProjectID: e.ProjectID, FileID: e.FileID}
}

func resolved(e cmpdl.ModEntry, ce cache.Entry, cached bool) cmpdl.ResolvedFile {
	return cmpdl.ResolvedFile{
		Entry:       e,
		FileName:    ce.FileName,
		DownloadURL: ce.DownloadURL,
		Size:        ce.Size,
		Cached:      cached,
	}
}
