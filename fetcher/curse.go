package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tie/cmpdl"
)

// CurseForge hash algorithm ids.
const (
	algoSHA1 = 1
	algoMD5  = 2
)

type fileInfo struct {
	ID          int        `json:"id"`
	DisplayName string     `json:"displayName"`
	FileName    string     `json:"fileName"`
	DownloadURL *string    `json:"downloadUrl"`
	FileLength  int64      `json:"fileLength"`
	Hashes      []fileHash `json:"hashes"`
}

type fileHash struct {
	Value string `json:"value"`
	Algo  int    `json:"algo"`
}

// sums returns the file hashes in the "algo:hex" form used by the cache.
func (fi *fileInfo) sums() []string {
	var sums []string
	for _, h := range fi.Hashes {
		v := strings.ToLower(h.Value)
		switch h.Algo {
		case algoSHA1:
			sums = append(sums, "sha1:"+v)
		case algoMD5:
			sums = append(sums, "md5:"+v)
		}
	}
	return sums
}

func curseURL(apiURL string, projectID, fileID int) string {
	u := "%s/v1/mods/%d/files/%d"
	return fmt.Sprintf(u, strings.TrimSuffix(apiURL, "/"), projectID, fileID)
}

// fetchFileInfo queries the file info endpoint for e.
func (f *Fetcher) fetchFileInfo(ctx context.Context, e cmpdl.ModEntry) (*fileInfo, error) {
	u := curseURL(f.APIURL, e.ProjectID, e.FileID)
	req, err := f.newRequest(ctx, u)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("x-api-key", f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	r := resp.Body
	defer func() {
		err := r.Close()
		if err != nil {
			logrus.Warnf("close %q: %+v", u, err)
		}
	}()
	if resp.StatusCode == http.StatusNotFound {
		return nil, cmpdl.ErrNoFileMatch
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &cmpdl.StatusError{URL: u, Status: resp.StatusCode}
	}

	// Don’t read file info documents larger than 1MiB.
	lr := io.LimitReader(r, 1024*1024)

	var body struct {
		Data *fileInfo `json:"data"`
	}
	if err := json.NewDecoder(lr).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode file info")
	}
	fi := body.Data
	if fi == nil || fi.ID != e.FileID {
		return nil, cmpdl.ErrNoFileMatch
	}
	if fi.DownloadURL == nil || *fi.DownloadURL == "" {
		return nil, errors.Wrapf(cmpdl.ErrNoDownloadLink, "file %q", fi.FileName)
	}
	if !validFileName(fi.FileName) {
		return nil, errors.Errorf("invalid file name %q", fi.FileName)
	}
	return fi, nil
}

func validFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return path.Base(name) == name
}
