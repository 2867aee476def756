package fetcher

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/cache"
)

type modHost struct {
	*httptest.Server

	files     map[string][]byte
	infoCalls int
	dlCalls   int
	apiKey    string
}

// newModHost serves file info for project 1 file 2 (examplemod.jar),
// project 3 file 4 with a dead download link and project 5 file 6
// without a download link.
func newModHost(t *testing.T) *modHost {
	h := &modHost{
		files: map[string][]byte{
			"examplemod.jar": []byte("example mod bytes"),
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/mods/", func(w http.ResponseWriter, r *http.Request) {
		h.infoCalls++
		h.apiKey = r.Header.Get("x-api-key")
		var project, file int
		if _, err := fmt.Sscanf(r.URL.Path, "/v1/mods/%d/files/%d", &project, &file); err != nil {
			http.NotFound(w, r)
			return
		}
		switch {
		case project == 1 && file == 2:
			sum := sha1.Sum(h.files["examplemod.jar"])
			fmt.Fprintf(w, `{"data": {"id": 2, "fileName": "examplemod.jar", "downloadUrl": %q, "hashes": [{"value": "%x", "algo": 1}]}}`,
				h.URL+"/files/examplemod.jar", sum)
		case project == 3 && file == 4:
			fmt.Fprintf(w, `{"data": {"id": 4, "fileName": "gone.jar", "downloadUrl": %q}}`, h.URL+"/files/gone.jar")
		case project == 5 && file == 6:
			fmt.Fprint(w, `{"data": {"id": 6, "fileName": "hidden.jar", "downloadUrl": null}}`)
		case project == 7 && file == 8:
			fmt.Fprintf(w, `{"data": {"id": 8, "fileName": "bad.jar", "downloadUrl": %q, "hashes": [{"value": "00", "algo": 1}]}}`,
				h.URL+"/files/examplemod.jar")
		case project == 9 && file == 10:
			fmt.Fprintf(w, `{"data": {"id": 10, "fileName": "../evil.jar", "downloadUrl": %q}}`, h.URL+"/files/examplemod.jar")
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		h.dlCalls++
		data, ok := h.files[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})
	h.Server = httptest.NewServer(mux)
	t.Cleanup(h.Close)
	return h
}

func newTestFetcher(t *testing.T, h *modHost) *Fetcher {
	c, err := cache.Open(memfs.New(), filepath.Join(t.TempDir(), "db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
	})
	return &Fetcher{
		Cache:  c,
		Client: h.Client(),
		APIURL: h.URL,
		APIKey: "key",
	}
}

func TestFetchMissThenHit(t *testing.T) {
	h := newModHost(t)
	f := newTestFetcher(t, h)
	e := cmpdl.ModEntry{ProjectID: 1, FileID: 2}

	rf, err := f.Fetch(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "examplemod.jar", rf.FileName)
	assert.False(t, rf.Cached)
	assert.Equal(t, int64(len(h.files["examplemod.jar"])), rf.Size)
	assert.Equal(t, "key", h.apiKey)

	rf, err = f.Fetch(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, rf.Cached)
	assert.Equal(t, "examplemod.jar", rf.FileName)

	assert.Equal(t, 1, h.infoCalls)
	assert.Equal(t, 1, h.dlCalls)
	assert.Equal(t, Stats{Attempts: 2, Hits: 1, Misses: 1}, f.Stats())

	r, err := f.Open(rf)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, h.files["examplemod.jar"], data)
}

func TestFetchAfterClear(t *testing.T) {
	h := newModHost(t)
	f := newTestFetcher(t, h)
	e := cmpdl.ModEntry{ProjectID: 1, FileID: 2}

	_, err := f.Fetch(context.Background(), e)
	require.NoError(t, err)
	require.NoError(t, f.Cache.Clear())

	rf, err := f.Fetch(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, rf.Cached)
	assert.Equal(t, Stats{Attempts: 2, Misses: 2}, f.Stats())
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		entry    cmpdl.ModEntry
		resolve  bool
		download bool
	}{
		{"unknown file", cmpdl.ModEntry{ProjectID: 100, FileID: 200}, true, false},
		{"no download url", cmpdl.ModEntry{ProjectID: 5, FileID: 6}, true, false},
		{"unsafe file name", cmpdl.ModEntry{ProjectID: 9, FileID: 10}, true, false},
		{"download not found", cmpdl.ModEntry{ProjectID: 3, FileID: 4}, false, true},
		{"checksum mismatch", cmpdl.ModEntry{ProjectID: 7, FileID: 8}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newModHost(t)
			f := newTestFetcher(t, h)

			_, err := f.Fetch(context.Background(), tt.entry)
			require.Error(t, err)

			var resolveErr *cmpdl.ResolveError
			var downloadErr *cmpdl.DownloadError
			assert.Equal(t, tt.resolve, errors.As(err, &resolveErr), "resolve error: %v", err)
			assert.Equal(t, tt.download, errors.As(err, &downloadErr), "download error: %v", err)

			_, err = f.Cache.Stat(key(tt.entry))
			assert.True(t, errors.Is(err, cache.ErrMiss))
		})
	}
}

func TestValidFileName(t *testing.T) {
	assert.True(t, validFileName("jei-1.12.2.jar"))
	assert.False(t, validFileName(""))
	assert.False(t, validFileName(".."))
	assert.False(t, validFileName("a/b.jar"))
	assert.False(t, validFileName(`a\b.jar`))
}

func TestFileInfoSums(t *testing.T) {
	fi := fileInfo{Hashes: []fileHash{
		{Value: "ABCD", Algo: algoSHA1},
		{Value: "ef01", Algo: algoMD5},
		{Value: "zz", Algo: 99},
	}}
	assert.Equal(t, []string{"sha1:abcd", "md5:ef01"}, fi.sums())
}
