// Package cache stores downloaded CurseForge files keyed by project and file ID.
//
// File contents live on a billy.Filesystem as curse/<project>/<file>.dat with
// a checksum list next to it in <file>.sum. File metadata needed without
// network access (the file name) is kept in a pogreb index.
package cache

import (
	"bufio"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"os"
	"strconv"

	"github.com/akrylysov/pogreb"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"
)

const curseDir = "curse"

var (
	ErrMiss         = errors.New("cache miss")
	ErrSumsMismatch = errors.New("checksum mismatch")
)

// Key identifies a cached file.
type Key struct {
	ProjectID int
	FileID    int
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.ProjectID, k.FileID)
}

func (k Key) indexKey() []byte {
	return []byte(curseDir + "/" + k.String())
}

// Entry is the metadata stored for a cached file.
type Entry struct {
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
	Size        int64  `json:"size"`
}

type Cache struct {
	Files billy.Filesystem
	Index *pogreb.DB
}

// Open opens a cache rooted at fs with the pogreb index at dbPath.
func Open(fs billy.Filesystem, dbPath string, opts *pogreb.Options) (*Cache, error) {
	db, err := pogreb.Open(dbPath, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open index %q", dbPath)
	}
	return &Cache{Files: fs, Index: db}, nil
}

func (c *Cache) Close() error {
	return c.Index.Close()
}

// Get returns the cached entry and its content. The caller closes the file.
// ErrMiss is returned if the key is not cached.
func (c *Cache) Get(k Key) (Entry, billy.File, error) {
	e, err := c.entry(k)
	if err != nil {
		return Entry{}, nil, err
	}
	f, err := c.openData(k)
	if err != nil {
		return Entry{}, nil, err
	}
	return e, f, nil
}

// Stat is like Get but does not open the content.
func (c *Cache) Stat(k Key) (Entry, error) {
	return c.entry(k)
}

// Open returns the cached content for k.
func (c *Cache) Open(k Key) (billy.File, error) {
	if _, err := c.entry(k); err != nil {
		return nil, err
	}
	return c.openData(k)
}

func (c *Cache) entry(k Key) (Entry, error) {
	var e Entry
	v, err := c.Index.Get(k.indexKey())
	if err != nil {
		return e, errors.Wrapf(err, "index get %s", k)
	}
	if v == nil {
		return e, ErrMiss
	}
	if err := json.Unmarshal(v, &e); err != nil {
		return e, errors.Wrapf(err, "decode index entry %s", k)
	}
	fi, err := c.Files.Stat(c.dataPath(k))
	if os.IsNotExist(err) {
		return e, ErrMiss
	}
	if err != nil {
		return e, err
	}
	if fi.Size() != e.Size {
		logrus.Debugf("cache entry %s has size %d, want %d", k, fi.Size(), e.Size)
		return e, ErrMiss
	}
	return e, nil
}

func (c *Cache) openData(k Key) (billy.File, error) {
	f, err := c.Files.Open(c.dataPath(k))
	if os.IsNotExist(err) {
		return nil, ErrMiss
	}
	return f, err
}

// Put stores the content read from r under k and returns the entry with its
// size filled in. If sums are given, each must match one of the computed
// "algo:hex" checksums or ErrSumsMismatch is returned and nothing is stored.
func (c *Cache) Put(k Key, e Entry, r io.Reader, sums ...string) (Entry, error) {
	dir := c.dir(k)
	if err := c.Files.MkdirAll(dir, 0755); err != nil {
		return e, err
	}

	hashNames := []string{
		"md5",
		"sha1",
		"sha256",
		"keccak256",
	}
	hashes := []hash.Hash{
		md5.New(),
		sha1.New(),
		sha256.New(),
		sha3.NewLegacyKeccak256(),
	}

	tmp, err := util.TempFile(c.Files, dir, strconv.Itoa(k.FileID)+".tmp")
	if err != nil {
		return e, err
	}
	tmpName := tmp.Name()
	n, err := copyHashed(tmp, r, hashes)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.remove(tmpName)
		return e, err
	}

	computed := make([]string, len(hashes))
	for i, name := range hashNames {
		computed[i] = fmt.Sprintf("%s:%x", name, hashes[i].Sum(nil))
	}
	if err := verifySums(sums, computed); err != nil {
		c.remove(tmpName)
		return e, err
	}

	if err := c.Files.Rename(tmpName, c.dataPath(k)); err != nil {
		c.remove(tmpName)
		return e, err
	}
	if err := c.writeSums(k, computed); err != nil {
		return e, err
	}

	e.Size = n
	v, err := json.Marshal(&e)
	if err != nil {
		return e, err
	}
	if err := c.Index.Put(k.indexKey(), v); err != nil {
		return e, errors.Wrapf(err, "index put %s", k)
	}
	return e, nil
}

// Sums returns the checksums recorded for k.
func (c *Cache) Sums(k Key) ([]string, error) {
	f, err := c.Files.Open(c.sumsPath(k))
	if os.IsNotExist(err) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		cerr := f.Close()
		if cerr != nil {
			logrus.Warnf("close %q: %+v", f.Name(), cerr)
		}
	}()
	sums := []string{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		sums = append(sums, s.Text())
	}
	return sums, s.Err()
}

// Clear removes every cached file and index entry.
func (c *Cache) Clear() error {
	var keys [][]byte
	it := c.Index.Items()
	for {
		key, _, err := it.Next()
		if err == pogreb.ErrIterationDone {
			break
		}
		if err != nil {
			return errors.Wrap(err, "index items")
		}
		keys = append(keys, key)
	}
	for _, key := range keys {
		if err := c.Index.Delete(key); err != nil {
			return errors.Wrapf(err, "index delete %q", key)
		}
	}
	if err := util.RemoveAll(c.Files, curseDir); err != nil {
		return errors.Wrap(err, "remove cached files")
	}
	logrus.Debugf("removed %d cache entries", len(keys))
	return nil
}

func (c *Cache) dir(k Key) string {
	return c.Files.Join(curseDir, strconv.Itoa(k.ProjectID))
}

func (c *Cache) dataPath(k Key) string {
	return c.Files.Join(c.dir(k), strconv.Itoa(k.FileID)+".dat")
}

func (c *Cache) sumsPath(k Key) string {
	return c.Files.Join(c.dir(k), strconv.Itoa(k.FileID)+".sum")
}

func (c *Cache) writeSums(k Key, sums []string) (err error) {
	flags := os.O_WRONLY | os.O_TRUNC | os.O_CREATE
	f, err := c.Files.OpenFile(c.sumsPath(k), flags, 0644)
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	defer func() {
		ferr := w.Flush()
		if err == nil {
			err = ferr
		}
	}()
	for _, sum := range sums {
		_, err = fmt.Fprintf(w, "%s\r\n", sum)
		if err != nil {
			break
		}
	}
	return err
}

func (c *Cache) remove(name string) {
	if err := c.Files.Remove(name); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("remove %q: %+v", name, err)
	}
}

func copyHashed(w io.Writer, r io.Reader, hashes []hash.Hash) (int64, error) {
	ww := make([]io.Writer, 0, len(hashes)+1)
	for _, h := range hashes {
		ww = append(ww, h)
	}
	ww = append(ww, w)
	return io.Copy(io.MultiWriter(ww...), r)
}

func verifySums(want, computed []string) error {
	if len(want) <= 0 {
		return nil
	}
	have := make(map[string]struct{}, len(computed))
	for _, sum := range computed {
		have[sum] = struct{}{}
	}
	for _, sum := range want {
		if _, ok := have[sum]; ok {
			continue
		}
		return errors.Wrap(ErrSumsMismatch, sum)
	}
	return nil
}
