package cmpdl

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNoManifest           = errors.New("archive has no manifest.json")
	ErrNotModpack           = errors.New("not a minecraft modpack")
	ErrUnknownManifestVer   = errors.New("unknown manifest version")
	ErrNoDownloadLink       = errors.New("no download link")
	ErrUnexpectedContent    = errors.New("unexpected content type")
	ErrNoFileMatch          = errors.New("no matching file")
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
)

// StatusError records a non-successful HTTP response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", e.URL, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatusCode }

// ManifestFetchError is returned when the modpack archive cannot be obtained.
type ManifestFetchError struct {
	Source string
	Err    error
}

func (e *ManifestFetchError) Error() string {
	return fmt.Sprintf("fetch manifest %q: %v", e.Source, e.Err)
}

func (e *ManifestFetchError) Unwrap() error { return e.Err }

// ManifestParseError is returned when the archive has no usable manifest.
type ManifestParseError struct {
	Source string
	Err    error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("parse manifest %q: %v", e.Source, e.Err)
}

func (e *ManifestParseError) Unwrap() error { return e.Err }

// ResolveError is returned when the file info lookup for an entry fails.
type ResolveError struct {
	Entry ModEntry
	Err   error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Entry, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// DownloadError is returned when fetching a resolved URL fails.
type DownloadError struct {
	Entry ModEntry
	URL   string
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s from %q: %v", e.Entry, e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// WriteError is returned when the output layout cannot be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
