// Package filesys opens columnar files named by URI on local disk, in process memory or in an S3 bucket.
package filesys

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/errors"
)

const (
	SchemeFile = "file"
	SchemeMem  = "mem"
	SchemeS3   = "s3"
)

// File is an open, seekable, random access file of known size.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
	Size() int64
}

// Writer is a file being written. Close commits it. Abort discards whatever was written, after which the
// file does not exist.
type Writer interface {
	io.WriteCloser
	Abort(cause error) error
}

type Opener interface {
	// Open opens the file at uri. The storage options are scheme specific.
	Open(ctx context.Context, uri string, storageOptions map[string]string) (File, error)
	// Create creates or truncates the file at uri for writing.
	Create(ctx context.Context, uri string, storageOptions map[string]string) (Writer, error)
}

// memFs backs mem:// URIs for the lifetime of the process.
var memFs = afero.NewMemMapFs()

// MemFs returns the file system behind mem:// URIs.
func MemFs() afero.Fs {
	return memFs
}

// DefaultOpener dispatches on the URI scheme. A URI without a scheme is a local path.
type DefaultOpener struct {
	cfg  *conf.Config
	osFs afero.Fs
}

var _ Opener = &DefaultOpener{}

func NewOpener(cfg *conf.Config) *DefaultOpener {
	return &DefaultOpener{cfg: cfg, osFs: afero.NewOsFs()}
}

type location struct {
	scheme string
	bucket string
	path   string
}

func parseURI(uri string) (location, error) {
	if !strings.Contains(uri, "://") {
		if uri == "" {
			return location{}, errors.New("empty uri")
		}
		return location{scheme: SchemeFile, path: uri}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return location{}, errors.WithStack(err)
	}
	switch strings.ToLower(u.Scheme) {
	case SchemeFile:
		return location{scheme: SchemeFile, path: u.Host + u.Path}, nil
	case SchemeMem:
		return location{scheme: SchemeMem, path: path.Join("/", u.Host, u.Path)}, nil
	case SchemeS3:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return location{}, errors.Errorf("s3 uri %s must name a bucket and a key", uri)
		}
		return location{scheme: SchemeS3, bucket: u.Host, path: key}, nil
	default:
		return location{}, errors.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (o *DefaultOpener) Open(ctx context.Context, uri string, storageOptions map[string]string) (File, error) {
	loc, err := parseURI(uri)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(uri, err)
	}
	log.Debugf("opening %s", uri)
	switch loc.scheme {
	case SchemeS3:
		opts, err := parseS3Options(uri, o.cfg, storageOptions)
		if err != nil {
			return nil, err
		}
		return openS3(ctx, uri, opts, loc)
	case SchemeMem:
		if err := checkNoOptions(uri, storageOptions); err != nil {
			return nil, err
		}
		return openAfero(uri, memFs, loc.path)
	default:
		if err := checkNoOptions(uri, storageOptions); err != nil {
			return nil, err
		}
		return openAfero(uri, o.osFs, loc.path)
	}
}

func (o *DefaultOpener) Create(ctx context.Context, uri string, storageOptions map[string]string) (Writer, error) {
	loc, err := parseURI(uri)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(uri, err)
	}
	switch loc.scheme {
	case SchemeS3:
		opts, err := parseS3Options(uri, o.cfg, storageOptions)
		if err != nil {
			return nil, err
		}
		return createS3(ctx, uri, opts, loc)
	case SchemeMem:
		if err := checkNoOptions(uri, storageOptions); err != nil {
			return nil, err
		}
		return createAfero(uri, memFs, loc.path)
	default:
		if err := checkNoOptions(uri, storageOptions); err != nil {
			return nil, err
		}
		return createAfero(uri, o.osFs, loc.path)
	}
}

func checkNoOptions(uri string, storageOptions map[string]string) error {
	for k := range storageOptions {
		return errors.NewInvalidScanOptionError(uri, "unknown storage option "+k)
	}
	return nil
}

type aferoFile struct {
	afero.File
	size int64
}

func (f *aferoFile) Size() int64 {
	return f.size
}

func openAfero(uri string, fs afero.Fs, name string) (File, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(uri, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.NewSourceUnavailableError(uri, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, errors.NewSourceUnavailableError(uri, errors.New("is a directory"))
	}
	return &aferoFile{File: f, size: info.Size()}, nil
}

type aferoWriter struct {
	afero.File
	fs   afero.Fs
	name string
}

func (w *aferoWriter) Abort(cause error) error {
	log.Debugf("discarding %s: %v", w.name, cause)
	_ = w.File.Close()
	if err := w.fs.Remove(w.name); err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

func createAfero(uri string, fs afero.Fs, name string) (Writer, error) {
	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewSourceUnavailableError(uri, err)
		}
	}
	f, err := fs.Create(name)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(uri, err)
	}
	return &aferoWriter{File: f, fs: fs, name: name}, nil
}
