package filesys

import (
	"context"
	"io"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/errors"
)

// Storage option keys understood by s3:// URIs.
const (
	OptEndpoint        = "endpoint"
	OptAccessKeyID     = "access_key_id"
	OptSecretAccessKey = "secret_access_key"
	OptSessionToken    = "session_token"
	OptRegion          = "region"
	OptUseSSL          = "use_ssl"
)

type s3Options struct {
	endpoint        string
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
	region          string
	useSSL          bool
}

func parseS3Options(uri string, cfg *conf.Config, storageOptions map[string]string) (*s3Options, error) {
	opts := &s3Options{
		endpoint: cfg.S3Endpoint,
		region:   cfg.S3Region,
		useSSL:   cfg.S3UseSSL,
	}
	for _, k := range common.SortedKeys(storageOptions) {
		v := storageOptions[k]
		switch k {
		case OptEndpoint:
			opts.endpoint = v
		case OptAccessKeyID:
			opts.accessKeyID = v
		case OptSecretAccessKey:
			opts.secretAccessKey = v
		case OptSessionToken:
			opts.sessionToken = v
		case OptRegion:
			opts.region = v
		case OptUseSSL:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, errors.NewInvalidScanOptionError(uri, "use_ssl must be a boolean, got "+v)
			}
			opts.useSSL = b
		default:
			return nil, errors.NewInvalidScanOptionError(uri, "unknown storage option "+k)
		}
	}
	if opts.endpoint == "" {
		return nil, errors.NewInvalidScanOptionError(uri, "no S3 endpoint configured")
	}
	return opts, nil
}

func (o *s3Options) client() (*minio.Client, error) {
	return minio.New(o.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.accessKeyID, o.secretAccessKey, o.sessionToken),
		Secure: o.useSSL,
		Region: o.region,
	})
}

type s3File struct {
	*minio.Object
	size int64
}

func (f *s3File) Size() int64 {
	return f.size
}

func openS3(ctx context.Context, uri string, opts *s3Options, loc location) (File, error) {
	mc, err := opts.client()
	if err != nil {
		return nil, errors.NewSourceUnavailableError(uri, err)
	}
	obj, err := mc.GetObject(ctx, loc.bucket, loc.path, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.NewSourceUnavailableError(uri, err)
	}
	info, err := obj.Stat()
	if err != nil {
		common.InvokeCloser(obj)
		return nil, errors.NewSourceUnavailableError(uri, err)
	}
	return &s3File{Object: obj, size: info.Size}, nil
}

// s3Writer streams writes into a single PutObject call.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return errors.WithStack(err)
	}
	return <-w.done
}

// Abort fails the upload, so that PutObject returns without committing the object.
func (w *s3Writer) Abort(cause error) error {
	if cause == nil {
		cause = errors.New("upload aborted")
	}
	_ = w.pw.CloseWithError(cause)
	<-w.done
	return nil
}

func createS3(ctx context.Context, uri string, opts *s3Options, loc location) (Writer, error) {
	mc, err := opts.client()
	if err != nil {
		return nil, errors.NewSourceUnavailableError(uri, err)
	}
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	go func() {
		info, err := mc.PutObject(ctx, loc.bucket, loc.path, pr, -1, minio.PutObjectOptions{})
		if err != nil {
			_ = pr.CloseWithError(err)
			w.done <- errors.NewSourceUnavailableError(uri, err)
			return
		}
		log.Debugf("wrote %d bytes to %s", info.Size, uri)
		w.done <- nil
	}()
	return w, nil
}
