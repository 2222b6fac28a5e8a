package filesys

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/errors"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri      string
		expected location
	}{
		{"/tmp/data.parquet", location{scheme: SchemeFile, path: "/tmp/data.parquet"}},
		{"relative/data.arrow", location{scheme: SchemeFile, path: "relative/data.arrow"}},
		{"file:///tmp/data.parquet", location{scheme: SchemeFile, path: "/tmp/data.parquet"}},
		{"mem://fixtures/a.parquet", location{scheme: SchemeMem, path: "/fixtures/a.parquet"}},
		{"S3://bucket/dir/key.parquet", location{scheme: SchemeS3, bucket: "bucket", path: "dir/key.parquet"}},
	}
	for _, test := range tests {
		t.Run(test.uri, func(t *testing.T) {
			loc, err := parseURI(test.uri)
			require.NoError(t, err)
			require.Equal(t, test.expected, loc)
		})
	}
	for _, bad := range []string{"", "ftp://host/x", "s3://bucket", "s3:///key"} {
		_, err := parseURI(bad)
		require.Error(t, err, bad)
	}
}

func TestMemRoundTrip(t *testing.T) {
	opener := NewOpener(conf.NewTestConfig())
	ctx := context.Background()

	w, err := opener.Create(ctx, "mem://filesys_test/round_trip.bin", nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := opener.Open(ctx, "mem://filesys_test/round_trip.bin", nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()
	require.Equal(t, int64(11), f.Size())
	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, "world", string(buf))
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	all, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(all))

	exists, err := afero.Exists(MemFs(), "/filesys_test/round_trip.bin")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestAbortDiscardsPartialFile(t *testing.T) {
	opener := NewOpener(conf.NewTestConfig())
	ctx := context.Background()
	uris := map[string]func(string) (bool, error){
		"mem://filesys_test/aborted.bin": func(string) (bool, error) {
			return afero.Exists(MemFs(), "/filesys_test/aborted.bin")
		},
		filepath.Join(t.TempDir(), "aborted.bin"): func(path string) (bool, error) {
			return afero.Exists(afero.NewOsFs(), path)
		},
	}
	for uri, exists := range uris {
		w, err := opener.Create(ctx, uri, nil)
		require.NoError(t, err)
		_, err = w.Write([]byte("half a file"))
		require.NoError(t, err)
		require.NoError(t, w.Abort(errors.New("write failed")))
		ok, err := exists(uri)
		require.NoError(t, err)
		require.False(t, ok, uri)
		_, err = opener.Open(ctx, uri, nil)
		require.True(t, errors.HasCode(err, errors.SourceUnavailable), "got %v", err)
	}
}

func TestLocalFile(t *testing.T) {
	opener := NewOpener(conf.NewTestConfig())
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "local.bin")

	w, err := opener.Create(ctx, path, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := opener.Open(ctx, "file://"+path, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), f.Size())
	require.NoError(t, f.Close())
}

func TestOpenErrors(t *testing.T) {
	opener := NewOpener(conf.NewTestConfig())
	ctx := context.Background()
	tests := []struct {
		name    string
		uri     string
		options map[string]string
		code    errors.ErrorCode
	}{
		{"Missing", "mem://filesys_test/does_not_exist", nil, errors.SourceUnavailable},
		{"MissingLocal", filepath.Join(t.TempDir(), "nope"), nil, errors.SourceUnavailable},
		{"Directory", t.TempDir(), nil, errors.SourceUnavailable},
		{"UnknownScheme", "gopher://host/x", nil, errors.SourceUnavailable},
		{"OptionsOnMem", "mem://filesys_test/x", map[string]string{"region": "x"}, errors.InvalidScanOption},
		{"UnknownS3Option", "s3://b/k", map[string]string{"endpoint": "localhost:9000", "colour": "blue"}, errors.InvalidScanOption},
		{"BadUseSSL", "s3://b/k", map[string]string{"endpoint": "localhost:9000", "use_ssl": "maybe"}, errors.InvalidScanOption},
		{"NoEndpoint", "s3://b/k", nil, errors.InvalidScanOption},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := opener.Open(ctx, test.uri, test.options)
			require.Error(t, err)
			require.True(t, errors.HasCode(err, test.code), err.Error())
		})
	}
}

func TestS3OptionsDefaultFromConfig(t *testing.T) {
	cfg := conf.NewTestConfig()
	cfg.S3Endpoint = "minio:9000"
	cfg.S3UseSSL = true
	opts, err := parseS3Options("s3://b/k", cfg, map[string]string{"region": "eu-west-2", "use_ssl": "false"})
	require.NoError(t, err)
	require.Equal(t, "minio:9000", opts.endpoint)
	require.Equal(t, "eu-west-2", opts.region)
	require.False(t, opts.useSSL)
}
