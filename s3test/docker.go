// Package s3test runs a MinIO container for tests that need a real S3 endpoint.
package s3test

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ory/dockertest"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const minioVersion = "RELEASE.2023-09-30T07-02-29Z"
const minioAPIPort = "9000/tcp"

const (
	AccessKeyID     = "pranascan"
	SecretAccessKey = "pranascan-secret"
)

// MinioContainer is a reference to a running MinIO server with one bucket created.
type MinioContainer struct {
	Endpoint string
	Bucket   string
	Client   *minio.Client
	minio    *dockertest.Resource
}

// Stop the container.
func (c *MinioContainer) Stop() error {
	if c == nil || c.minio == nil {
		return nil
	}
	return c.minio.Close()
}

// StorageOptions returns the storage options a scan needs to reach the container.
func (c *MinioContainer) StorageOptions() map[string]string {
	return map[string]string{
		"endpoint":          c.Endpoint,
		"access_key_id":     AccessKeyID,
		"secret_access_key": SecretAccessKey,
		"use_ssl":           "false",
	}
}

// RequireMinio starts MinIO and creates the bucket. The test is skipped when docker is not available.
func RequireMinio(t *testing.T, bucket string) *MinioContainer {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
	pool.MaxWait = 60 * time.Second

	log.Info("Starting MinIO")
	container, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        minioVersion,
		Cmd:        []string{"server", "/data"},
		Env: []string{
			"MINIO_ROOT_USER=" + AccessKeyID,
			"MINIO_ROOT_PASSWORD=" + SecretAccessKey,
		},
		ExposedPorts: []string{minioAPIPort},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Close(); err != nil {
			t.Logf("failed to stop minio: %v", err)
		}
	})

	endpoint := "localhost:" + container.GetPort(minioAPIPort)
	mc, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(AccessKeyID, SecretAccessKey, ""),
	})
	require.NoError(t, err)

	err = pool.Retry(func() error {
		err := mc.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{})
		if err != nil {
			log.Infof("minio not ready: %v", err)
		}
		return err
	})
	require.NoError(t, err)

	return &MinioContainer{
		Endpoint: endpoint,
		Bucket:   bucket,
		Client:   mc,
		minio:    container,
	}
}
