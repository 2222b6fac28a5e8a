package conf

import (
	"fmt"
	"net"

	"github.com/squareup/pranascan/errors"
)

const (
	DefaultBatchSize         = 64 * 1024
	DefaultMaxBatchSize      = 1024 * 1024
	DefaultMetricsListenAddr = "localhost:2112"
	DefaultS3Region          = "us-east-1"
)

type Config struct {
	BatchSize         int64  `json:"batch_size,omitempty" help:"Rows per batch when a scan has no row limit" default:"65536"`
	MaxBatchSize      int64  `json:"max_batch_size,omitempty" help:"Upper bound on the batch size used for row limited scans" default:"1048576"`
	S3Endpoint        string `json:"s3_endpoint,omitempty" help:"S3 endpoint used when a scan's storage options do not name one"`
	S3Region          string `json:"s3_region,omitempty" help:"S3 region used when a scan's storage options do not name one" default:"us-east-1"`
	S3UseSSL          bool   `json:"s3_use_ssl,omitempty" help:"Use TLS for S3 connections unless storage options say otherwise"`
	EnableMetrics     bool   `json:"enable_metrics,omitempty" help:"Export scan metrics over HTTP"`
	MetricsListenAddr string `json:"metrics_listen_addr,omitempty" help:"Address of the metrics HTTP listener" default:"localhost:2112"`
}

func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return errors.NewInvalidConfigurationError("BatchSize must be >= 1")
	}
	if c.MaxBatchSize < 1 {
		return errors.NewInvalidConfigurationError("MaxBatchSize must be >= 1")
	}
	if c.BatchSize > c.MaxBatchSize {
		return errors.NewInvalidConfigurationError("MaxBatchSize must be >= BatchSize")
	}
	if c.S3Endpoint != "" {
		if _, _, err := net.SplitHostPort(c.S3Endpoint); err != nil {
			return errors.NewInvalidConfigurationError(fmt.Sprintf("S3Endpoint must be host:port, got %q", c.S3Endpoint))
		}
	}
	if c.EnableMetrics && c.MetricsListenAddr == "" {
		return errors.NewInvalidConfigurationError("MetricsListenAddr must be specified")
	}
	return nil
}

func NewDefaultConfig() *Config {
	return &Config{
		BatchSize:         DefaultBatchSize,
		MaxBatchSize:      DefaultMaxBatchSize,
		S3Region:          DefaultS3Region,
		MetricsListenAddr: DefaultMetricsListenAddr,
	}
}

func NewTestConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.BatchSize = 16
	cfg.MaxBatchSize = 64
	return cfg
}
