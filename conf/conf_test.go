package conf

import (
	"testing"

	"github.com/squareup/pranascan/errors"
	"github.com/stretchr/testify/require"
)

type configPair struct {
	errMsg string
	conf   Config
}

func invalidBatchSizeConf() Config {
	cnf := *NewDefaultConfig()
	cnf.BatchSize = 0
	return cnf
}

func invalidMaxBatchSizeConf() Config {
	cnf := *NewDefaultConfig()
	cnf.MaxBatchSize = 0
	return cnf
}

func batchSizeOverMaxConf() Config {
	cnf := *NewDefaultConfig()
	cnf.BatchSize = cnf.MaxBatchSize + 1
	return cnf
}

func invalidS3EndpointConf() Config {
	cnf := *NewDefaultConfig()
	cnf.S3Endpoint = "minio"
	return cnf
}

func missingMetricsListenAddrConf() Config {
	cnf := *NewDefaultConfig()
	cnf.EnableMetrics = true
	cnf.MetricsListenAddr = ""
	return cnf
}

var invalidConfigs = []configPair{
	{"PSC0001 - Invalid configuration: BatchSize must be >= 1", invalidBatchSizeConf()},
	{"PSC0001 - Invalid configuration: MaxBatchSize must be >= 1", invalidMaxBatchSizeConf()},
	{"PSC0001 - Invalid configuration: MaxBatchSize must be >= BatchSize", batchSizeOverMaxConf()},
	{`PSC0001 - Invalid configuration: S3Endpoint must be host:port, got "minio"`, invalidS3EndpointConf()},
	{"PSC0001 - Invalid configuration: MetricsListenAddr must be specified", missingMetricsListenAddrConf()},
}

func TestValidate(t *testing.T) {
	for _, cp := range invalidConfigs {
		err := cp.conf.Validate()
		require.Error(t, err)
		pe, ok := err.(errors.ScanError)
		require.True(t, ok)
		require.Equal(t, errors.InvalidConfiguration, pe.Code)
		require.Equal(t, cp.errMsg, pe.Msg)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, NewDefaultConfig().Validate())
	require.NoError(t, NewTestConfig().Validate())
	cnf := NewDefaultConfig()
	cnf.S3Endpoint = "localhost:9000"
	cnf.EnableMetrics = true
	require.NoError(t, cnf.Validate())
}
