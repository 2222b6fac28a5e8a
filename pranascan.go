// Package pranascan is the public surface of the scan bridge. It has no behaviour of its own: the types
// are those of the scan, dataset, format and errors packages.
package pranascan

import (
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/dataset"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/failinject"
	"github.com/squareup/pranascan/filesys"
	"github.com/squareup/pranascan/format"
	"github.com/squareup/pranascan/metrics"
	"github.com/squareup/pranascan/scan"
)

type (
	Config     = conf.Config
	Env        = scan.Env
	Node       = scan.Node
	Invocation = scan.Invocation
	Registrar  = scan.Registrar
	Executor   = scan.Executor
	Dataset    = dataset.Dataset
	Catalog    = dataset.Catalog
	Format     = format.Format
	ScanError  = errors.ScanError
	ErrorCode  = errors.ErrorCode
)

const (
	Parquet = format.Parquet
	IPC     = format.IPC
)

// Bridge bundles a registrar and an executor over one environment.
type Bridge struct {
	*scan.Registrar
	*scan.Executor
	Env *scan.Env
}

// New builds a bridge. Nil arguments get the defaults described on scan.NewEnv.
func New(cfg *conf.Config, catalog *dataset.Catalog, opener filesys.Opener, factory metrics.Factory) (*Bridge, error) {
	env, err := scan.NewEnv(cfg, catalog, opener, factory, failinject.NewDummyInjector())
	if err != nil {
		return nil, err
	}
	return &Bridge{Registrar: scan.NewRegistrar(env), Executor: scan.NewExecutor(env), Env: env}, nil
}

var (
	NewCatalog  = dataset.NewCatalog
	NewInMemory = dataset.NewInMemory
	FromTable   = dataset.FromTable
	NRows       = scan.Int64
	HasCode     = errors.HasCode
)
