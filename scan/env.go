package scan

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/dataset"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/failinject"
	"github.com/squareup/pranascan/filesys"
	"github.com/squareup/pranascan/metrics"
)

// Env is what a process needs to register and execute scans. It is shared by concurrent scans and holds no
// per scan state.
type Env struct {
	Conf     *conf.Config
	Catalog  *dataset.Catalog
	Opener   filesys.Opener
	Mem      memory.Allocator
	Injector failinject.Injector
	metrics  *scanMetrics
}

type scanMetrics struct {
	registrations    metrics.Counter
	materializations metrics.Counter
	batchesRead      metrics.Counter
	rowsReturned     metrics.Counter
	scanErrors       metrics.Counter
}

// NewEnv validates cfg and builds an environment. Nil collaborators get defaults: a new catalog, the
// default opener, a no-op metrics factory and failpoints that never fire. A metrics factory that is passed
// in must already be started.
func NewEnv(cfg *conf.Config, catalog *dataset.Catalog, opener filesys.Opener, factory metrics.Factory,
	injector failinject.Injector) (*Env, error) {
	if cfg == nil {
		cfg = conf.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = dataset.NewCatalog()
	}
	if opener == nil {
		opener = filesys.NewOpener(cfg)
	}
	if factory == nil {
		factory = metrics.NewNoopFactory()
	}
	if injector == nil {
		injector = failinject.NewDummyInjector()
	}
	m, err := newScanMetrics(factory)
	if err != nil {
		return nil, err
	}
	return &Env{
		Conf:     cfg,
		Catalog:  catalog,
		Opener:   opener,
		Mem:      memory.DefaultAllocator,
		Injector: injector,
		metrics:  m,
	}, nil
}

func newScanMetrics(factory metrics.Factory) (*scanMetrics, error) {
	var m scanMetrics
	var err error
	counters := []struct {
		c    *metrics.Counter
		name string
		help string
	}{
		{&m.registrations, "pranascan_registrations_total", "scan nodes registered"},
		{&m.materializations, "pranascan_materializations_total", "scan tokens executed successfully"},
		{&m.batchesRead, "pranascan_batches_read_total", "batches read from sources"},
		{&m.rowsReturned, "pranascan_rows_returned_total", "rows returned by scan executions"},
		{&m.scanErrors, "pranascan_scan_errors_total", "scan registrations and executions that failed"},
	}
	for _, c := range counters {
		*c.c, err = factory.CreateCounter(c.name, c.help)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return &m, nil
}
