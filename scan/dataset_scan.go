package scan

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/dataset"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/failinject"
)

func (d *DatasetScan) lookup(env *Env) (dataset.Dataset, error) {
	ds, ok := env.Catalog.Get(d.DatasetName)
	if !ok {
		return nil, errors.NewSourceUnavailableError(d.SourceName(), errors.Errorf("no dataset named %s", d.DatasetName))
	}
	return ds, nil
}

func (d *DatasetScan) Probe(ctx context.Context, env *Env) (common.Schema, error) {
	ds, err := d.lookup(env)
	if err != nil {
		return common.Schema{}, err
	}
	return common.SchemaFromArrow(d.SourceName(), ds.Schema())
}

func (d *DatasetScan) Materialize(ctx context.Context, env *Env, schema common.Schema, inv Invocation) (arrow.Table, error) {
	source := d.SourceName()
	if len(inv.ReadOptions) > 0 {
		return nil, errors.NewInvalidScanOptionError(source, "dataset scans do not take read options")
	}
	p, err := newPlan(source, schema, inv, d.AllowPredicatePushdown, env)
	if err != nil {
		return nil, err
	}
	if p.limit != nil && *p.limit == 0 {
		return p.emptyTable(), nil
	}
	ds, err := d.lookup(env)
	if err != nil {
		return nil, err
	}
	opts := dataset.ScanOptions{
		Columns:   p.readColumns,
		BatchSize: p.batchSize,
		Mem:       env.Mem,
	}
	if !p.hostFilter {
		opts.Filter = p.predicate
	}
	reader, err := ds.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := env.Injector.GetFailpoint(failinject.ScanOpenSource).CheckFail(); err != nil {
		common.InvokeCloser(reader)
		return nil, err
	}
	return p.collect(ctx, env, reader)
}
