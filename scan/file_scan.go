package scan

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/failinject"
	"github.com/squareup/pranascan/format"
)

func (f *FileScan) Probe(ctx context.Context, env *Env) (common.Schema, error) {
	file, err := env.Opener.Open(ctx, f.URI, f.StorageOptions)
	if err != nil {
		return common.Schema{}, err
	}
	defer common.InvokeCloser(file)
	as, err := format.ReadSchema(ctx, f.Format, f.URI, file)
	if err != nil {
		return common.Schema{}, err
	}
	return common.SchemaFromArrow(f.URI, as)
}

// Materialize always filters on the host: format readers only take the projection and read options.
func (f *FileScan) Materialize(ctx context.Context, env *Env, schema common.Schema, inv Invocation) (arrow.Table, error) {
	p, err := newPlan(f.URI, schema, inv, false, env)
	if err != nil {
		return nil, err
	}
	if p.limit != nil && *p.limit == 0 {
		return p.emptyTable(), nil
	}
	file, err := env.Opener.Open(ctx, f.URI, f.StorageOptions)
	if err != nil {
		return nil, err
	}
	reader, err := format.OpenBatches(ctx, f.Format, f.URI, file, format.ReadOptions{
		Columns:   p.readColumns,
		BatchSize: p.batchSize,
		Extra:     inv.ReadOptions,
		Mem:       env.Mem,
	})
	if err != nil {
		return nil, err
	}
	if err := env.Injector.GetFailpoint(failinject.ScanOpenSource).CheckFail(); err != nil {
		common.InvokeCloser(reader)
		return nil, err
	}
	return p.collect(ctx, env, reader)
}
