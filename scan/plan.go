package scan

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/expr"
	"github.com/squareup/pranascan/failinject"
)

// plan is an invocation resolved against the schema embedded in the token.
type plan struct {
	source string
	// output is the schema of the materialized table.
	output common.Schema
	// predicate is nil when the invocation has no filter.
	predicate *expr.Predicate
	// hostFilter is set when the predicate is evaluated here rather than by the source.
	hostFilter bool
	// readColumns are the columns asked of the source. Nil means every column.
	readColumns []string
	limit       *int64
	batchSize   int64
}

func newPlan(source string, schema common.Schema, inv Invocation, pushdown bool, env *Env) (*plan, error) {
	output, err := schema.Project(source, inv.WithColumns)
	if err != nil {
		return nil, err
	}
	p := &plan{source: source, output: output, readColumns: inv.WithColumns}
	if inv.NRows != nil {
		if *inv.NRows < 0 {
			return nil, errors.NewInvalidScanOptionError(source, "n_rows must not be negative")
		}
		limit := *inv.NRows
		p.limit = &limit
		p.batchSize = limit
		if p.batchSize > env.Conf.MaxBatchSize {
			p.batchSize = env.Conf.MaxBatchSize
		}
	} else {
		p.batchSize = env.Conf.BatchSize
	}
	if inv.Predicate != "" {
		p.predicate, err = expr.Compile(inv.Predicate, schema)
		if err != nil {
			return nil, err
		}
		p.hostFilter = !pushdown
		if p.hostFilter && p.readColumns != nil {
			p.readColumns = widen(p.readColumns, p.predicate.Columns())
		}
	}
	if p.readColumns != nil && len(p.readColumns) == 0 && len(schema.Columns) > 0 {
		// An empty projection still has a row count, so one column is read to carry it.
		p.readColumns = []string{schema.Columns[0].Name}
	}
	return p, nil
}

// widen appends the columns of extra that are not already in columns.
func widen(columns []string, extra []string) []string {
	res := append([]string(nil), columns...)
	for _, col := range extra {
		found := false
		for _, c := range res {
			if c == col {
				found = true
				break
			}
		}
		if !found {
			res = append(res, col)
		}
	}
	return res
}

func (p *plan) emptyTable() arrow.Table {
	return array.NewTableFromRecords(p.output.ToArrow(), nil)
}

// collect pulls batches from reader until the source is exhausted or the row limit is reached. The reader
// is closed on every path.
func (p *plan) collect(ctx context.Context, env *Env, reader common.BatchReader) (tbl arrow.Table, err error) {
	var batches []arrow.Record
	defer func() {
		common.ReleaseRecords(batches)
		if cerr := reader.Close(); cerr != nil && err == nil {
			if tbl != nil {
				tbl.Release()
				tbl = nil
			}
			err = errors.NewSourceUnavailableError(p.source, cerr)
		}
	}()
	outSchema := p.output.ToArrow()
	outColumns := p.output.ColumnNames()
	nextBatch := env.Injector.GetFailpoint(failinject.ScanNextBatch)
	var count int64
	var numBatches int
	for p.limit == nil || count < *p.limit {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		if err := nextBatch.CheckFail(); err != nil {
			return nil, err
		}
		rec, err := reader.NextBatch(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		numBatches++
		env.metrics.batchesRead.Inc()
		out, err := p.shape(ctx, env, rec, outSchema, outColumns)
		rec.Release()
		if err != nil {
			return nil, err
		}
		if p.limit != nil && count+out.NumRows() > *p.limit {
			sliced := common.SliceRecord(out, *p.limit-count)
			out.Release()
			out = sliced
		}
		count += out.NumRows()
		batches = append(batches, out)
	}
	log.Debugf("read %d batches, %d rows from %s", numBatches, count, p.source)
	env.metrics.rowsReturned.Add(float64(count))
	if len(outColumns) == 0 {
		return array.NewTable(outSchema, nil, count), nil
	}
	return array.NewTableFromRecords(outSchema, batches), nil
}

// shape filters a batch when the predicate is evaluated here, narrows it to the output columns and checks
// the column types against the registered schema.
func (p *plan) shape(ctx context.Context, env *Env, rec arrow.Record, outSchema *arrow.Schema,
	outColumns []string) (arrow.Record, error) {
	if p.hostFilter {
		filtered, err := p.predicate.Filter(ctx, env.Mem, rec)
		if err != nil {
			return nil, err
		}
		defer filtered.Release()
		rec = filtered
	}
	projected, err := common.ProjectRecord(p.source, rec, outColumns)
	if err != nil {
		return nil, err
	}
	defer projected.Release()
	for i, col := range p.output.Columns {
		actual := projected.Column(i).DataType()
		ct, ok := common.ColumnTypeFromArrow(actual)
		if !ok || ct != col.ColumnType {
			return nil, errors.NewSchemaMismatchError(p.source, "column "+col.Name+" was registered as "+
				col.ColumnType.String()+" but the source now returns "+actual.String())
		}
	}
	return array.NewRecord(outSchema, projected.Columns(), projected.NumRows()), nil
}
