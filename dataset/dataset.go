// Package dataset holds columnar datasets that live in the host process and can be scanned by name.
package dataset

import (
	"context"
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/expr"
)

// ScanOptions are the pushdowns a dataset applies itself.
type ScanOptions struct {
	// Columns to return, in order. Nil returns every column.
	Columns []string
	// Filter, when set, drops the rows for which it is not true. Filtering happens before projection so the
	// filter may reference columns that are not returned.
	Filter *expr.Predicate
	// BatchSize caps the rows per returned batch. Zero or less means no cap.
	BatchSize int64
	Mem       memory.Allocator
}

type Dataset interface {
	Name() string
	Schema() *arrow.Schema
	Scan(ctx context.Context, opts ScanOptions) (common.BatchReader, error)
}

// InMemory is a dataset backed by record batches held in memory. It is immutable once built and safe for
// concurrent scans.
type InMemory struct {
	name     string
	schema   *arrow.Schema
	records  []arrow.Record
	lock     sync.Mutex
	released bool
}

var _ Dataset = &InMemory{}

// NewInMemory builds a dataset over the given records, which must all have the given schema. The dataset
// retains the records.
func NewInMemory(name string, schema *arrow.Schema, records ...arrow.Record) (*InMemory, error) {
	for i, rec := range records {
		if !rec.Schema().Equal(schema) {
			return nil, errors.Errorf("record %d of dataset %s has schema %s, expected %s", i, name, rec.Schema(), schema)
		}
	}
	for _, rec := range records {
		rec.Retain()
	}
	return &InMemory{name: name, schema: schema, records: append([]arrow.Record(nil), records...)}, nil
}

// FromTable builds a dataset over the chunks of a table.
func FromTable(name string, table arrow.Table) (*InMemory, error) {
	tr := array.NewTableReader(table, -1)
	defer tr.Release()
	var records []arrow.Record
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		records = append(records, rec)
	}
	defer common.ReleaseRecords(records)
	return NewInMemory(name, table.Schema(), records...)
}

func (d *InMemory) Name() string {
	return d.name
}

func (d *InMemory) Schema() *arrow.Schema {
	return d.schema
}

func (d *InMemory) NumRows() int64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	var n int64
	for _, rec := range d.records {
		n += rec.NumRows()
	}
	return n
}

// Release drops the dataset's reference to its records.
func (d *InMemory) Release() {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.released {
		d.released = true
		common.ReleaseRecords(d.records)
		d.records = nil
	}
}

func (d *InMemory) Scan(ctx context.Context, opts ScanOptions) (common.BatchReader, error) {
	for _, col := range opts.Columns {
		if len(d.schema.FieldIndices(col)) != 1 {
			return nil, errors.NewUnknownColumnError(d.name, col)
		}
	}
	mem := opts.Mem
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.released {
		return nil, errors.NewSourceUnavailableError(d.name, errors.New("dataset has been released"))
	}
	for _, rec := range d.records {
		rec.Retain()
	}
	log.Debugf("scanning in-memory dataset %s with %d batches", d.name, len(d.records))
	return &inMemoryReader{
		name:    d.name,
		records: append([]arrow.Record(nil), d.records...),
		opts:    opts,
		mem:     mem,
	}, nil
}

type inMemoryReader struct {
	name    string
	records []arrow.Record
	current int
	offset  int64
	opts    ScanOptions
	mem     memory.Allocator
}

func (r *inMemoryReader) NextBatch(ctx context.Context) (arrow.Record, error) {
	for r.current < len(r.records) {
		rec := r.records[r.current]
		if r.offset >= rec.NumRows() {
			rec.Release()
			r.records[r.current] = nil
			r.current++
			r.offset = 0
			continue
		}
		end := rec.NumRows()
		if r.opts.BatchSize > 0 && r.offset+r.opts.BatchSize < end {
			end = r.offset + r.opts.BatchSize
		}
		slice := rec.NewSlice(r.offset, end)
		r.offset = end
		out, err := r.apply(ctx, slice)
		slice.Release()
		if err != nil {
			return nil, err
		}
		if out.NumRows() == 0 && r.opts.Filter != nil {
			out.Release()
			continue
		}
		return out, nil
	}
	return nil, io.EOF
}

func (r *inMemoryReader) apply(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
	if r.opts.Filter != nil {
		filtered, err := r.opts.Filter.Filter(ctx, r.mem, rec)
		if err != nil {
			return nil, err
		}
		defer filtered.Release()
		rec = filtered
	}
	return common.ProjectRecord(r.name, rec, r.opts.Columns)
}

func (r *inMemoryReader) Close() error {
	for i := r.current; i < len(r.records); i++ {
		if r.records[i] != nil {
			r.records[i].Release()
			r.records[i] = nil
		}
	}
	r.current = len(r.records)
	return nil
}
