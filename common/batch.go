package common

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/squareup/pranascan/errors"
)

// BatchReader yields the record batches of one scan, one at a time.
type BatchReader interface {
	// NextBatch returns the next batch, or io.EOF once the scan is exhausted. The caller owns the returned
	// record and must release it.
	NextBatch(ctx context.Context) (arrow.Record, error)

	// Close releases the resources held by the reader. It is safe to call more than once.
	Close() error
}

// ReleaseRecords releases every record in recs.
func ReleaseRecords(recs []arrow.Record) {
	for _, rec := range recs {
		if rec != nil {
			rec.Release()
		}
	}
}

// ProjectRecord returns a record holding the named columns of rec in the given order. A nil slice keeps
// every column. The result shares column data with rec and must be released by the caller.
func ProjectRecord(source string, rec arrow.Record, columns []string) (arrow.Record, error) {
	if columns == nil {
		rec.Retain()
		return rec, nil
	}
	fields := make([]arrow.Field, len(columns))
	cols := make([]arrow.Array, len(columns))
	for i, name := range columns {
		indices := rec.Schema().FieldIndices(name)
		if len(indices) != 1 {
			return nil, errors.NewUnknownColumnError(source, name)
		}
		fields[i] = rec.Schema().Field(indices[0])
		cols[i] = rec.Column(indices[0])
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

// SliceRecord returns rows [0, n) of rec, or rec itself (retained) when it has no more than n rows.
func SliceRecord(rec arrow.Record, n int64) arrow.Record {
	if rec.NumRows() <= n {
		rec.Retain()
		return rec
	}
	return rec.NewSlice(0, n)
}
