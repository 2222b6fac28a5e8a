package format

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/filesys"
)

func readParquetSchema(ctx context.Context, source string, f filesys.File) (*arrow.Schema, error) {
	rdr, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(source, err)
	}
	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(source, err)
	}
	schema, err := fr.Schema()
	if err != nil {
		return nil, errors.NewSourceUnavailableError(source, err)
	}
	log.Debugf("read parquet footer of %s: %d row groups, %d rows", source, rdr.NumRowGroups(), rdr.NumRows())
	return schema, nil
}

type parquetBatchReader struct {
	source  string
	file    *onceCloser
	rdr     *file.Reader
	rr      pqarrow.RecordReader
	columns []string
}

func openParquet(ctx context.Context, source string, f *onceCloser, opts ReadOptions) (common.BatchReader, error) {
	if err := checkOptionKeys(source, opts.Extra, OptBatchSize, OptParallel, OptRowGroups); err != nil {
		return nil, err
	}
	batchSize, err := batchSizeOption(source, opts)
	if err != nil {
		return nil, err
	}
	props := pqarrow.ArrowReadProperties{BatchSize: batchSize}
	if v, ok := opts.Extra[OptParallel]; ok {
		props.Parallel, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.NewInvalidScanOptionError(source, "parallel must be a boolean, got "+v)
		}
	}
	rdr, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(source, err)
	}
	rowGroups, err := parseRowGroups(source, opts.Extra, rdr.NumRowGroups())
	if err != nil {
		return nil, err
	}
	fr, err := pqarrow.NewFileReader(rdr, props, opts.Mem)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(source, err)
	}
	schema, err := fr.Schema()
	if err != nil {
		return nil, errors.NewSourceUnavailableError(source, err)
	}
	if err := projectColumns(source, schema, opts.Columns); err != nil {
		return nil, err
	}
	var leaves []int
	if opts.Columns != nil {
		leaves = make([]int, 0, len(opts.Columns))
		for _, col := range opts.Columns {
			idx := rdr.MetaData().Schema.ColumnIndexByName(col)
			if idx < 0 {
				return nil, errors.NewUnknownColumnError(source, col)
			}
			leaves = append(leaves, idx)
		}
	}
	rr, err := fr.GetRecordReader(ctx, leaves, rowGroups)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(source, err)
	}
	return &parquetBatchReader{
		source:  source,
		file:    f,
		rdr:     rdr,
		rr:      rr,
		columns: opts.Columns,
	}, nil
}

func parseRowGroups(source string, extra map[string]string, numRowGroups int) ([]int, error) {
	v, ok := extra[OptRowGroups]
	if !ok {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	groups := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n >= numRowGroups {
			return nil, errors.NewInvalidScanOptionError(source, "row_groups must be a list of row group indices less than "+
				strconv.Itoa(numRowGroups)+", got "+v)
		}
		groups = append(groups, n)
	}
	return groups, nil
}

func (p *parquetBatchReader) NextBatch(ctx context.Context) (arrow.Record, error) {
	if p.rr == nil {
		return nil, io.EOF
	}
	if !p.rr.Next() {
		if err := p.rr.Err(); err != nil && err != io.EOF {
			return nil, errors.NewSourceUnavailableError(p.source, err)
		}
		return nil, io.EOF
	}
	// The record reader owns the record and reuses it on the next call to Next.
	rec := p.rr.Record()
	return common.ProjectRecord(p.source, rec, p.columns)
}

func (p *parquetBatchReader) Close() error {
	if p.rr != nil {
		p.rr.Release()
		p.rr = nil
	}
	if err := p.rdr.Close(); err != nil {
		common.InvokeCloser(p.file)
		return errors.WithStack(err)
	}
	return errors.WithStack(p.file.Close())
}

func writeParquet(ctx context.Context, w io.Writer, tbl arrow.Table, mem memory.Allocator) error {
	props := parquet.NewWriterProperties(parquet.WithAllocator(mem))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema(), pqarrow.WithAllocator(mem))
	chunkSize := tbl.NumRows()
	if chunkSize < 1 {
		chunkSize = 1
	}
	if err := pqarrow.WriteTable(tbl, w, chunkSize, props, arrowProps); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// WriteParquetRowGroups writes tbl as one row group per rowsPerGroup rows. Used to build multi row group
// fixtures.
func WriteParquetRowGroups(w io.Writer, tbl arrow.Table, rowsPerGroup int64, mem memory.Allocator) error {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	props := parquet.NewWriterProperties(parquet.WithAllocator(mem), parquet.WithMaxRowGroupLength(rowsPerGroup))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema(), pqarrow.WithAllocator(mem))
	fw, err := pqarrow.NewFileWriter(tbl.Schema(), w, props, arrowProps)
	if err != nil {
		return errors.WithStack(err)
	}
	tr := array.NewTableReader(tbl, rowsPerGroup)
	defer tr.Release()
	for tr.Next() {
		if err := fw.Write(tr.Record()); err != nil {
			_ = fw.Close()
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(fw.Close())
}
