// Package format reads and writes the columnar file formats a file scan can target.
package format

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/filesys"
)

type Format int

const (
	Parquet Format = iota + 1
	IPC
)

func (f Format) String() string {
	switch f {
	case Parquet:
		return "parquet"
	case IPC:
		return "ipc"
	default:
		return "Format(" + strconv.Itoa(int(f)) + ")"
	}
}

// ParseFormat accepts the names printed by String, plus "arrow" and "feather" for IPC.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "parquet":
		return Parquet, nil
	case "ipc", "arrow", "feather":
		return IPC, nil
	default:
		return 0, errors.Errorf("unknown file format %q", s)
	}
}

// Read option keys.
const (
	OptBatchSize = "batch_size"
	OptParallel  = "parallel"
	OptRowGroups = "row_groups"
)

// ReadOptions are the arguments of one file read.
type ReadOptions struct {
	// Columns to return, in order. Nil returns every column.
	Columns []string
	// BatchSize is the preferred number of rows per batch.
	BatchSize int64
	// Extra holds format specific options, passed through from the scan invocation.
	Extra map[string]string
	Mem   memory.Allocator
}

// ReadSchema reads the schema from the file footer without decoding any data. The file is not closed.
func ReadSchema(ctx context.Context, f Format, source string, file filesys.File) (*arrow.Schema, error) {
	switch f {
	case Parquet:
		return readParquetSchema(ctx, source, file)
	case IPC:
		return readIPCSchema(source, file)
	default:
		return nil, errors.Errorf("unsupported format %s", f)
	}
}

// OpenBatches starts reading batches from file. The returned reader owns the file and closes it; if
// OpenBatches fails the file has already been closed.
func OpenBatches(ctx context.Context, f Format, source string, file filesys.File, opts ReadOptions) (common.BatchReader, error) {
	if opts.Mem == nil {
		opts.Mem = memory.DefaultAllocator
	}
	owned := &onceCloser{File: file}
	var reader common.BatchReader
	var err error
	switch f {
	case Parquet:
		reader, err = openParquet(ctx, source, owned, opts)
	case IPC:
		reader, err = openIPC(source, owned, opts)
	default:
		err = errors.Errorf("unsupported format %s", f)
	}
	if err != nil {
		common.InvokeCloser(owned)
		return nil, err
	}
	return reader, nil
}

// Write writes tbl to w in the given format.
func Write(ctx context.Context, f Format, w io.Writer, tbl arrow.Table, mem memory.Allocator) error {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	switch f {
	case Parquet:
		return writeParquet(ctx, w, tbl, mem)
	case IPC:
		return writeIPC(w, tbl, mem)
	default:
		return errors.Errorf("unsupported format %s", f)
	}
}

// onceCloser lets both a format library and our reader close the same file.
type onceCloser struct {
	filesys.File
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() {
		c.err = c.File.Close()
	})
	return c.err
}

func checkOptionKeys(source string, extra map[string]string, allowed ...string) error {
	for _, k := range common.SortedKeys(extra) {
		ok := false
		for _, a := range allowed {
			if k == a {
				ok = true
				break
			}
		}
		if !ok {
			return errors.NewInvalidScanOptionError(source, "unknown read option "+k)
		}
	}
	return nil
}

func batchSizeOption(source string, opts ReadOptions) (int64, error) {
	v, ok := opts.Extra[OptBatchSize]
	if !ok {
		return opts.BatchSize, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return 0, errors.NewInvalidScanOptionError(source, "batch_size must be a positive integer, got "+v)
	}
	return n, nil
}

// projectColumns checks the requested columns against the file schema.
func projectColumns(source string, schema *arrow.Schema, columns []string) error {
	for _, col := range columns {
		if len(schema.FieldIndices(col)) != 1 {
			return errors.NewUnknownColumnError(source, col)
		}
	}
	return nil
}
