package format

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/filesys"
)

func readIPCSchema(source string, f filesys.File) (*arrow.Schema, error) {
	fr, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(source, err)
	}
	defer func() {
		_ = fr.Close()
	}()
	return fr.Schema(), nil
}

// ipcBatchReader walks the record batches of an Arrow IPC file, re-slicing them to the batch size.
type ipcBatchReader struct {
	source    string
	file      *onceCloser
	fr        *ipc.FileReader
	columns   []string
	batchSize int64
	next      int
	current   arrow.Record
	offset    int64
}

func openIPC(source string, f *onceCloser, opts ReadOptions) (common.BatchReader, error) {
	if err := checkOptionKeys(source, opts.Extra, OptBatchSize); err != nil {
		return nil, err
	}
	batchSize, err := batchSizeOption(source, opts)
	if err != nil {
		return nil, err
	}
	fr, err := ipc.NewFileReader(f, ipc.WithAllocator(opts.Mem))
	if err != nil {
		return nil, errors.NewSourceUnavailableError(source, err)
	}
	if err := projectColumns(source, fr.Schema(), opts.Columns); err != nil {
		_ = fr.Close()
		return nil, err
	}
	return &ipcBatchReader{
		source:    source,
		file:      f,
		fr:        fr,
		columns:   opts.Columns,
		batchSize: batchSize,
	}, nil
}

func (r *ipcBatchReader) NextBatch(ctx context.Context) (arrow.Record, error) {
	for {
		if r.current == nil {
			if r.next >= r.fr.NumRecords() {
				return nil, io.EOF
			}
			rec, err := r.fr.RecordAt(r.next)
			if err != nil {
				return nil, errors.NewSourceUnavailableError(r.source, err)
			}
			r.next++
			r.current = rec
			r.offset = 0
		}
		if r.offset >= r.current.NumRows() {
			r.current.Release()
			r.current = nil
			continue
		}
		end := r.current.NumRows()
		if r.batchSize > 0 && r.offset+r.batchSize < end {
			end = r.offset + r.batchSize
		}
		slice := r.current.NewSlice(r.offset, end)
		r.offset = end
		out, err := common.ProjectRecord(r.source, slice, r.columns)
		slice.Release()
		return out, err
	}
}

func (r *ipcBatchReader) Close() error {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
	if err := r.fr.Close(); err != nil {
		common.InvokeCloser(r.file)
		return errors.WithStack(err)
	}
	return errors.WithStack(r.file.Close())
}

func writeIPC(w io.Writer, tbl arrow.Table, mem memory.Allocator) error {
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(tbl.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return errors.WithStack(err)
	}
	tr := array.NewTableReader(tbl, -1)
	defer tr.Release()
	for tr.Next() {
		if err := fw.Write(tr.Record()); err != nil {
			_ = fw.Close()
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(fw.Close())
}
