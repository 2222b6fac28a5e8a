package format

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/filesys"
	"github.com/stretchr/testify/require"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

func testTable(mem memory.Allocator, rows int) arrow.Table {
	bld := array.NewRecordBuilder(mem, testSchema)
	defer bld.Release()
	for i := 0; i < rows; i++ {
		bld.Field(0).(*array.Int64Builder).Append(int64(i))
		bld.Field(1).(*array.StringBuilder).Append(fmt.Sprintf("name-%d", i))
		bld.Field(2).(*array.Float64Builder).Append(float64(i) / 2)
	}
	rec := bld.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(testSchema, []arrow.Record{rec})
}

func writeFixture(t *testing.T, f Format, uri string, tbl arrow.Table) {
	t.Helper()
	opener := filesys.NewOpener(conf.NewTestConfig())
	w, err := opener.Create(context.Background(), uri, nil)
	require.NoError(t, err)
	require.NoError(t, Write(context.Background(), f, w, tbl, nil))
	require.NoError(t, w.Close())
}

func open(t *testing.T, uri string) filesys.File {
	t.Helper()
	file, err := filesys.NewOpener(conf.NewTestConfig()).Open(context.Background(), uri, nil)
	require.NoError(t, err)
	return file
}

func readAll(t *testing.T, reader io.Closer, next func() (arrow.Record, error)) ([]int64, []int64, [][]string) {
	t.Helper()
	var sizes []int64
	var ids []int64
	var names [][]string
	for {
		rec, err := next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, rec.NumRows())
		var cols []string
		for i := 0; i < int(rec.NumCols()); i++ {
			cols = append(cols, rec.ColumnName(i))
		}
		names = append(names, cols)
		if idx := rec.Schema().FieldIndices("id"); len(idx) == 1 {
			ids = append(ids, rec.Column(idx[0]).(*array.Int64).Int64Values()...)
		}
		rec.Release()
	}
	require.NoError(t, reader.Close())
	return sizes, ids, names
}

func TestReadSchema(t *testing.T) {
	for _, f := range []Format{Parquet, IPC} {
		t.Run(f.String(), func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)
			tbl := testTable(mem, 3)
			defer tbl.Release()
			uri := "mem://format_test/schema." + f.String()
			writeFixture(t, f, uri, tbl)

			file := open(t, uri)
			defer func() {
				require.NoError(t, file.Close())
			}()
			schema, err := ReadSchema(context.Background(), f, uri, file)
			require.NoError(t, err)
			require.Equal(t, []string{"id", "name", "score"}, fieldNames(schema))
			require.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int64, schema.Field(0).Type))
			require.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, schema.Field(1).Type))
		})
	}
}

func fieldNames(schema *arrow.Schema) []string {
	names := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		names[i] = field.Name
	}
	return names
}

func TestOpenBatchesProjectionAndBatchSize(t *testing.T) {
	for _, f := range []Format{Parquet, IPC} {
		t.Run(f.String(), func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)
			tbl := testTable(mem, 10)
			defer tbl.Release()
			uri := "mem://format_test/batches." + f.String()
			writeFixture(t, f, uri, tbl)

			reader, err := OpenBatches(context.Background(), f, uri, open(t, uri), ReadOptions{
				Columns:   []string{"score", "id"},
				BatchSize: 4,
				Mem:       mem,
			})
			require.NoError(t, err)
			sizes, ids, names := readAll(t, reader, func() (arrow.Record, error) {
				return reader.NextBatch(context.Background())
			})
			require.Equal(t, []int64{4, 4, 2}, sizes)
			require.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, ids)
			for _, cols := range names {
				require.Equal(t, []string{"score", "id"}, cols)
			}
		})
	}
}

func TestBatchSizeReadOption(t *testing.T) {
	for _, f := range []Format{Parquet, IPC} {
		t.Run(f.String(), func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)
			tbl := testTable(mem, 5)
			defer tbl.Release()
			uri := "mem://format_test/batch_option." + f.String()
			writeFixture(t, f, uri, tbl)

			reader, err := OpenBatches(context.Background(), f, uri, open(t, uri), ReadOptions{
				BatchSize: 100,
				Extra:     map[string]string{OptBatchSize: "2"},
				Mem:       mem,
			})
			require.NoError(t, err)
			sizes, _, _ := readAll(t, reader, func() (arrow.Record, error) {
				return reader.NextBatch(context.Background())
			})
			require.Equal(t, []int64{2, 2, 1}, sizes)
		})
	}
}

func TestParquetRowGroups(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	tbl := testTable(mem, 6)
	defer tbl.Release()
	uri := "mem://format_test/row_groups.parquet"
	opener := filesys.NewOpener(conf.NewTestConfig())
	w, err := opener.Create(context.Background(), uri, nil)
	require.NoError(t, err)
	require.NoError(t, WriteParquetRowGroups(w, tbl, 2, nil))
	require.NoError(t, w.Close())

	reader, err := OpenBatches(context.Background(), Parquet, uri, open(t, uri), ReadOptions{
		Extra: map[string]string{OptRowGroups: "2,0", OptParallel: "true"},
		Mem:   mem,
	})
	require.NoError(t, err)
	_, ids, _ := readAll(t, reader, func() (arrow.Record, error) {
		return reader.NextBatch(context.Background())
	})
	require.ElementsMatch(t, []int64{0, 1, 4, 5}, ids)
}

func TestOpenBatchesErrors(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	tbl := testTable(mem, 3)
	defer tbl.Release()
	writeFixture(t, Parquet, "mem://format_test/errors.parquet", tbl)
	writeFixture(t, IPC, "mem://format_test/errors.ipc", tbl)

	tests := []struct {
		name string
		f    Format
		uri  string
		opts ReadOptions
		code errors.ErrorCode
	}{
		{"UnknownOption", Parquet, "mem://format_test/errors.parquet",
			ReadOptions{Extra: map[string]string{"compression": "zstd"}}, errors.InvalidScanOption},
		{"BadBatchSize", Parquet, "mem://format_test/errors.parquet",
			ReadOptions{Extra: map[string]string{OptBatchSize: "-1"}}, errors.InvalidScanOption},
		{"BadRowGroup", Parquet, "mem://format_test/errors.parquet",
			ReadOptions{Extra: map[string]string{OptRowGroups: "7"}}, errors.InvalidScanOption},
		{"RowGroupsOnIPC", IPC, "mem://format_test/errors.ipc",
			ReadOptions{Extra: map[string]string{OptRowGroups: "0"}}, errors.InvalidScanOption},
		{"UnknownColumnParquet", Parquet, "mem://format_test/errors.parquet",
			ReadOptions{Columns: []string{"nope"}}, errors.SchemaMismatch},
		{"UnknownColumnIPC", IPC, "mem://format_test/errors.ipc",
			ReadOptions{Columns: []string{"nope"}}, errors.SchemaMismatch},
		{"WrongFormat", IPC, "mem://format_test/errors.parquet", ReadOptions{}, errors.SourceUnavailable},
		{"WrongFormatParquet", Parquet, "mem://format_test/errors.ipc", ReadOptions{}, errors.SourceUnavailable},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.opts.Mem = mem
			_, err := OpenBatches(context.Background(), test.f, test.uri, open(t, test.uri), test.opts)
			require.Error(t, err)
			require.True(t, errors.HasCode(err, test.code), err.Error())
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Parquet")
	require.NoError(t, err)
	require.Equal(t, Parquet, f)
	f, err = ParseFormat("feather")
	require.NoError(t, err)
	require.Equal(t, IPC, f)
	_, err = ParseFormat("csv")
	require.Error(t, err)
}
