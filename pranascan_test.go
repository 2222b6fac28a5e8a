package pranascan

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/errors"
	"github.com/stretchr/testify/require"
)

func TestBridge(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int32},
		{Name: "b", Type: arrow.BinaryTypes.String},
	}, nil)
	bld := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	for i := 0; i < 1000; i++ {
		bld.Field(0).(*array.Int32Builder).Append(int32(i))
		bld.Field(1).(*array.StringBuilder).Append("x")
	}
	rec := bld.NewRecord()
	bld.Release()
	ds, err := NewInMemory("t", schema, rec)
	rec.Release()
	require.NoError(t, err)
	defer ds.Release()

	catalog := NewCatalog()
	require.NoError(t, catalog.Register(ds))
	bridge, err := New(conf.NewTestConfig(), catalog, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	node, err := bridge.RegisterDatasetScan(ctx, "t", true)
	require.NoError(t, err)
	tbl, err := bridge.ExecuteNode(ctx, node, Invocation{NRows: NRows(10)})
	require.NoError(t, err)
	require.Equal(t, int64(10), tbl.NumRows())
	require.Equal(t, int64(2), tbl.NumCols())
	tbl.Release()

	_, err = bridge.Execute(ctx, node.Token, Invocation{WithColumns: []string{"z"}})
	require.True(t, HasCode(err, errors.SchemaMismatch))

	_, err = New(&conf.Config{}, nil, nil, nil)
	require.True(t, HasCode(err, errors.InvalidConfiguration))
}
