package scan

import (
	"context"
	"testing"

	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/format"
	"github.com/squareup/pranascan/s3test"
	"github.com/stretchr/testify/require"
)

func TestS3FileScan(t *testing.T) {
	if testing.Short() {
		t.Skip("-short: skipped")
	}
	container := s3test.RequireMinio(t, "scan-test")
	f := newFixture(t)
	defer f.close(t)
	ctx := context.Background()
	uri := "s3://scan-test/numbers/part-0.parquet"

	tbl := f.numbersTable(t)
	w, err := f.env.Opener.Create(ctx, uri, container.StorageOptions())
	require.NoError(t, err)
	require.NoError(t, format.Write(ctx, format.Parquet, w, tbl, f.mem))
	require.NoError(t, w.Close())
	tbl.Release()

	node, err := f.reg.RegisterFileScan(ctx, uri, container.StorageOptions(), format.Parquet)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, node.Schema.ColumnNames())

	// The token carries the storage options, so a fresh executor can run it.
	other := newFixture(t)
	defer other.close(t)
	res, err := other.exec.Execute(ctx, node.Token, Invocation{
		WithColumns: []string{"a"},
		Predicate:   "a IN (10, 11, 12) OR a = 999",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"10", "11", "12", "999"}, columnValues(t, res, "a"))
	res.Release()

	_, err = f.reg.RegisterFileScan(ctx, "s3://scan-test/numbers/missing.parquet", container.StorageOptions(), format.Parquet)
	require.True(t, errors.HasCode(err, errors.SourceUnavailable), "got %v", err)
}
