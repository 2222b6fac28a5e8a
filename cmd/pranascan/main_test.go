package main

import (
	"bytes"
	"context"
	"io/fs"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/squareup/pranascan/conf"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/filesys"
	"github.com/squareup/pranascan/format"
	"github.com/stretchr/testify/require"
)

var cliSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "city", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

func writeFixture(t *testing.T, uri string) {
	t.Helper()
	bld := array.NewRecordBuilder(memory.DefaultAllocator, cliSchema)
	defer bld.Release()
	for i, city := range []string{"london", "paris", "tokyo", "lima", "oslo"} {
		bld.Field(0).(*array.Int64Builder).Append(int64(i))
		bld.Field(1).(*array.StringBuilder).Append(city)
	}
	rec := bld.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(cliSchema, []arrow.Record{rec})
	defer tbl.Release()
	w, err := filesys.NewOpener(conf.NewTestConfig()).Create(context.Background(), uri, nil)
	require.NoError(t, err)
	require.NoError(t, format.Write(context.Background(), format.Parquet, w, tbl, nil))
	require.NoError(t, w.Close())
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(append(args, "--log-level", "warn"), &out)
	return out.String(), err
}

func TestSchemaCommand(t *testing.T) {
	uri := "mem:///cli-test/schema.parquet"
	writeFixture(t, uri)
	out, err := runCommand(t, "schema", uri)
	require.NoError(t, err)
	require.Contains(t, out, "id      BIGINT")
	require.Contains(t, out, "city    VARCHAR")
}

func TestScanCommand(t *testing.T) {
	uri := "mem:///cli-test/scan.parquet"
	writeFixture(t, uri)
	out, err := runCommand(t, "scan", uri, "--columns", "city,id", "--where", "id >= 1 AND city <> 'lima'", "--limit", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, []string{
		"city   id",
		"-      -",
		"paris  1",
		"tokyo  2",
		"(2 rows)",
	}, trimLines(lines))

	out, err = runCommand(t, "scan", uri, "--max-print-rows", "1")
	require.NoError(t, err)
	require.Contains(t, out, "(5 rows, 1 shown)")

	_, err = runCommand(t, "scan", uri, "--columns", "country")
	require.True(t, errors.HasCode(err, errors.SchemaMismatch), "got %v", err)
}

func TestScanToFile(t *testing.T) {
	uri := "mem:///cli-test/source.parquet"
	writeFixture(t, uri)
	out, err := runCommand(t, "scan", uri, "--where", "id < 3", "--out", "mem:///cli-test/out.arrow", "--out-format", "ipc")
	require.NoError(t, err)
	require.Contains(t, out, "wrote 3 rows to mem:///cli-test/out.arrow")

	out, err = runCommand(t, "scan", "mem:///cli-test/out.arrow", "--format", "ipc", "--columns", "city")
	require.NoError(t, err)
	require.Contains(t, out, "london")
	require.Contains(t, out, "tokyo")
	require.NotContains(t, out, "lima")
}

func TestTokenAndExec(t *testing.T) {
	uri := "mem:///cli-test/token.parquet"
	writeFixture(t, uri)
	out, err := runCommand(t, "token", uri)
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	out, err = runCommand(t, "exec", token, "--where", "city = 'oslo'")
	require.NoError(t, err)
	require.Contains(t, out, "oslo")
	require.Contains(t, out, "(1 rows)")

	_, err = runCommand(t, "exec", "bm90IGEgdG9rZW4")
	require.True(t, errors.HasCode(err, errors.ClosureCorrupted), "got %v", err)
	_, err = runCommand(t, "exec", "***")
	require.True(t, errors.HasCode(err, errors.ClosureCorrupted), "got %v", err)
}

func TestConfigFiles(t *testing.T) {
	dir := t.TempDir()
	configs := map[string]string{
		"scan.hcl": `
batch-size = 128
max-batch-size = 1024
s3-region = "eu-west-2"
`,
		"scan.json": `
{
  // rows per batch
  "batch_size": 128,
  "max_batch_size": 1024,
  /* where buckets live */
  "s3_region": "eu-west-2"
}
`,
	}
	for name, content := range configs {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, ioutil.WriteFile(path, []byte(content), fs.ModePerm))
			cfg := arguments{}
			parser, err := newParser(&cfg)
			require.NoError(t, err)
			_, err = parser.Parse([]string{"--config", path, "schema", "mem:///cli-test/any.parquet"})
			require.NoError(t, err)
			require.Equal(t, int64(128), cfg.Scan.BatchSize)
			require.Equal(t, int64(1024), cfg.Scan.MaxBatchSize)
			require.Equal(t, "eu-west-2", cfg.Scan.S3Region)
			require.NoError(t, cfg.Scan.Validate())
		})
	}
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := runCommand(t, "--batch-size", "0", "schema", "mem:///cli-test/any.parquet")
	require.True(t, errors.HasCode(err, errors.InvalidConfiguration), "got %v", err)
}

func trimLines(lines []string) []string {
	res := make([]string, len(lines))
	for i, l := range lines {
		res[i] = strings.TrimRight(l, " ")
	}
	return res
}
