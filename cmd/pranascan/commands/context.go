package commands

import (
	"context"
	"encoding/base64"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/format"
	"github.com/squareup/pranascan/scan"
)

// Context is bound to every command's Run method.
type Context struct {
	Env *scan.Env
	Out io.Writer
}

type SourceFlags struct {
	URI           string            `arg:"" help:"File to scan: a path, file://, mem:// or s3://bucket/key"`
	Format        string            `help:"File format" enum:"parquet,ipc,arrow,feather" default:"parquet"`
	StorageOption map[string]string `help:"Storage option as key=value, e.g. endpoint or region for S3" short:"s"`
}

func (s *SourceFlags) register(ctx context.Context, cctx *Context) (*scan.Node, error) {
	f, err := format.ParseFormat(s.Format)
	if err != nil {
		return nil, err
	}
	return scan.NewRegistrar(cctx.Env).RegisterFileScan(ctx, s.URI, s.StorageOption, f)
}

type InvocationFlags struct {
	Columns    []string          `help:"Columns to return, in order" short:"c" sep:","`
	Where      string            `help:"Filter predicate, e.g. \"a > 10 AND b IS NOT NULL\"" short:"w"`
	Limit      int64             `help:"Maximum number of rows to return, negative for no limit" short:"n" default:"-1"`
	ReadOption map[string]string `help:"Format read option as key=value: batch_size, parallel or row_groups"`
}

func (i *InvocationFlags) invocation() scan.Invocation {
	inv := scan.Invocation{
		WithColumns: i.Columns,
		Predicate:   i.Where,
		ReadOptions: i.ReadOption,
	}
	if i.Limit >= 0 {
		inv.NRows = scan.Int64(i.Limit)
	}
	return inv
}

func encodeToken(token []byte) string {
	return base64.RawURLEncoding.EncodeToString(token)
}

// decodeToken reads a token printed by the token command. "-" reads it from stdin.
func decodeToken(s string) ([]byte, error) {
	if s == "-" {
		b, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		s = string(b)
	}
	token, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.NewClosureCorruptedError("token is not base64: " + err.Error())
	}
	return token, nil
}
