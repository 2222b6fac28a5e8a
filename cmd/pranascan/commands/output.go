package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/format"
)

type OutputFlags struct {
	Out          string            `help:"Write the result to this location instead of printing it" short:"o"`
	OutFormat    string            `help:"Format of the written result" enum:"parquet,ipc,arrow,feather" default:"parquet"`
	OutOption    map[string]string `help:"Storage option for the output location as key=value"`
	MaxPrintRows int64             `help:"Maximum number of rows to print" default:"100"`
}

func (o *OutputFlags) emit(ctx context.Context, cctx *Context, tbl arrow.Table) error {
	if o.Out == "" {
		return printTable(cctx.Out, tbl, o.MaxPrintRows)
	}
	f, err := format.ParseFormat(o.OutFormat)
	if err != nil {
		return err
	}
	w, err := cctx.Env.Opener.Create(ctx, o.Out, o.OutOption)
	if err != nil {
		return err
	}
	if err := format.Write(ctx, f, w, tbl, cctx.Env.Mem); err != nil {
		if aerr := w.Abort(err); aerr != nil {
			log.Warnf("failed to discard partial output %s: %v", o.Out, aerr)
		}
		return err
	}
	if err := w.Close(); err != nil {
		return errors.NewSourceUnavailableError(o.Out, err)
	}
	_, err = fmt.Fprintf(cctx.Out, "wrote %d rows to %s\n", tbl.NumRows(), o.Out)
	return errors.WithStack(err)
}

// printTable writes tbl as aligned text, followed by the row count.
func printTable(out io.Writer, tbl arrow.Table, maxRows int64) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	names := make([]string, tbl.NumCols())
	for i := range names {
		names[i] = tbl.Schema().Field(i).Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))
	fmt.Fprintln(w, strings.Repeat("-\t", len(names)))

	tr := array.NewTableReader(tbl, -1)
	defer tr.Release()
	var printed int64
	values := make([]string, len(names))
	for printed < maxRows && tr.Next() {
		rec := tr.Record()
		for row := 0; row < int(rec.NumRows()) && printed < maxRows; row++ {
			for col := range values {
				values[col] = rec.Column(col).ValueStr(row)
			}
			fmt.Fprintln(w, strings.Join(values, "\t"))
			printed++
		}
	}
	if err := w.Flush(); err != nil {
		return errors.WithStack(err)
	}
	if printed < tbl.NumRows() {
		_, err := fmt.Fprintf(out, "(%d rows, %d shown)\n", tbl.NumRows(), printed)
		return errors.WithStack(err)
	}
	_, err := fmt.Fprintf(out, "(%d rows)\n", tbl.NumRows())
	return errors.WithStack(err)
}
