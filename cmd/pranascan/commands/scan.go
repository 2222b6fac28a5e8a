package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/scan"
)

type SchemaCommand struct {
	SourceFlags `embed:""`
}

func (c *SchemaCommand) Run(cctx *Context) error {
	node, err := c.register(context.Background(), cctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cctx.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "column\ttype")
	fmt.Fprintln(w, "-\t-")
	for _, col := range node.Schema.Columns {
		fmt.Fprintf(w, "%s\t%s\n", col.Name, col.ColumnType)
	}
	return errors.WithStack(w.Flush())
}

type ScanCommand struct {
	SourceFlags     `embed:""`
	InvocationFlags `embed:""`
	OutputFlags     `embed:""`
}

func (c *ScanCommand) Run(cctx *Context) error {
	ctx := context.Background()
	node, err := c.register(ctx, cctx)
	if err != nil {
		return err
	}
	tbl, err := scan.NewExecutor(cctx.Env).ExecuteNode(ctx, node, c.invocation())
	if err != nil {
		return err
	}
	defer tbl.Release()
	return c.emit(ctx, cctx, tbl)
}

type TokenCommand struct {
	SourceFlags `embed:""`
}

func (c *TokenCommand) Run(cctx *Context) error {
	node, err := c.register(context.Background(), cctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cctx.Out, encodeToken(node.Token))
	return errors.WithStack(err)
}

type ExecCommand struct {
	Token           string `arg:"" help:"Token printed by the token command, or - to read it from stdin"`
	InvocationFlags `embed:""`
	OutputFlags     `embed:""`
}

func (c *ExecCommand) Run(cctx *Context) error {
	ctx := context.Background()
	token, err := decodeToken(c.Token)
	if err != nil {
		return err
	}
	tbl, err := scan.NewExecutor(cctx.Env).Execute(ctx, token, c.invocation())
	if err != nil {
		return err
	}
	defer tbl.Release()
	return c.emit(ctx, cctx, tbl)
}
