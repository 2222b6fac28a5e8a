// Package scan plans and executes deferred scans of external columnar sources. Registering a source probes
// its schema and produces a scan node carrying a self-contained token; executing the token later, possibly
// in another process, reads the source with the projection, predicate and row limit pushed down.
package scan

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/format"
)

type Kind int

const (
	KindDataset Kind = iota + 1
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindDataset:
		return "dataset"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Descriptor identifies a source and knows how to read it. It holds only plain data so that it can be
// carried in a token.
type Descriptor interface {
	Kind() Kind
	// SourceName identifies the source in errors and logs.
	SourceName() string
	// Probe determines the schema of the source without reading any rows.
	Probe(ctx context.Context, env *Env) (common.Schema, error)
	// Materialize reads the source with the invocation's pushdowns applied. schema is the schema probed at
	// registration time.
	Materialize(ctx context.Context, env *Env, schema common.Schema, inv Invocation) (arrow.Table, error)
}

// DatasetScan reads a dataset registered in the executing process' catalog.
type DatasetScan struct {
	DatasetName string
	// AllowPredicatePushdown passes the predicate to the dataset's own scan. When false the predicate is
	// evaluated on each batch after it is read.
	AllowPredicatePushdown bool
}

// FileScan reads a Parquet or Arrow IPC file.
type FileScan struct {
	URI            string
	StorageOptions map[string]string
	Format         format.Format
}

var (
	_ Descriptor = &DatasetScan{}
	_ Descriptor = &FileScan{}
)

func (d *DatasetScan) Kind() Kind {
	return KindDataset
}

func (d *DatasetScan) SourceName() string {
	return "dataset:" + d.DatasetName
}

func (f *FileScan) Kind() Kind {
	return KindFile
}

func (f *FileScan) SourceName() string {
	return f.URI
}

// Node is a registered scan: the schema the plan builder sees and the token the executor runs.
type Node struct {
	ID         uuid.UUID
	Schema     common.Schema
	Token      []byte
	Descriptor Descriptor
}

// Invocation carries the pushdowns chosen by the optimizer for one execution of a scan node.
type Invocation struct {
	// WithColumns is the projection. Nil means every column.
	WithColumns []string
	// Predicate is the filter in the restricted predicate language. Empty means no filter.
	Predicate string
	// NRows is the row limit. Nil means no limit.
	NRows *int64
	// ReadOptions are passed through to the file format reader. Only file scans accept them.
	ReadOptions map[string]string
}

// Int64 returns a pointer to n, for Invocation.NRows.
func Int64(n int64) *int64 {
	return &n
}
