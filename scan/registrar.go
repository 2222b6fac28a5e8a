package scan

import (
	"context"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/format"
)

// Registrar turns source descriptions into scan nodes for the plan builder.
type Registrar struct {
	env *Env
}

func NewRegistrar(env *Env) *Registrar {
	return &Registrar{env: env}
}

// RegisterDatasetScan registers a scan over a dataset in the catalog.
func (r *Registrar) RegisterDatasetScan(ctx context.Context, datasetName string, allowPredicatePushdown bool) (*Node, error) {
	return r.Register(ctx, &DatasetScan{DatasetName: datasetName, AllowPredicatePushdown: allowPredicatePushdown})
}

// RegisterFileScan registers a scan over a Parquet or IPC file.
func (r *Registrar) RegisterFileScan(ctx context.Context, uri string, storageOptions map[string]string,
	f format.Format) (*Node, error) {
	return r.Register(ctx, &FileScan{URI: uri, StorageOptions: common.CopyStringMap(storageOptions), Format: f})
}

// Register probes the source and, only if that succeeds, builds the node and its token.
func (r *Registrar) Register(ctx context.Context, desc Descriptor) (*Node, error) {
	schema, err := desc.Probe(ctx, r.env)
	if err != nil {
		return nil, r.env.handleError(uuid.Nil, desc.SourceName(), "register", err)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, r.env.handleError(uuid.Nil, desc.SourceName(), "register", errors.WithStack(err))
	}
	node := &Node{
		ID:         id,
		Schema:     schema,
		Token:      EncodeToken(desc, schema, id),
		Descriptor: desc,
	}
	r.env.metrics.registrations.Inc()
	log.WithFields(log.Fields{"node_id": id, "source": desc.SourceName()}).
		Debugf("registered %s scan with %s", desc.Kind(), schema)
	return node, nil
}

// Executor runs scan tokens. Executions are independent of each other and of the registering process, apart
// from needing the same datasets in the catalog.
type Executor struct {
	env *Env
}

func NewExecutor(env *Env) *Executor {
	return &Executor{env: env}
}

// Execute decodes token and materializes the scan it describes with the invocation's pushdowns. The caller
// owns the returned table.
func (e *Executor) Execute(ctx context.Context, token []byte, inv Invocation) (arrow.Table, error) {
	tok, err := DecodeToken(token)
	if err != nil {
		return nil, e.env.handleError(uuid.Nil, "", "execute", err)
	}
	source := tok.Descriptor.SourceName()
	entry := log.WithFields(log.Fields{"node_id": tok.NodeID, "source": source})
	entry.Debugf("executing with columns=%v predicate=%q n_rows=%s", inv.WithColumns, inv.Predicate, formatLimit(inv.NRows))
	tbl, err := tok.Descriptor.Materialize(ctx, e.env, tok.Schema, inv)
	if err != nil {
		return nil, e.env.handleError(tok.NodeID, source, "execute", err)
	}
	e.env.metrics.materializations.Inc()
	entry.Debugf("materialized %d rows", tbl.NumRows())
	return tbl, nil
}

// ExecuteNode executes a node registered in this process.
func (e *Executor) ExecuteNode(ctx context.Context, node *Node, inv Invocation) (arrow.Table, error) {
	return e.Execute(ctx, node.Token, inv)
}

func formatLimit(n *int64) string {
	if n == nil {
		return "none"
	}
	return strconv.FormatInt(*n, 10)
}

// handleError logs a failed registration or execution and returns the error to surface. Scan errors are
// attributed to their source, cancellation is passed through and anything else becomes an internal error.
func (env *Env) handleError(nodeID uuid.UUID, source string, op string, err error) error {
	env.metrics.scanErrors.Inc()
	se, ok := errors.AsScanError(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.WithFields(log.Fields{"node_id": nodeID, "source": source}).Debugf("%s cancelled: %v", op, err)
			return err
		}
		return common.LogInternalError(err)
	}
	if source != "" {
		se = se.WithSource(source)
	}
	entry := log.WithFields(log.Fields{"node_id": nodeID, "source": se.Source, "code": se.Code.String()})
	if se.CallerDefect() {
		entry.WithField("caller_defect", true).Errorf("%s failed: %s", op, se.Msg)
	} else {
		entry.Warnf("%s failed: %s", op, se.Msg)
	}
	return se
}
