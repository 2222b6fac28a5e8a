package expr

import (
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/errors"
)

// Predicate is an expression checked against a schema and ready to evaluate against batches of that
// schema, or any projection of it that keeps the referenced columns.
type Predicate struct {
	expr    Expr
	root    bound
	columns []string
}

func (p *Predicate) Expr() Expr {
	return p.expr
}

// Columns returns the columns the predicate reads.
func (p *Predicate) Columns() []string {
	return p.columns
}

func (p *Predicate) String() string {
	return p.expr.String()
}

// Compile parses and binds a predicate in one step.
func Compile(text string, schema common.Schema) (*Predicate, error) {
	e, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Bind(e, schema)
}

// Bind resolves the columns of e against schema and checks that every comparison is between comparable
// kinds and that logical operators only see booleans.
func Bind(e Expr, schema common.Schema) (*Predicate, error) {
	root, err := bindExpr(e, schema)
	if err != nil {
		return nil, err
	}
	if k := root.kind(); k != KindBool && k != KindNull {
		return nil, errors.NewPredicateEvaluationError("predicate " + e.String() + " is not boolean, it is " + k.String())
	}
	return &Predicate{expr: e, root: root, columns: Columns(e)}, nil
}

// KindForColumnType returns the kind a column's values take in predicates.
func KindForColumnType(ct common.ColumnType) (Kind, bool) {
	switch {
	case ct.Type == common.TypeBoolean:
		return KindBool, true
	case ct.Type.IsInteger():
		return KindInt, true
	case ct.Type == common.TypeFloat, ct.Type == common.TypeDouble, ct.Type == common.TypeDecimal:
		return KindFloat, true
	case ct.Type == common.TypeVarchar:
		return KindString, true
	case ct.Type == common.TypeBinary:
		return KindBytes, true
	case ct.Type == common.TypeDate, ct.Type == common.TypeDateMillis:
		return KindDate, true
	case ct.Type == common.TypeTimestamp:
		return KindTimestamp, true
	case ct.Type == common.TypeTime:
		return KindTime, true
	case ct.Type == common.TypeDuration:
		return KindDuration, true
	default:
		return KindNull, false
	}
}

func comparableKinds(a, b Kind) bool {
	if a == KindNull || b == KindNull {
		return true
	}
	ca, cb := a.class(), b.class()
	if ca == cb {
		return true
	}
	return (ca == classString && cb == classBytes) || (ca == classBytes && cb == classString)
}

func bindExpr(e Expr, schema common.Schema) (bound, error) {
	switch n := e.(type) {
	case *ColumnRef:
		col, ok := schema.Column(n.Name)
		if !ok {
			return nil, errors.NewPredicateEvaluationError("unknown column " + n.Name)
		}
		k, ok := KindForColumnType(col.ColumnType)
		if !ok {
			return nil, errors.NewPredicateEvaluationError("column " + n.Name + " of type " + col.ColumnType.String() +
				" cannot be used in a predicate")
		}
		return &boundColumn{name: n.Name, k: k}, nil
	case *Literal:
		return &boundLiteral{v: n.Value}, nil
	case *Comparison:
		left, err := bindExpr(n.Left, schema)
		if err != nil {
			return nil, err
		}
		right, err := bindExpr(n.Right, schema)
		if err != nil {
			return nil, err
		}
		if !comparableKinds(left.kind(), right.kind()) {
			return nil, errors.NewPredicateEvaluationError("cannot compare " + left.kind().String() + " with " +
				right.kind().String() + " in " + n.String())
		}
		return &boundComparison{op: n.Op, left: left, right: right}, nil
	case *Logical:
		args := make([]bound, 0, len(n.Args))
		for _, arg := range n.Args {
			b, err := bindBoolean(arg, schema, n.Op.String())
			if err != nil {
				return nil, err
			}
			args = append(args, b)
		}
		return &boundLogical{op: n.Op, args: args}, nil
	case *Not:
		arg, err := bindBoolean(n.Arg, schema, "NOT")
		if err != nil {
			return nil, err
		}
		return &boundNot{arg: arg}, nil
	case *NullCheck:
		arg, err := bindExpr(n.Arg, schema)
		if err != nil {
			return nil, err
		}
		return &boundNullCheck{arg: arg, negated: n.Negated}, nil
	case *InList:
		arg, err := bindExpr(n.Arg, schema)
		if err != nil {
			return nil, err
		}
		for _, v := range n.Values {
			if !comparableKinds(arg.kind(), v.Kind) {
				return nil, errors.NewPredicateEvaluationError("cannot compare " + arg.kind().String() + " with " +
					v.Kind.String() + " in " + n.String())
			}
		}
		return &boundInList{arg: arg, values: n.Values, negated: n.Negated}, nil
	default:
		return nil, errors.Errorf("unexpected expression %T", e)
	}
}

func bindBoolean(e Expr, schema common.Schema, op string) (bound, error) {
	b, err := bindExpr(e, schema)
	if err != nil {
		return nil, err
	}
	if k := b.kind(); k != KindBool && k != KindNull {
		return nil, errors.NewPredicateEvaluationError(op + " needs boolean operands, got " + k.String() + " in " +
			e.String())
	}
	return b, nil
}
