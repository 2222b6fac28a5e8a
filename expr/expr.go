package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/errors"
)

type CompareOp int

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

var compareOpNames = []string{"=", "!=", "<", "<=", ">", ">="}

func (op CompareOp) String() string {
	return compareOpNames[op]
}

type LogicalOp int

const (
	LogicAND LogicalOp = iota
	LogicOR
)

func (op LogicalOp) String() string {
	if op == LogicAND {
		return "AND"
	}
	return "OR"
}

// Expr is a node of a parsed predicate.
type Expr interface {
	String() string
	node()
}

type ColumnRef struct {
	Name string
}

type Literal struct {
	Value Value
}

type Comparison struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

type Logical struct {
	Op   LogicalOp
	Args []Expr
}

type Not struct {
	Arg Expr
}

type NullCheck struct {
	Arg     Expr
	Negated bool
}

type InList struct {
	Arg     Expr
	Values  []Value
	Negated bool
}

func (*ColumnRef) node()  {}
func (*Literal) node()    {}
func (*Comparison) node() {}
func (*Logical) node()    {}
func (*Not) node()        {}
func (*NullCheck) node()  {}
func (*InList) node()     {}

func (c *ColumnRef) String() string {
	return "`" + c.Name + "`"
}

func (l *Literal) String() string {
	return l.Value.String()
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", operandString(c.Left), c.Op, operandString(c.Right))
}

func operandString(e Expr) string {
	switch e.(type) {
	case *ColumnRef, *Literal:
		return e.String()
	default:
		return "(" + e.String() + ")"
	}
}

func (l *Logical) String() string {
	parts := make([]string, len(l.Args))
	for i, arg := range l.Args {
		parts[i] = "(" + arg.String() + ")"
	}
	return strings.Join(parts, " "+l.Op.String()+" ")
}

func (n *Not) String() string {
	return "NOT (" + n.Arg.String() + ")"
}

func (n *NullCheck) String() string {
	if n.Negated {
		return operandString(n.Arg) + " IS NOT NULL"
	}
	return operandString(n.Arg) + " IS NULL"
}

func (in *InList) String() string {
	vals := make([]string, len(in.Values))
	for i, v := range in.Values {
		vals[i] = v.String()
	}
	op := " IN ("
	if in.Negated {
		op = " NOT IN ("
	}
	return operandString(in.Arg) + op + strings.Join(vals, ", ") + ")"
}

// Parse parses a textual predicate. Syntax errors and calls outside the permitted helper set are a
// PredicateEvaluationError.
func Parse(text string) (Expr, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewPredicateEvaluationError("empty predicate")
	}
	ast := &predicateAST{}
	if err := predicateParser.ParseString("", text, ast); err != nil {
		return nil, errors.NewPredicateEvaluationError(err.Error())
	}
	e, err := convertOr(ast.Or)
	if err != nil {
		return nil, err
	}
	log.Tracef("parsed predicate %q as %s", text, e)
	return e, nil
}

func convertOr(or *orAST) (Expr, error) {
	args := make([]Expr, 0, len(or.And))
	for _, and := range or.And {
		e, err := convertAnd(and)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return &Logical{Op: LogicOR, Args: args}, nil
}

func convertAnd(and *andAST) (Expr, error) {
	args := make([]Expr, 0, len(and.Not))
	for _, not := range and.Not {
		e, err := convertNot(not)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return &Logical{Op: LogicAND, Args: args}, nil
}

func convertNot(not *notAST) (Expr, error) {
	if not.Not != nil {
		arg, err := convertNot(not.Not)
		if err != nil {
			return nil, err
		}
		return &Not{Arg: arg}, nil
	}
	return convertCmp(not.Cmp)
}

func convertCmp(cmp *cmpAST) (Expr, error) {
	left, err := convertOperand(cmp.Left)
	if err != nil {
		return nil, err
	}
	switch {
	case cmp.Right != nil:
		right, err := convertOperand(cmp.Right)
		if err != nil {
			return nil, err
		}
		op, err := compareOpFor(cmp)
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: op, Left: left, Right: right}, nil
	case cmp.Null != nil:
		return &NullCheck{Arg: left, Negated: cmp.Null.Not}, nil
	case cmp.In != nil:
		vals := make([]Value, 0, len(cmp.In.Values))
		for _, lit := range cmp.In.Values {
			v, err := convertLiteral(lit)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return &InList{Arg: left, Values: vals, Negated: cmp.In.Not}, nil
	default:
		return left, nil
	}
}

func compareOpFor(cmp *cmpAST) (CompareOp, error) {
	switch cmp.Op {
	case "=", "==":
		return OpEqual, nil
	case "!=", "<>":
		return OpNotEqual, nil
	case "<":
		return OpLess, nil
	case "<=":
		return OpLessEqual, nil
	case ">":
		return OpGreater, nil
	case ">=":
		return OpGreaterEqual, nil
	default:
		return 0, errors.NewPredicateEvaluationError(participle.Errorf(cmp.Pos, "unknown operator %q", cmp.Op).Error())
	}
}

func convertOperand(op *operandAST) (Expr, error) {
	switch {
	case op.Literal != nil:
		v, err := convertLiteral(op.Literal)
		if err != nil {
			return nil, err
		}
		return &Literal{Value: v}, nil
	case op.Call != nil:
		return convertCall(op.Call)
	case op.Column != nil:
		return &ColumnRef{Name: unquoteIdent(*op.Column)}, nil
	case op.Sub != nil:
		return convertOr(op.Sub)
	default:
		return nil, errors.NewPredicateEvaluationError("empty operand")
	}
}

func convertCall(call *callAST) (Expr, error) {
	args := make([]Value, 0, len(call.Args))
	for _, lit := range call.Args {
		v, err := convertLiteral(lit)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	name := strings.ToLower(call.Name)
	if name == "col" {
		if len(args) != 1 || args[0].Kind != KindString {
			return nil, errors.NewPredicateEvaluationError(participle.Errorf(call.Pos, "col() takes a single column name").Error())
		}
		return &ColumnRef{Name: args[0].Str}, nil
	}
	fn, ok := helpers[name]
	if !ok {
		return nil, errors.NewPredicateEvaluationError(participle.Errorf(call.Pos, "unknown function %s", call.Name).Error())
	}
	v, err := fn(args)
	if err != nil {
		return nil, errors.NewPredicateEvaluationError(participle.Errorf(call.Pos, "%s: %v", name, err).Error())
	}
	return &Literal{Value: v}, nil
}

func convertLiteral(lit *literalAST) (Value, error) {
	switch {
	case lit.Number != nil:
		return parseNumber(lit, *lit.Number)
	case lit.String != nil:
		s := *lit.String
		return StringValue(s[1 : len(s)-1]), nil
	case lit.True:
		return BoolValue(true), nil
	case lit.False:
		return BoolValue(false), nil
	default:
		return Null, nil
	}
}

func parseNumber(lit *literalAST, text string) (Value, error) {
	if !strings.ContainsAny(text, ".eE") {
		i, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return IntValue(i), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) {
		return Null, errors.NewPredicateEvaluationError(participle.Errorf(lit.Pos, "invalid number %s", text).Error())
	}
	return FloatValue(f), nil
}

func unquoteIdent(ident string) string {
	if len(ident) >= 2 && strings.HasPrefix(ident, "`") && strings.HasSuffix(ident, "`") {
		return ident[1 : len(ident)-1]
	}
	return ident
}

// Columns returns the names of the columns referenced by e, in order of first appearance.
func Columns(e Expr) []string {
	var names []string
	seen := map[string]struct{}{}
	var walk func(e Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *ColumnRef:
			if _, ok := seen[n.Name]; !ok {
				seen[n.Name] = struct{}{}
				names = append(names, n.Name)
			}
		case *Comparison:
			walk(n.Left)
			walk(n.Right)
		case *Logical:
			for _, arg := range n.Args {
				walk(arg)
			}
		case *Not:
			walk(n.Arg)
		case *NullCheck:
			walk(n.Arg)
		case *InList:
			walk(n.Arg)
		}
	}
	walk(e)
	return names
}
