package expr

import (
	"context"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/squareup/pranascan/errors"
)

// accessor reads row i of a column as a Value.
type accessor func(i int) Value

type batch struct {
	columns map[string]accessor
}

type bound interface {
	kind() Kind
	eval(b *batch, row int) Value
}

type boundColumn struct {
	name string
	k    Kind
}

func (c *boundColumn) kind() Kind { return c.k }

func (c *boundColumn) eval(b *batch, row int) Value {
	return b.columns[c.name](row)
}

type boundLiteral struct {
	v Value
}

func (l *boundLiteral) kind() Kind { return l.v.Kind }

func (l *boundLiteral) eval(*batch, int) Value {
	return l.v
}

type boundComparison struct {
	op    CompareOp
	left  bound
	right bound
}

func (c *boundComparison) kind() Kind { return KindBool }

func (c *boundComparison) eval(b *batch, row int) Value {
	l := c.left.eval(b, row)
	if l.IsNull() {
		return Null
	}
	r := c.right.eval(b, row)
	if r.IsNull() {
		return Null
	}
	res := compare(l, r)
	switch c.op {
	case OpEqual:
		return BoolValue(res == 0)
	case OpNotEqual:
		return BoolValue(res != 0)
	case OpLess:
		return BoolValue(res < 0)
	case OpLessEqual:
		return BoolValue(res <= 0)
	case OpGreater:
		return BoolValue(res > 0)
	default:
		return BoolValue(res >= 0)
	}
}

type boundLogical struct {
	op   LogicalOp
	args []bound
}

func (l *boundLogical) kind() Kind { return KindBool }

// eval follows Kleene logic: a decisive operand wins over nulls.
func (l *boundLogical) eval(b *batch, row int) Value {
	decisive := l.op == LogicOR
	sawNull := false
	for _, arg := range l.args {
		v := arg.eval(b, row)
		if v.IsNull() {
			sawNull = true
			continue
		}
		if v.Bool == decisive {
			return BoolValue(decisive)
		}
	}
	if sawNull {
		return Null
	}
	return BoolValue(!decisive)
}

type boundNot struct {
	arg bound
}

func (n *boundNot) kind() Kind { return KindBool }

func (n *boundNot) eval(b *batch, row int) Value {
	v := n.arg.eval(b, row)
	if v.IsNull() {
		return Null
	}
	return BoolValue(!v.Bool)
}

type boundNullCheck struct {
	arg     bound
	negated bool
}

func (n *boundNullCheck) kind() Kind { return KindBool }

func (n *boundNullCheck) eval(b *batch, row int) Value {
	return BoolValue(n.arg.eval(b, row).IsNull() != n.negated)
}

type boundInList struct {
	arg     bound
	values  []Value
	negated bool
}

func (in *boundInList) kind() Kind { return KindBool }

func (in *boundInList) eval(b *batch, row int) Value {
	v := in.arg.eval(b, row)
	if v.IsNull() {
		return Null
	}
	sawNull := false
	for _, candidate := range in.values {
		if candidate.IsNull() {
			sawNull = true
			continue
		}
		if compare(v, candidate) == 0 {
			return BoolValue(!in.negated)
		}
	}
	if sawNull {
		return Null
	}
	return BoolValue(in.negated)
}

// Evaluate computes the predicate for every row of rec. The result has a null wherever the predicate is
// unknown. Columns are looked up by name so rec may carry extra columns or a different column order.
func (p *Predicate) Evaluate(mem memory.Allocator, rec arrow.Record) (*array.Boolean, error) {
	b := &batch{columns: make(map[string]accessor, len(p.columns))}
	for _, name := range p.columns {
		indices := rec.Schema().FieldIndices(name)
		if len(indices) != 1 {
			return nil, errors.NewPredicateEvaluationError("batch does not have a column " + name)
		}
		acc, err := accessorFor(rec.Column(indices[0]))
		if err != nil {
			return nil, err
		}
		b.columns[name] = acc
	}
	builder := array.NewBooleanBuilder(mem)
	defer builder.Release()
	rows := int(rec.NumRows())
	builder.Reserve(rows)
	for i := 0; i < rows; i++ {
		v := p.root.eval(b, i)
		if v.IsNull() {
			builder.AppendNull()
		} else {
			builder.Append(v.Bool)
		}
	}
	return builder.NewBooleanArray(), nil
}

// Filter returns a new record holding the rows of rec for which the predicate is true. Rows where it is
// false or null are dropped. The caller keeps ownership of rec and must release the result.
func (p *Predicate) Filter(ctx context.Context, mem memory.Allocator, rec arrow.Record) (arrow.Record, error) {
	mask, err := p.Evaluate(mem, rec)
	if err != nil {
		return nil, err
	}
	defer mask.Release()
	filtered, err := compute.FilterRecordBatch(compute.WithAllocator(ctx, mem), rec, mask, compute.DefaultFilterOptions())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return filtered, nil
}

func accessorFor(col arrow.Array) (accessor, error) {
	nullable := func(get accessor) accessor {
		return func(i int) Value {
			if col.IsNull(i) {
				return Null
			}
			return get(i)
		}
	}
	switch a := col.(type) {
	case *array.Boolean:
		return nullable(func(i int) Value { return BoolValue(a.Value(i)) }), nil
	case *array.Int8:
		return nullable(func(i int) Value { return IntValue(int64(a.Value(i))) }), nil
	case *array.Int16:
		return nullable(func(i int) Value { return IntValue(int64(a.Value(i))) }), nil
	case *array.Int32:
		return nullable(func(i int) Value { return IntValue(int64(a.Value(i))) }), nil
	case *array.Int64:
		return nullable(func(i int) Value { return IntValue(a.Value(i)) }), nil
	case *array.Uint8:
		return nullable(func(i int) Value { return IntValue(int64(a.Value(i))) }), nil
	case *array.Uint16:
		return nullable(func(i int) Value { return IntValue(int64(a.Value(i))) }), nil
	case *array.Uint32:
		return nullable(func(i int) Value { return IntValue(int64(a.Value(i))) }), nil
	case *array.Uint64:
		return nullable(func(i int) Value {
			v := a.Value(i)
			if v > math.MaxInt64 {
				return FloatValue(float64(v))
			}
			return IntValue(int64(v))
		}), nil
	case *array.Float32:
		return nullable(func(i int) Value { return FloatValue(float64(a.Value(i))) }), nil
	case *array.Float64:
		return nullable(func(i int) Value { return FloatValue(a.Value(i)) }), nil
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return nullable(func(i int) Value { return FloatValue(a.Value(i).ToFloat64(scale)) }), nil
	case *array.String:
		return nullable(func(i int) Value { return StringValue(a.Value(i)) }), nil
	case *array.Binary:
		return nullable(func(i int) Value { return BytesValue(a.Value(i)) }), nil
	case *array.Date32:
		return nullable(func(i int) Value { return DateValue(a.Value(i).ToTime()) }), nil
	case *array.Date64:
		return nullable(func(i int) Value { return DateValue(a.Value(i).ToTime()) }), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return nullable(func(i int) Value { return TimestampValue(a.Value(i).ToTime(unit)) }), nil
	case *array.Time32:
		mult := a.DataType().(*arrow.Time32Type).Unit.Multiplier()
		return nullable(func(i int) Value { return TimeValue(time.Duration(a.Value(i)) * mult) }), nil
	case *array.Time64:
		mult := a.DataType().(*arrow.Time64Type).Unit.Multiplier()
		return nullable(func(i int) Value { return TimeValue(time.Duration(a.Value(i)) * mult) }), nil
	case *array.Duration:
		mult := a.DataType().(*arrow.DurationType).Unit.Multiplier()
		return nullable(func(i int) Value { return DurationValue(time.Duration(a.Value(i)) * mult) }), nil
	default:
		return nil, errors.NewPredicateEvaluationError("cannot evaluate a predicate over a column of type " +
			col.DataType().String())
	}
}
