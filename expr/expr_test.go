package expr

import (
	"testing"
	"time"

	"github.com/alecthomas/repr"
	"github.com/squareup/pranascan/errors"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected Expr
	}{
		{"Comparison", "a > 1", &Comparison{Op: OpGreater, Left: &ColumnRef{Name: "a"}, Right: &Literal{Value: IntValue(1)}}},
		{"DoubleEquals", "a == 'x'", &Comparison{Op: OpEqual, Left: &ColumnRef{Name: "a"}, Right: &Literal{Value: StringValue("x")}}},
		{"NotEqual", "a <> 2.5", &Comparison{Op: OpNotEqual, Left: &ColumnRef{Name: "a"}, Right: &Literal{Value: FloatValue(2.5)}}},
		{"QuotedColumn", "`my col` <= -3", &Comparison{Op: OpLessEqual, Left: &ColumnRef{Name: "my col"},
			Right: &Literal{Value: IntValue(-3)}}},
		{"ColFunction", `col("b") = TRUE`, &Comparison{Op: OpEqual, Left: &ColumnRef{Name: "b"}, Right: &Literal{Value: BoolValue(true)}}},
		{"AndOr", "a = 1 and b = 2 or c", &Logical{Op: LogicOR, Args: []Expr{
			&Logical{Op: LogicAND, Args: []Expr{
				&Comparison{Op: OpEqual, Left: &ColumnRef{Name: "a"}, Right: &Literal{Value: IntValue(1)}},
				&Comparison{Op: OpEqual, Left: &ColumnRef{Name: "b"}, Right: &Literal{Value: IntValue(2)}},
			}},
			&ColumnRef{Name: "c"},
		}}},
		{"Parens", "a = 1 AND (b OR NOT c)", &Logical{Op: LogicAND, Args: []Expr{
			&Comparison{Op: OpEqual, Left: &ColumnRef{Name: "a"}, Right: &Literal{Value: IntValue(1)}},
			&Logical{Op: LogicOR, Args: []Expr{&ColumnRef{Name: "b"}, &Not{Arg: &ColumnRef{Name: "c"}}}},
		}}},
		{"IsNull", "a IS NULL", &NullCheck{Arg: &ColumnRef{Name: "a"}}},
		{"IsNotNull", "a is not null", &NullCheck{Arg: &ColumnRef{Name: "a"}, Negated: true}},
		{"In", "a IN (1, 2, NULL)", &InList{Arg: &ColumnRef{Name: "a"}, Values: []Value{IntValue(1), IntValue(2), Null}}},
		{"NotIn", `a NOT IN ("x")`, &InList{Arg: &ColumnRef{Name: "a"}, Values: []Value{StringValue("x")}, Negated: true}},
		{"Date", "d >= date(2021, 3, 4)", &Comparison{Op: OpGreaterEqual, Left: &ColumnRef{Name: "d"},
			Right: &Literal{Value: DateValue(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC))}}},
		{"Duration", "d < to_duration('90m')", &Comparison{Op: OpLess, Left: &ColumnRef{Name: "d"},
			Right: &Literal{Value: DurationValue(90 * time.Minute)}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := Parse(test.text)
			require.NoError(t, err)
			require.Equal(t,
				repr.String(test.expected, repr.IgnoreGoStringer(), repr.Indent("  ")),
				repr.String(actual, repr.IgnoreGoStringer(), repr.Indent("  ")))
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"Empty", "  "},
		{"Dangling", "a ="},
		{"UnknownFunction", "a = system('rm -rf /')"},
		{"ColArity", "col('a', 'b') = 1"},
		{"BadDate", "d = date(2021, 2, 30)"},
		{"BadDuration", "d = to_duration('forever')"},
		{"Garbage", "a = 1 ;"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.text)
			require.Error(t, err)
			require.True(t, errors.HasCode(err, errors.PredicateEvaluationError), err.Error())
		})
	}
}

func TestColumns(t *testing.T) {
	e, err := Parse("b > 1 AND (a IS NULL OR b IN (3)) AND NOT c")
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "c"}, Columns(e))
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		text     string
		expected Value
	}{
		{"datetime(2020, 1, 2)", TimestampValue(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC))},
		{"datetime(2020, 1, 2, 3, 4, 5, 6)", TimestampValue(time.Date(2020, 1, 2, 3, 4, 5, 6000, time.UTC))},
		{"to_datetime('2020-01-02T03:04:05+01:00')", TimestampValue(time.Date(2020, 1, 2, 2, 4, 5, 0, time.UTC))},
		{"to_date('1999-12-31')", DateValue(time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC))},
		{"time(13, 30, 0)", TimeValue(13*time.Hour + 30*time.Minute)},
		{"to_time('00:00:01.5')", TimeValue(1500 * time.Millisecond)},
		{"duration(1, 30)", DurationValue(24*time.Hour + 30*time.Second)},
		{"duration('1s')", DurationValue(time.Second)},
	}
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			e, err := Parse("x = " + test.text)
			require.NoError(t, err)
			lit, ok := e.(*Comparison).Right.(*Literal)
			require.True(t, ok)
			require.Equal(t, test.expected.Kind, lit.Value.Kind)
			require.Equal(t, 0, compare(test.expected, lit.Value))
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, text := range []string{
		"a > 1 AND b IS NOT NULL",
		"NOT (c IN (1, 2)) OR d = 'x'",
		"t < to_datetime('2020-01-02T03:04:05Z') AND d = date(2020, 1, 2)",
		"tm = time(1, 2, 3) OR du > to_duration('1h0m0s')",
	} {
		e, err := Parse(text)
		require.NoError(t, err)
		again, err := Parse(e.String())
		require.NoError(t, err, e.String())
		require.Equal(t, e.String(), again.String())
	}
}
