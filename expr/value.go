package expr

import (
	"fmt"
	"strconv"
	"time"
)

type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindDate
	KindTimestamp
	KindTime
	KindDuration
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "datetime"
	case KindTime:
		return "time"
	case KindDuration:
		return "duration"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// class groups kinds that can be compared with each other.
type class int

const (
	classNull class = iota
	classBool
	classNumeric
	classString
	classBytes
	classInstant
	classTimeOfDay
	classDuration
)

func (k Kind) class() class {
	switch k {
	case KindBool:
		return classBool
	case KindInt, KindFloat:
		return classNumeric
	case KindString:
		return classString
	case KindBytes:
		return classBytes
	case KindDate, KindTimestamp:
		return classInstant
	case KindTime:
		return classTimeOfDay
	case KindDuration:
		return classDuration
	default:
		return classNull
	}
}

// Value is a scalar in the filter language. Dates and datetimes are held in Time, times of day and
// durations in Dur, binary data in Str.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Time  time.Time
	Dur   time.Duration
}

var Null = Value{Kind: KindNull}

func BoolValue(b bool) Value              { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value              { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value          { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value          { return Value{Kind: KindString, Str: s} }
func BytesValue(b []byte) Value           { return Value{Kind: KindBytes, Str: string(b)} }
func DateValue(t time.Time) Value         { return Value{Kind: KindDate, Time: t} }
func TimestampValue(t time.Time) Value    { return Value{Kind: KindTimestamp, Time: t} }
func TimeValue(d time.Duration) Value     { return Value{Kind: KindTime, Dur: d} }
func DurationValue(d time.Duration) Value { return Value{Kind: KindDuration, Dur: d} }

func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

func (v Value) asFloat() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

// compare orders two non-null values of the same class.
func compare(a, b Value) int {
	switch a.Kind.class() {
	case classBool:
		switch {
		case a.Bool == b.Bool:
			return 0
		case !a.Bool:
			return -1
		default:
			return 1
		}
	case classNumeric:
		if a.Kind == KindInt && b.Kind == KindInt {
			return compareInt64(a.Int, b.Int)
		}
		af, bf := a.asFloat(), b.asFloat()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case classString, classBytes:
		return compareStrings(a.Str, b.Str)
	case classInstant:
		switch {
		case a.Time.Before(b.Time):
			return -1
		case a.Time.After(b.Time):
			return 1
		default:
			return 0
		}
	case classTimeOfDay, classDuration:
		return compareInt64(int64(a.Dur), int64(b.Dur))
	default:
		panic(fmt.Sprintf("cannot compare values of kind %s", a.Kind))
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString, KindBytes:
		return strconv.Quote(v.Str)
	case KindDate:
		return fmt.Sprintf("date(%d, %d, %d)", v.Time.Year(), int(v.Time.Month()), v.Time.Day())
	case KindTimestamp:
		return fmt.Sprintf("to_datetime(%q)", v.Time.Format(time.RFC3339Nano))
	case KindTime:
		return fmt.Sprintf("to_time(%q)", formatTimeOfDay(v.Dur))
	case KindDuration:
		return fmt.Sprintf("to_duration(%q)", v.Dur.String())
	default:
		return "?"
	}
}

func formatTimeOfDay(d time.Duration) string {
	t := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC).Add(d)
	return t.Format("15:04:05.999999999")
}
