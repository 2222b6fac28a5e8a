package common

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/squareup/pranascan/errors"
)

type Type int

const (
	TypeUnknown Type = iota
	TypeBoolean
	TypeTinyInt
	TypeSmallInt
	TypeInt
	TypeBigInt
	TypeUTinyInt
	TypeUSmallInt
	TypeUInt
	TypeUBigInt
	TypeFloat
	TypeDouble
	TypeDecimal
	TypeVarchar
	TypeBinary
	TypeDate
	TypeDateMillis
	TypeTimestamp
	TypeTime
	TypeDuration
)

var typeNames = map[Type]string{
	TypeUnknown:    "UNKNOWN",
	TypeBoolean:    "BOOLEAN",
	TypeTinyInt:    "TINYINT",
	TypeSmallInt:   "SMALLINT",
	TypeInt:        "INT",
	TypeBigInt:     "BIGINT",
	TypeUTinyInt:   "UTINYINT",
	TypeUSmallInt:  "USMALLINT",
	TypeUInt:       "UINT",
	TypeUBigInt:    "UBIGINT",
	TypeFloat:      "FLOAT",
	TypeDouble:     "DOUBLE",
	TypeDecimal:    "DECIMAL",
	TypeVarchar:    "VARCHAR",
	TypeBinary:     "BINARY",
	TypeDate:       "DATE",
	TypeDateMillis: "DATE_MILLIS",
	TypeTimestamp:  "TIMESTAMP",
	TypeTime:       "TIME",
	TypeDuration:   "DURATION",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// IsInteger is true for the signed and unsigned integer types.
func (t Type) IsInteger() bool {
	return t >= TypeTinyInt && t <= TypeUBigInt
}

var (
	BooleanColumnType    = ColumnType{Type: TypeBoolean}
	TinyIntColumnType    = ColumnType{Type: TypeTinyInt}
	SmallIntColumnType   = ColumnType{Type: TypeSmallInt}
	IntColumnType        = ColumnType{Type: TypeInt}
	BigIntColumnType     = ColumnType{Type: TypeBigInt}
	UTinyIntColumnType   = ColumnType{Type: TypeUTinyInt}
	USmallIntColumnType  = ColumnType{Type: TypeUSmallInt}
	UIntColumnType       = ColumnType{Type: TypeUInt}
	UBigIntColumnType    = ColumnType{Type: TypeUBigInt}
	FloatColumnType      = ColumnType{Type: TypeFloat}
	DoubleColumnType     = ColumnType{Type: TypeDouble}
	VarcharColumnType    = ColumnType{Type: TypeVarchar}
	BinaryColumnType     = ColumnType{Type: TypeBinary}
	DateColumnType       = ColumnType{Type: TypeDate}
	DateMillisColumnType = ColumnType{Type: TypeDateMillis}
	UnknownColumnType    = ColumnType{Type: TypeUnknown}
)

func NewDecimalColumnType(precision int, scale int) ColumnType {
	return ColumnType{Type: TypeDecimal, DecPrecision: precision, DecScale: scale}
}

func NewTimestampColumnType(unit arrow.TimeUnit, timeZone string) ColumnType {
	return ColumnType{Type: TypeTimestamp, Unit: unit, TimeZone: timeZone}
}

func NewTimeColumnType(unit arrow.TimeUnit) ColumnType {
	return ColumnType{Type: TypeTime, Unit: unit}
}

func NewDurationColumnType(unit arrow.TimeUnit) ColumnType {
	return ColumnType{Type: TypeDuration, Unit: unit}
}

// ColumnType is the semantic type of a column. DecPrecision and DecScale apply to TypeDecimal, Unit to
// TypeTimestamp, TypeTime and TypeDuration, and TimeZone to TypeTimestamp.
type ColumnType struct {
	Type         Type
	DecPrecision int
	DecScale     int
	Unit         arrow.TimeUnit
	TimeZone     string
}

func (c ColumnType) String() string {
	switch c.Type {
	case TypeDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", c.DecPrecision, c.DecScale)
	case TypeTimestamp:
		if c.TimeZone != "" {
			return fmt.Sprintf("TIMESTAMP(%s,%s)", c.Unit, c.TimeZone)
		}
		return fmt.Sprintf("TIMESTAMP(%s)", c.Unit)
	case TypeTime, TypeDuration:
		return fmt.Sprintf("%s(%s)", c.Type, c.Unit)
	default:
		return c.Type.String()
	}
}

type ColumnInfo struct {
	Name string
	ColumnType
}

// Schema is the ordered set of columns a scan produces. Column names are unique.
type Schema struct {
	Columns []ColumnInfo
}

func NewSchema(columns ...ColumnInfo) Schema {
	return Schema{Columns: columns}
}

func (s Schema) NumColumns() int {
	return len(s.Columns)
}

func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

func (s Schema) ColumnTypes() []ColumnType {
	types := make([]ColumnType, len(s.Columns))
	for i, col := range s.Columns {
		types[i] = col.ColumnType
	}
	return types
}

// Index returns the position of the named column or -1.
func (s Schema) Index(name string) int {
	for i, col := range s.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

func (s Schema) Column(name string) (ColumnInfo, bool) {
	i := s.Index(name)
	if i < 0 {
		return ColumnInfo{}, false
	}
	return s.Columns[i], true
}

// Project narrows the schema to the given columns, in the given order. A nil slice selects every column.
// Unknown or repeated column names are a SchemaMismatch.
func (s Schema) Project(source string, columns []string) (Schema, error) {
	if columns == nil {
		return s, nil
	}
	projected := make([]ColumnInfo, 0, len(columns))
	seen := make(map[string]struct{}, len(columns))
	var dups []string
	for _, name := range columns {
		if _, ok := seen[name]; ok {
			dups = append(dups, name)
			continue
		}
		seen[name] = struct{}{}
		col, ok := s.Column(name)
		if !ok {
			return Schema{}, errors.NewUnknownColumnError(source, name)
		}
		projected = append(projected, col)
	}
	if len(dups) > 0 {
		return Schema{}, errors.NewDuplicateColumnError(source, dups)
	}
	return Schema{Columns: projected}, nil
}

func (s Schema) Equal(other Schema) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, col := range s.Columns {
		if col != other.Columns[i] {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	sb := strings.Builder{}
	sb.WriteString("schema[")
	for i, col := range s.Columns {
		sb.WriteString(col.Name)
		sb.WriteString(":")
		sb.WriteString(col.ColumnType.String())
		if i != len(s.Columns)-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
