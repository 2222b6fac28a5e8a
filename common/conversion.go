package common

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/squareup/pranascan/errors"
)

// ColumnTypeFromArrow maps an Arrow data type onto the semantic column types. ok is false for types that
// cannot be represented.
func ColumnTypeFromArrow(dt arrow.DataType) (ct ColumnType, ok bool) {
	switch dt.ID() {
	case arrow.BOOL:
		return BooleanColumnType, true
	case arrow.INT8:
		return TinyIntColumnType, true
	case arrow.INT16:
		return SmallIntColumnType, true
	case arrow.INT32:
		return IntColumnType, true
	case arrow.INT64:
		return BigIntColumnType, true
	case arrow.UINT8:
		return UTinyIntColumnType, true
	case arrow.UINT16:
		return USmallIntColumnType, true
	case arrow.UINT32:
		return UIntColumnType, true
	case arrow.UINT64:
		return UBigIntColumnType, true
	case arrow.FLOAT32:
		return FloatColumnType, true
	case arrow.FLOAT64:
		return DoubleColumnType, true
	case arrow.DECIMAL128:
		dec := dt.(*arrow.Decimal128Type)
		return NewDecimalColumnType(int(dec.Precision), int(dec.Scale)), true
	case arrow.STRING:
		return VarcharColumnType, true
	case arrow.BINARY:
		return BinaryColumnType, true
	case arrow.DATE32:
		return DateColumnType, true
	case arrow.DATE64:
		return DateMillisColumnType, true
	case arrow.TIMESTAMP:
		ts := dt.(*arrow.TimestampType)
		return NewTimestampColumnType(ts.Unit, ts.TimeZone), true
	case arrow.TIME32:
		return NewTimeColumnType(dt.(*arrow.Time32Type).Unit), true
	case arrow.TIME64:
		return NewTimeColumnType(dt.(*arrow.Time64Type).Unit), true
	case arrow.DURATION:
		return NewDurationColumnType(dt.(*arrow.DurationType).Unit), true
	default:
		return UnknownColumnType, false
	}
}

// ToArrowType is the inverse of ColumnTypeFromArrow.
func ToArrowType(ct ColumnType) arrow.DataType {
	switch ct.Type {
	case TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	case TypeTinyInt:
		return arrow.PrimitiveTypes.Int8
	case TypeSmallInt:
		return arrow.PrimitiveTypes.Int16
	case TypeInt:
		return arrow.PrimitiveTypes.Int32
	case TypeBigInt:
		return arrow.PrimitiveTypes.Int64
	case TypeUTinyInt:
		return arrow.PrimitiveTypes.Uint8
	case TypeUSmallInt:
		return arrow.PrimitiveTypes.Uint16
	case TypeUInt:
		return arrow.PrimitiveTypes.Uint32
	case TypeUBigInt:
		return arrow.PrimitiveTypes.Uint64
	case TypeFloat:
		return arrow.PrimitiveTypes.Float32
	case TypeDouble:
		return arrow.PrimitiveTypes.Float64
	case TypeDecimal:
		return &arrow.Decimal128Type{Precision: int32(ct.DecPrecision), Scale: int32(ct.DecScale)}
	case TypeVarchar:
		return arrow.BinaryTypes.String
	case TypeBinary:
		return arrow.BinaryTypes.Binary
	case TypeDate:
		return arrow.FixedWidthTypes.Date32
	case TypeDateMillis:
		return arrow.FixedWidthTypes.Date64
	case TypeTimestamp:
		return &arrow.TimestampType{Unit: ct.Unit, TimeZone: ct.TimeZone}
	case TypeTime:
		if ct.Unit == arrow.Second || ct.Unit == arrow.Millisecond {
			return &arrow.Time32Type{Unit: ct.Unit}
		}
		return &arrow.Time64Type{Unit: ct.Unit}
	case TypeDuration:
		return &arrow.DurationType{Unit: ct.Unit}
	default:
		panic("cannot convert unknown column type to arrow")
	}
}

// SchemaFromArrow converts a probed Arrow schema. Types without a semantic equivalent, and duplicate
// column names, are SchemaUnsupported.
func SchemaFromArrow(source string, as *arrow.Schema) (Schema, error) {
	fields := as.Fields()
	cols := make([]ColumnInfo, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		ct, ok := ColumnTypeFromArrow(field.Type)
		if !ok {
			return Schema{}, errors.NewSchemaUnsupportedError(source, field.Name, field.Type.String())
		}
		if _, dup := seen[field.Name]; dup {
			return Schema{}, errors.NewScanErrorf(errors.SchemaUnsupported, source,
				"Source %s has more than one column named %s", source, field.Name)
		}
		seen[field.Name] = struct{}{}
		cols = append(cols, ColumnInfo{Name: field.Name, ColumnType: ct})
	}
	return Schema{Columns: cols}, nil
}

// ToArrow returns the Arrow schema of a table materialized with this schema. All fields are nullable.
func (s Schema) ToArrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.Columns))
	for i, col := range s.Columns {
		fields[i] = arrow.Field{Name: col.Name, Type: ToArrowType(col.ColumnType), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
