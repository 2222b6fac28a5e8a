package scan

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/errors"
	"github.com/squareup/pranascan/format"
	"github.com/twmb/murmur3"
	"google.golang.org/protobuf/encoding/protowire"
)

// A token is framed as
//
//	magic "PSCN" | version uint16 | body length uint32 | body | murmur3-32 of body uint32
//
// with little endian integers. The body is protobuf wire format.
const (
	tokenMagic   = "PSCN"
	tokenVersion = uint16(1)
	headerLen    = len(tokenMagic) + 2 + 4
	trailerLen   = 4
)

// Body field numbers.
const (
	fieldKind    protowire.Number = 1
	fieldNodeID  protowire.Number = 2
	fieldColumn  protowire.Number = 3
	fieldDataset protowire.Number = 4
	fieldFile    protowire.Number = 5
)

const (
	columnName      protowire.Number = 1
	columnType      protowire.Number = 2
	columnPrecision protowire.Number = 3
	columnScale     protowire.Number = 4
	columnUnit      protowire.Number = 5
	columnTimeZone  protowire.Number = 6
)

const (
	datasetName     protowire.Number = 1
	datasetPushdown protowire.Number = 2
)

const (
	fileURI           protowire.Number = 1
	fileFormat        protowire.Number = 2
	fileStorageOption protowire.Number = 3

	optionKey   protowire.Number = 1
	optionValue protowire.Number = 2
)

// Token is the decoded content of a scan token.
type Token struct {
	NodeID     uuid.UUID
	Schema     common.Schema
	Descriptor Descriptor
}

// EncodeToken serializes everything needed to execute a scan. It does no I/O.
func EncodeToken(desc Descriptor, schema common.Schema, nodeID uuid.UUID) []byte {
	var body []byte
	body = protowire.AppendTag(body, fieldKind, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(desc.Kind()))
	body = protowire.AppendTag(body, fieldNodeID, protowire.BytesType)
	body = protowire.AppendBytes(body, nodeID[:])
	for _, col := range schema.Columns {
		body = protowire.AppendTag(body, fieldColumn, protowire.BytesType)
		body = protowire.AppendBytes(body, encodeColumn(col))
	}
	switch d := desc.(type) {
	case *DatasetScan:
		var msg []byte
		msg = appendString(msg, datasetName, d.DatasetName)
		msg = protowire.AppendTag(msg, datasetPushdown, protowire.VarintType)
		msg = protowire.AppendVarint(msg, protowire.EncodeBool(d.AllowPredicatePushdown))
		body = protowire.AppendTag(body, fieldDataset, protowire.BytesType)
		body = protowire.AppendBytes(body, msg)
	case *FileScan:
		var msg []byte
		msg = appendString(msg, fileURI, d.URI)
		msg = protowire.AppendTag(msg, fileFormat, protowire.VarintType)
		msg = protowire.AppendVarint(msg, uint64(d.Format))
		// Sorted so that equal descriptors give equal tokens.
		for _, k := range common.SortedKeys(d.StorageOptions) {
			var opt []byte
			opt = appendString(opt, optionKey, k)
			opt = appendString(opt, optionValue, d.StorageOptions[k])
			msg = protowire.AppendTag(msg, fileStorageOption, protowire.BytesType)
			msg = protowire.AppendBytes(msg, opt)
		}
		body = protowire.AppendTag(body, fieldFile, protowire.BytesType)
		body = protowire.AppendBytes(body, msg)
	default:
		panic("unexpected descriptor type")
	}

	buf := make([]byte, 0, headerLen+len(body)+trailerLen)
	buf = append(buf, tokenMagic...)
	buf = common.AppendUint16ToBufferLE(buf, tokenVersion)
	buf = common.AppendUint32ToBufferLE(buf, uint32(len(body)))
	buf = append(buf, body...)
	return common.AppendUint32ToBufferLE(buf, murmur3.Sum32(body))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func encodeColumn(col common.ColumnInfo) []byte {
	var b []byte
	b = appendString(b, columnName, col.Name)
	b = protowire.AppendTag(b, columnType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(col.Type))
	switch col.Type {
	case common.TypeDecimal:
		b = protowire.AppendTag(b, columnPrecision, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(col.DecPrecision))
		b = protowire.AppendTag(b, columnScale, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(col.DecScale)))
	case common.TypeTimestamp, common.TypeTime, common.TypeDuration:
		b = protowire.AppendTag(b, columnUnit, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(col.Unit))
		if col.TimeZone != "" {
			b = appendString(b, columnTimeZone, col.TimeZone)
		}
	}
	return b
}

// DecodeToken checks the framing and checksum of a token and decodes it. Every failure is ClosureCorrupted.
func DecodeToken(buf []byte) (*Token, error) {
	if len(buf) < headerLen+trailerLen {
		return nil, errors.NewClosureCorruptedError("token too short")
	}
	if string(buf[:len(tokenMagic)]) != tokenMagic {
		return nil, errors.NewClosureCorruptedError("not a scan token")
	}
	version, off, _ := common.ReadUint16FromBufferLE(buf, len(tokenMagic))
	if version != tokenVersion {
		return nil, errors.NewClosureCorruptedError(fmt.Sprintf("unsupported token version %d", version))
	}
	bodyLen, off, _ := common.ReadUint32FromBufferLE(buf, off)
	if uint64(bodyLen) != uint64(len(buf)-headerLen-trailerLen) {
		return nil, errors.NewClosureCorruptedError("token length does not match its header")
	}
	body := buf[off : off+int(bodyLen)]
	checksum, _, _ := common.ReadUint32FromBufferLE(buf, off+int(bodyLen))
	if checksum != murmur3.Sum32(body) {
		return nil, errors.NewClosureCorruptedError("token checksum mismatch")
	}
	tok, err := decodeBody(body)
	if err != nil {
		return nil, errors.NewClosureCorruptedError(err.Error())
	}
	return tok, nil
}

type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// walkFields calls visit for each field of a message. visit returns the number of bytes it consumed, or
// zero to have the field skipped.
func walkFields(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		b = b[m:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte, v *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, errors.New("field has wrong wire type")
	}
	x, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*v = x
	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte, v *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, errors.New("field has wrong wire type")
	}
	x, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*v = x
	return n, nil
}

func decodeBody(body []byte) (*Token, error) {
	var kind uint64
	var nodeID, datasetMsg, fileMsg []byte
	var columnMsgs [][]byte
	err := walkFields(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldKind:
			return consumeVarint(typ, b, &kind)
		case fieldNodeID:
			return consumeBytes(typ, b, &nodeID)
		case fieldColumn:
			var msg []byte
			n, err := consumeBytes(typ, b, &msg)
			columnMsgs = append(columnMsgs, msg)
			return n, err
		case fieldDataset:
			return consumeBytes(typ, b, &datasetMsg)
		case fieldFile:
			return consumeBytes(typ, b, &fileMsg)
		default:
			return 0, nil
		}
	})
	if err != nil {
		return nil, err
	}
	tok := &Token{}
	if len(nodeID) != len(tok.NodeID) {
		return nil, errors.New("missing node id")
	}
	copy(tok.NodeID[:], nodeID)

	cols := make([]common.ColumnInfo, 0, len(columnMsgs))
	seen := make(map[string]struct{}, len(columnMsgs))
	for _, msg := range columnMsgs {
		col, err := decodeColumn(msg)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[col.Name]; ok {
			return nil, errors.Errorf("duplicate column %s", col.Name)
		}
		seen[col.Name] = struct{}{}
		cols = append(cols, col)
	}
	tok.Schema = common.NewSchema(cols...)

	switch Kind(kind) {
	case KindDataset:
		if datasetMsg == nil || fileMsg != nil {
			return nil, errors.New("dataset token must carry exactly a dataset descriptor")
		}
		tok.Descriptor, err = decodeDataset(datasetMsg)
	case KindFile:
		if fileMsg == nil || datasetMsg != nil {
			return nil, errors.New("file token must carry exactly a file descriptor")
		}
		tok.Descriptor, err = decodeFile(fileMsg)
	default:
		return nil, errors.Errorf("unknown source kind %d", kind)
	}
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func decodeColumn(msg []byte) (common.ColumnInfo, error) {
	var name []byte
	var typ, precision, scale, unit uint64
	var tz []byte
	hasName := false
	err := walkFields(msg, func(num protowire.Number, wt protowire.Type, b []byte) (int, error) {
		switch num {
		case columnName:
			hasName = true
			return consumeBytes(wt, b, &name)
		case columnType:
			return consumeVarint(wt, b, &typ)
		case columnPrecision:
			return consumeVarint(wt, b, &precision)
		case columnScale:
			return consumeVarint(wt, b, &scale)
		case columnUnit:
			return consumeVarint(wt, b, &unit)
		case columnTimeZone:
			return consumeBytes(wt, b, &tz)
		default:
			return 0, nil
		}
	})
	if err != nil {
		return common.ColumnInfo{}, err
	}
	if !hasName {
		return common.ColumnInfo{}, errors.New("column without a name")
	}
	t := common.Type(typ)
	if t <= common.TypeUnknown || t > common.TypeDuration {
		return common.ColumnInfo{}, errors.Errorf("column %s has invalid type %d", name, typ)
	}
	ct := common.ColumnType{Type: t}
	switch t {
	case common.TypeDecimal:
		s := protowire.DecodeZigZag(scale)
		if precision < 1 || precision > 38 || s > int64(precision) || s < -int64(precision) {
			return common.ColumnInfo{}, errors.Errorf("column %s has invalid decimal(%d,%d)", name, precision, s)
		}
		ct.DecPrecision = int(precision)
		ct.DecScale = int(s)
	case common.TypeTimestamp, common.TypeTime, common.TypeDuration:
		if unit > uint64(arrow.Nanosecond) {
			return common.ColumnInfo{}, errors.Errorf("column %s has invalid time unit %d", name, unit)
		}
		ct.Unit = arrow.TimeUnit(unit)
		if t == common.TypeTimestamp {
			ct.TimeZone = string(tz)
		}
	}
	return common.ColumnInfo{Name: string(name), ColumnType: ct}, nil
}

func decodeDataset(msg []byte) (*DatasetScan, error) {
	var name []byte
	var pushdown uint64
	err := walkFields(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case datasetName:
			return consumeBytes(typ, b, &name)
		case datasetPushdown:
			return consumeVarint(typ, b, &pushdown)
		default:
			return 0, nil
		}
	})
	if err != nil {
		return nil, err
	}
	if len(name) == 0 {
		return nil, errors.New("dataset descriptor without a name")
	}
	if pushdown > 1 {
		return nil, errors.New("invalid pushdown flag")
	}
	return &DatasetScan{DatasetName: string(name), AllowPredicatePushdown: protowire.DecodeBool(pushdown)}, nil
}

func decodeFile(msg []byte) (*FileScan, error) {
	var uri []byte
	var f uint64
	var options map[string]string
	err := walkFields(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fileURI:
			return consumeBytes(typ, b, &uri)
		case fileFormat:
			return consumeVarint(typ, b, &f)
		case fileStorageOption:
			var opt []byte
			n, err := consumeBytes(typ, b, &opt)
			if err != nil {
				return 0, err
			}
			var k, v []byte
			err = walkFields(opt, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case optionKey:
					return consumeBytes(typ, b, &k)
				case optionValue:
					return consumeBytes(typ, b, &v)
				default:
					return 0, nil
				}
			})
			if err != nil {
				return 0, err
			}
			if options == nil {
				options = make(map[string]string)
			}
			options[string(k)] = string(v)
			return n, nil
		default:
			return 0, nil
		}
	})
	if err != nil {
		return nil, err
	}
	if len(uri) == 0 {
		return nil, errors.New("file descriptor without a uri")
	}
	ff := format.Format(f)
	if ff != format.Parquet && ff != format.IPC {
		return nil, errors.Errorf("unknown file format %d", f)
	}
	return &FileScan{URI: string(uri), StorageOptions: options, Format: ff}, nil
}
