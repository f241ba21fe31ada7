package binlog

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

const (
	MYSQL_TYPE_DECIMAL     = 0x00
	MYSQL_TYPE_TINY        = 0x01
	MYSQL_TYPE_SHORT       = 0x02
	MYSQL_TYPE_LONG        = 0x03
	MYSQL_TYPE_FLOAT       = 0x04
	MYSQL_TYPE_DOUBLE      = 0x05
	MYSQL_TYPE_NULL        = 0x06
	MYSQL_TYPE_TIMESTAMP   = 0x07
	MYSQL_TYPE_LONGLONG    = 0x08
	MYSQL_TYPE_INT24       = 0x09
	MYSQL_TYPE_DATE        = 0x0a
	MYSQL_TYPE_TIME        = 0x0b
	MYSQL_TYPE_DATETIME    = 0x0c
	MYSQL_TYPE_YEAR        = 0x0d
	MYSQL_TYPE_NEWDATE     = 0x0e
	MYSQL_TYPE_VARCHAR     = 0x0f
	MYSQL_TYPE_BIT         = 0x10
	MYSQL_TYPE_TIMESTAMP2  = 0x11
	MYSQL_TYPE_DATETIME2   = 0x12
	MYSQL_TYPE_TIME2       = 0x13
	MYSQL_TYPE_JSON        = 0xf5
	MYSQL_TYPE_NEWDECIMAL  = 0xf6
	MYSQL_TYPE_ENUM        = 0xf7
	MYSQL_TYPE_SET         = 0xf8
	MYSQL_TYPE_TINY_BLOB   = 0xf9
	MYSQL_TYPE_MEDIUM_BLOB = 0xfa
	MYSQL_TYPE_LONG_BLOB   = 0xfb
	MYSQL_TYPE_BLOB        = 0xfc
	MYSQL_TYPE_VAR_STRING  = 0xfd
	MYSQL_TYPE_STRING      = 0xfe
	MYSQL_TYPE_GEOMETRY    = 0xff
)

// metaSize returns the number of table map metadata bytes for a column type.
func metaSize(typ byte) int {
	switch typ {
	case MYSQL_TYPE_BLOB, MYSQL_TYPE_TINY_BLOB, MYSQL_TYPE_MEDIUM_BLOB, MYSQL_TYPE_LONG_BLOB,
		MYSQL_TYPE_DOUBLE, MYSQL_TYPE_FLOAT, MYSQL_TYPE_GEOMETRY, MYSQL_TYPE_JSON,
		MYSQL_TYPE_TIME2, MYSQL_TYPE_DATETIME2, MYSQL_TYPE_TIMESTAMP2:
		return 1
	case MYSQL_TYPE_VARCHAR, MYSQL_TYPE_BIT, MYSQL_TYPE_DECIMAL, MYSQL_TYPE_NEWDECIMAL,
		MYSQL_TYPE_SET, MYSQL_TYPE_ENUM, MYSQL_TYPE_STRING, MYSQL_TYPE_VAR_STRING:
		return 2
	}
	return 0
}

// Column describes one column of a TableMapEvent.
//
// Meta is the raw column metadata. For VARCHAR, VAR_STRING and BIT it is
// the little-endian u16 of the metadata bytes, for NEWDECIMAL, STRING, ENUM
// and SET the first byte is the high byte, and one-byte metadata is stored
// as is. Use the accessor methods for its interpretation.
type Column struct {
	Ordinal  int
	Type     byte
	Meta     uint16
	Nullable bool

	// The following are known only if the server logs optional
	// metadata or a schema.Loader filled them.
	Unsigned  bool
	Name      string
	Collation uint64
	Charset   string
	Values    []string // ENUM or SET labels
}

// RealType returns the type of the column with ENUM and SET resolved
// from the metadata of STRING columns.
func (c *Column) RealType() byte {
	if c.Type == MYSQL_TYPE_STRING && c.Meta >= 256 {
		b0 := byte(c.Meta >> 8)
		if b0&0x30 != 0x30 {
			return b0 | 0x30
		}
		return b0
	}
	return c.Type
}

// MaxLength returns the maximum byte length of STRING, VARCHAR and
// VAR_STRING columns.
func (c *Column) MaxLength() int {
	switch c.Type {
	case MYSQL_TYPE_VARCHAR, MYSQL_TYPE_VAR_STRING:
		return int(c.Meta)
	case MYSQL_TYPE_STRING:
		b0, b1 := int(c.Meta>>8), int(c.Meta&0xff)
		if b0&0x30 != 0x30 {
			return b1 | ((b0&0x30)^0x30)<<4
		}
		return b1
	}
	return 0
}

func (c *Column) Precision() int { return int(c.Meta >> 8) }
func (c *Column) Scale() int     { return int(c.Meta & 0xff) }

// Bits returns the width of a BIT column.
func (c *Column) Bits() int {
	return int(c.Meta>>8)*8 + int(c.Meta&0xff)
}

// FractionalDigits returns the fractional seconds precision of TIME2,
// DATETIME2 and TIMESTAMP2 columns.
func (c *Column) FractionalDigits() int {
	return int(c.Meta)
}

// isNumeric reports whether the column takes part in the signedness
// optional metadata.
func (c *Column) isNumeric() bool {
	switch c.Type {
	case MYSQL_TYPE_TINY, MYSQL_TYPE_SHORT, MYSQL_TYPE_INT24, MYSQL_TYPE_LONG, MYSQL_TYPE_LONGLONG,
		MYSQL_TYPE_FLOAT, MYSQL_TYPE_DOUBLE, MYSQL_TYPE_NEWDECIMAL:
		return true
	}
	return false
}

// isCharacter reports whether the column takes part in the charset
// optional metadata.
func (c *Column) isCharacter() bool {
	switch c.RealType() {
	case MYSQL_TYPE_STRING, MYSQL_TYPE_VAR_STRING, MYSQL_TYPE_VARCHAR, MYSQL_TYPE_BLOB:
		return true
	}
	return false
}

func (c *Column) isEnumOrSet() bool {
	switch c.RealType() {
	case MYSQL_TYPE_ENUM, MYSQL_TYPE_SET:
		return true
	}
	return false
}

// DecodeValue decodes a single non-NULL value of column col from the start
// of data. It returns the value and the number of bytes consumed.
func DecodeValue(data []byte, col Column) (Value, int, error) {
	r := newReader(data)
	v, err := decodeValue(r, &col)
	if err != nil {
		return nil, 0, err
	}
	return v, r.off, nil
}

// https://dev.mysql.com/doc/internals/en/binary-protocol-value.html
func decodeValue(r *reader, col *Column) (Value, error) {
	switch col.Type {
	case MYSQL_TYPE_TINY:
		v := r.int1()
		if col.Unsigned {
			return Uint{uint64(v), 1}, r.err
		}
		return Int{int64(int8(v)), 1}, r.err
	case MYSQL_TYPE_SHORT:
		v := r.int2()
		if col.Unsigned {
			return Uint{uint64(v), 2}, r.err
		}
		return Int{int64(int16(v)), 2}, r.err
	case MYSQL_TYPE_INT24:
		v := r.int3()
		if col.Unsigned {
			return Uint{uint64(v), 3}, r.err
		}
		return Int{int64(int32(v<<8) >> 8), 3}, r.err
	case MYSQL_TYPE_LONG:
		v := r.int4()
		if col.Unsigned {
			return Uint{uint64(v), 4}, r.err
		}
		return Int{int64(int32(v)), 4}, r.err
	case MYSQL_TYPE_LONGLONG:
		v := r.int8()
		if col.Unsigned {
			return Uint{v, 8}, r.err
		}
		return Int{int64(v), 8}, r.err
	case MYSQL_TYPE_FLOAT:
		return Float32{math.Float32frombits(r.int4())}, r.err
	case MYSQL_TYPE_DOUBLE:
		return Float64{math.Float64frombits(r.int8())}, r.err
	case MYSQL_TYPE_NEWDECIMAL:
		return decodeDecimal(r, col.Precision(), col.Scale())
	case MYSQL_TYPE_YEAR:
		v := int(r.int1())
		if v != 0 {
			v += 1900
		}
		return Year{v}, r.err
	case MYSQL_TYPE_DATE, MYSQL_TYPE_NEWDATE:
		return decodeDate(r), r.err
	case MYSQL_TYPE_TIME:
		return decodeTime(r), r.err
	case MYSQL_TYPE_DATETIME:
		return decodeDateTime(r), r.err
	case MYSQL_TYPE_TIMESTAMP:
		return decodeTimestamp(r), r.err
	case MYSQL_TYPE_TIME2:
		return decodeTime2(r, col.FractionalDigits())
	case MYSQL_TYPE_DATETIME2:
		return decodeDateTime2(r, col.FractionalDigits())
	case MYSQL_TYPE_TIMESTAMP2:
		return decodeTimestamp2(r, col.FractionalDigits())
	case MYSQL_TYPE_VARCHAR, MYSQL_TYPE_VAR_STRING:
		return decodeString(r, col.MaxLength())
	case MYSQL_TYPE_STRING, MYSQL_TYPE_ENUM, MYSQL_TYPE_SET:
		switch col.RealType() {
		case MYSQL_TYPE_ENUM:
			switch size := col.Meta & 0xff; size {
			case 1:
				return Enum{uint16(r.int1()), col.Values}, r.err
			case 2:
				return Enum{r.int2(), col.Values}, r.err
			default:
				return nil, r.fail("invalid enum size %d", size)
			}
		case MYSQL_TYPE_SET:
			size := int(col.Meta & 0xff)
			if size < 1 || size > 8 {
				return nil, r.fail("invalid set size %d", size)
			}
			return Set{r.intFixed(size), col.Values}, r.err
		case MYSQL_TYPE_STRING:
			return decodeString(r, col.MaxLength())
		}
		return nil, ErrUnsupportedColumnType.New(col.RealType())
	case MYSQL_TYPE_BLOB, MYSQL_TYPE_TINY_BLOB, MYSQL_TYPE_MEDIUM_BLOB, MYSQL_TYPE_LONG_BLOB, MYSQL_TYPE_GEOMETRY:
		b, err := decodeBlob(r, int(col.Meta))
		if err != nil {
			return nil, err
		}
		return Bytes{b}, nil
	case MYSQL_TYPE_JSON:
		b, err := decodeBlob(r, int(col.Meta))
		if err != nil {
			return nil, err
		}
		v, err := decodeJSON(b)
		if err != nil {
			return nil, err
		}
		return JSON{v}, nil
	case MYSQL_TYPE_BIT:
		bits := col.Bits()
		if bits < 1 || bits > 64 {
			return nil, r.fail("invalid bit width %d", bits)
		}
		return Bit{r.intBig((bits + 7) / 8), bits}, r.err
	case MYSQL_TYPE_NULL:
		return nil, nil
	}
	return nil, ErrUnsupportedColumnType.New(col.Type)
}

func decodeString(r *reader, maxLen int) (Value, error) {
	var n int
	if maxLen > 255 {
		n = int(r.int2())
	} else {
		n = int(r.int1())
	}
	b := r.bytes(n)
	if r.err != nil {
		return nil, r.err
	}
	return Bytes{b}, nil
}

func decodeBlob(r *reader, lengthSize int) ([]byte, error) {
	if lengthSize < 1 || lengthSize > 4 {
		return nil, r.fail("invalid blob length size %d", lengthSize)
	}
	n := r.intFixed(lengthSize)
	if r.err != nil {
		return nil, r.err
	}
	if n > uint64(r.remaining()) {
		return nil, r.fail("blob length %d exceeds remaining %d bytes", n, r.remaining())
	}
	return r.bytes(int(n)), r.err
}

// ValueLiteral returns v as an SQL literal for this column.
func (c *Column) ValueLiteral(v Value) string {
	if v == nil {
		return "NULL"
	}
	switch v := v.(type) {
	case Int, Uint, Float32, Float64, Decimal, Year:
		return v.String()
	case Bit:
		return "b'" + v.String() + "'"
	case Bytes:
		if s, err := c.Text(v); err == nil {
			return quote(s)
		}
		return "x'" + hex.EncodeToString(v.Val) + "'"
	case Enum:
		if int(v.Val) <= len(v.Values) {
			return quote(v.String())
		}
		return strconv.Itoa(int(v.Val))
	case Set:
		if len(v.Values) > 0 {
			return quote(v.String())
		}
		return v.String()
	}
	return quote(v.String())
}

func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}
