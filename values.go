package binlog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the concrete type of a Value.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindUint
	KindFloat32
	KindFloat64
	KindDecimal
	KindBytes
	KindDate
	KindTime
	KindDateTime
	KindTimestamp
	KindYear
	KindEnum
	KindSet
	KindBit
	KindJSON
)

var kindNames = [...]string{
	KindInt:       "int",
	KindUint:      "uint",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindDecimal:   "decimal",
	KindBytes:     "bytes",
	KindDate:      "date",
	KindTime:      "time",
	KindDateTime:  "datetime",
	KindTimestamp: "timestamp",
	KindYear:      "year",
	KindEnum:      "enum",
	KindSet:       "set",
	KindBit:       "bit",
	KindJSON:      "json",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a decoded column value. The set of implementations is closed;
// switch on the concrete type or on Kind. SQL NULL is represented by a nil
// Value in a RowImage.
type Value interface {
	Kind() Kind
	String() string
	value()
}

// Int is a value of a signed integer column. Size is the wire width in bytes.
type Int struct {
	Val  int64
	Size int
}

// Uint is a value of an unsigned integer column. Size is the wire width in bytes.
type Uint struct {
	Val  uint64
	Size int
}

type Float32 struct{ Val float32 }
type Float64 struct{ Val float64 }

// Decimal is a NEWDECIMAL value. Scale is the declared number of
// fractional digits of the column.
type Decimal struct {
	Val   decimal.Decimal
	Scale int32
}

// Bytes is the raw payload of a string, binary or blob column. Use
// Column.Text to convert character columns to UTF-8.
type Bytes struct{ Val []byte }

type Date struct {
	Year, Month, Day int
}

// Time is a TIME value. Hour may exceed 23.
type Time struct {
	Negative    bool
	Hour        int
	Minute      int
	Second      int
	Microsecond int
	Frac        int // fractional digits, 0-6
}

type DateTime struct {
	Year, Month, Day     int
	Hour, Minute, Second int
	Microsecond          int
	Frac                 int // fractional digits, 0-6
}

// Timestamp is seconds since the unix epoch, UTC.
type Timestamp struct {
	Sec         int64
	Microsecond int
	Frac        int // fractional digits, 0-6
}

type Year struct{ Val int }

// Enum is the 1-based index of an ENUM value; 0 is the empty error value.
// Values holds the labels of the column when known.
type Enum struct {
	Val    uint16
	Values []string
}

// Set is the member bitmask of a SET value. Values holds the labels of
// the column when known.
type Set struct {
	Val    uint64
	Values []string
}

type Bit struct {
	Val  uint64
	Bits int
}

// JSON holds a decoded binary JSON document as Go values: nil, bool,
// int64, uint64, float64, string, json.Number for decimals,
// []interface{} and map[string]interface{}.
type JSON struct{ Val interface{} }

func (Int) Kind() Kind       { return KindInt }
func (Uint) Kind() Kind      { return KindUint }
func (Float32) Kind() Kind   { return KindFloat32 }
func (Float64) Kind() Kind   { return KindFloat64 }
func (Decimal) Kind() Kind   { return KindDecimal }
func (Bytes) Kind() Kind     { return KindBytes }
func (Date) Kind() Kind      { return KindDate }
func (Time) Kind() Kind      { return KindTime }
func (DateTime) Kind() Kind  { return KindDateTime }
func (Timestamp) Kind() Kind { return KindTimestamp }
func (Year) Kind() Kind      { return KindYear }
func (Enum) Kind() Kind      { return KindEnum }
func (Set) Kind() Kind       { return KindSet }
func (Bit) Kind() Kind       { return KindBit }
func (JSON) Kind() Kind      { return KindJSON }

func (Int) value()       {}
func (Uint) value()      {}
func (Float32) value()   {}
func (Float64) value()   {}
func (Decimal) value()   {}
func (Bytes) value()     {}
func (Date) value()      {}
func (Time) value()      {}
func (DateTime) value()  {}
func (Timestamp) value() {}
func (Year) value()      {}
func (Enum) value()      {}
func (Set) value()       {}
func (Bit) value()       {}
func (JSON) value()      {}

func (v Int) String() string     { return strconv.FormatInt(v.Val, 10) }
func (v Uint) String() string    { return strconv.FormatUint(v.Val, 10) }
func (v Float32) String() string { return strconv.FormatFloat(float64(v.Val), 'g', -1, 32) }
func (v Float64) String() string { return strconv.FormatFloat(v.Val, 'g', -1, 64) }
func (v Decimal) String() string { return v.Val.StringFixed(v.Scale) }
func (v Bytes) String() string   { return string(v.Val) }
func (v Year) String() string    { return fmt.Sprintf("%04d", v.Val) }
func (v Bit) String() string     { return strconv.FormatUint(v.Val, 2) }

func (v Date) IsZero() bool {
	return v == Date{}
}

func (v Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", v.Year, v.Month, v.Day)
}

func (v Time) String() string {
	sign := ""
	if v.Negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d:%02d:%02d%s", sign, v.Hour, v.Minute, v.Second, fracString(v.Microsecond, v.Frac))
}

// Duration returns v as a signed duration.
func (v Time) Duration() time.Duration {
	d := time.Duration(v.Hour)*time.Hour +
		time.Duration(v.Minute)*time.Minute +
		time.Duration(v.Second)*time.Second +
		time.Duration(v.Microsecond)*time.Microsecond
	if v.Negative {
		return -d
	}
	return d
}

func (v DateTime) IsZero() bool {
	return v.Year == 0 && v.Month == 0 && v.Day == 0 &&
		v.Hour == 0 && v.Minute == 0 && v.Second == 0 && v.Microsecond == 0
}

func (v DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d%s",
		v.Year, v.Month, v.Day, v.Hour, v.Minute, v.Second, fracString(v.Microsecond, v.Frac))
}

// Time returns v in UTC. Zero dates have no time.Time equivalent and
// yield the zero time.Time.
func (v DateTime) Time() time.Time {
	if v.Month == 0 || v.Day == 0 {
		return time.Time{}
	}
	return time.Date(v.Year, time.Month(v.Month), v.Day, v.Hour, v.Minute, v.Second, v.Microsecond*1000, time.UTC)
}

func (v Timestamp) IsZero() bool {
	return v.Sec == 0 && v.Microsecond == 0
}

func (v Timestamp) String() string {
	if v.IsZero() {
		return "0000-00-00 00:00:00" + fracString(0, v.Frac)
	}
	return v.Time().Format("2006-01-02 15:04:05") + fracString(v.Microsecond, v.Frac)
}

func (v Timestamp) Time() time.Time {
	return time.Unix(v.Sec, int64(v.Microsecond)*1000).UTC()
}

func (v Enum) String() string {
	if v.Val == 0 {
		return ""
	}
	if int(v.Val) <= len(v.Values) {
		return v.Values[v.Val-1]
	}
	return strconv.Itoa(int(v.Val))
}

func (v Set) String() string {
	if len(v.Values) == 0 {
		return strconv.FormatUint(v.Val, 10)
	}
	var members []string
	for i, name := range v.Values {
		if i < 64 && v.Val&(1<<uint(i)) != 0 {
			members = append(members, name)
		}
	}
	return strings.Join(members, ",")
}

func (v JSON) String() string {
	b, err := json.Marshal(v.Val)
	if err != nil {
		return fmt.Sprint(v.Val)
	}
	return string(b)
}

func fracString(micro, frac int) string {
	if frac <= 0 {
		return ""
	}
	if frac > 6 {
		frac = 6
	}
	return "." + fmt.Sprintf("%06d", micro)[:frac]
}
