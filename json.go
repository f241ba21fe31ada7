package binlog

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

// Binary JSON as stored by MySQL 5.7 and later.
//
// https://dev.mysql.com/worklog/task/?id=8132#tabs-8132-4
type jsonDecoder struct{}

const (
	jsonSmallObj byte = iota
	jsonLargeObj
	jsonSmallArr
	jsonLargeArr
	jsonLiteral
	jsonInt16
	jsonUInt16
	jsonInt32
	jsonUInt32
	jsonInt64
	jsonUInt64
	jsonDouble
	jsonString
	jsonCustom = 0x0f
)

func decodeJSON(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var d jsonDecoder
	return d.decodeValue(data)
}

func (d *jsonDecoder) malformed(what string) error {
	return ErrMalformedEvent.New("json: " + what)
}

func (d *jsonDecoder) decodeValue(data []byte) (interface{}, error) {
	if len(data) < 1 {
		return nil, d.malformed("missing value type")
	}
	return d.decodeValueType(data[0], data[1:])
}

func (d *jsonDecoder) decodeValueType(typ byte, data []byte) (interface{}, error) {
	switch typ {
	case jsonSmallObj:
		return d.decodeComposite(data, true, true)
	case jsonLargeObj:
		return d.decodeComposite(data, false, true)
	case jsonSmallArr:
		return d.decodeComposite(data, true, false)
	case jsonLargeArr:
		return d.decodeComposite(data, false, false)
	case jsonLiteral:
		return d.decodeLiteral(data)
	case jsonInt16:
		v, err := d.decodeUInt(data, 2)
		return int64(int16(v)), err
	case jsonUInt16:
		v, err := d.decodeUInt(data, 2)
		return v, err
	case jsonInt32:
		v, err := d.decodeUInt(data, 4)
		return int64(int32(v)), err
	case jsonUInt32:
		v, err := d.decodeUInt(data, 4)
		return v, err
	case jsonInt64:
		v, err := d.decodeUInt(data, 8)
		return int64(v), err
	case jsonUInt64:
		return d.decodeUInt(data, 8)
	case jsonDouble:
		v, err := d.decodeUInt(data, 8)
		return math.Float64frombits(v), err
	case jsonString:
		return d.decodeString(data)
	case jsonCustom:
		return d.decodeCustom(data)
	}
	return nil, d.malformed("invalid value type")
}

func (d *jsonDecoder) decodeComposite(data []byte, small bool, obj bool) (interface{}, error) {
	width := 2
	if !small {
		width = 4
	}
	var off int
	next := func() (uint32, error) {
		v, err := d.decodeUInt(d.at(data, off), width)
		off += width
		return uint32(v), err
	}
	elemCount, err := next()
	if err != nil {
		return nil, err
	}
	size, err := next()
	if err != nil {
		return nil, err
	}
	if int(size) > len(data) {
		return nil, d.malformed("composite size exceeds data")
	}
	data = data[:size]

	// header, key entries and value entries must fit in size
	entry := uint64(1 + width)
	if obj {
		entry += uint64(width + 2)
	}
	if uint64(2*width)+uint64(elemCount)*entry > uint64(size) {
		return nil, d.malformed("element count exceeds composite size")
	}

	var keys []string
	if obj {
		keys = make([]string, elemCount)
		for i := range keys {
			keyOff, err := next()
			if err != nil {
				return nil, err
			}
			keyLen, err := d.decodeUInt(d.at(data, off), 2)
			if err != nil {
				return nil, err
			}
			off += 2
			end := uint64(keyOff) + keyLen
			if end > uint64(len(data)) {
				return nil, d.malformed("key exceeds data")
			}
			keys[i] = string(data[keyOff:end])
		}
	}

	inlineValue := func(typ byte) bool {
		switch typ {
		case jsonLiteral, jsonInt16, jsonUInt16:
			return true
		case jsonInt32, jsonUInt32:
			return !small
		}
		return false
	}
	vals := make([]interface{}, elemCount)
	for i := range vals {
		if off >= len(data) {
			return nil, d.malformed("value entry exceeds data")
		}
		typ := data[off]
		off++
		if inlineValue(typ) {
			v, err := d.decodeValueType(typ, d.at(data, off))
			if err != nil {
				return nil, err
			}
			vals[i] = v
			off += width
		} else {
			valueOff, err := next()
			if err != nil {
				return nil, err
			}
			if int(valueOff) >= len(data) {
				return nil, d.malformed("value offset exceeds data")
			}
			v, err := d.decodeValueType(typ, data[valueOff:])
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
	}

	if obj {
		m := make(map[string]interface{}, len(keys))
		for i, key := range keys {
			m[key] = vals[i]
		}
		return m, nil
	}
	return vals, nil
}

func (d *jsonDecoder) at(data []byte, off int) []byte {
	if off > len(data) {
		return nil
	}
	return data[off:]
}

func (d *jsonDecoder) decodeLiteral(data []byte) (interface{}, error) {
	if len(data) < 1 {
		return nil, d.malformed("missing literal")
	}
	switch data[0] {
	case 0x00:
		return nil, nil
	case 0x01:
		return true, nil
	case 0x02:
		return false, nil
	}
	return nil, d.malformed("invalid literal")
}

func (d *jsonDecoder) decodeUInt(data []byte, n int) (uint64, error) {
	if len(data) < n {
		return 0, d.malformed("truncated integer")
	}
	switch n {
	case 2:
		return uint64(binary.LittleEndian.Uint16(data)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(data)), nil
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (d *jsonDecoder) decodeDataLen(data []byte) (uint64, []byte, error) {
	const max = 5 // math.MaxUint32 can be encoded in 5 bytes
	var size uint64
	for i := 0; i < max; i++ {
		if len(data) == 0 {
			return 0, data, d.malformed("truncated data length")
		}
		v := data[0]
		data = data[1:]
		size |= uint64(v&0x7F) << uint(7*i)
		if highBit := v & (1 << 7); highBit == 0 {
			return size, data, nil
		}
	}
	return 0, nil, d.malformed("invalid data length")
}

func (d *jsonDecoder) decodeString(data []byte) (string, error) {
	size, data, err := d.decodeDataLen(data)
	if err != nil {
		return "", err
	}
	if uint64(len(data)) < size {
		return "", d.malformed("truncated string")
	}
	return string(data[:size]), nil
}

// decodeCustom decodes an opaque value: a mysql column type followed by
// that type's binary representation.
func (d *jsonDecoder) decodeCustom(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, d.malformed("missing opaque type")
	}
	typ := data[0]
	size, data, err := d.decodeDataLen(data[1:])
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) < size {
		return nil, d.malformed("truncated opaque value")
	}
	data = data[:size]

	switch typ {
	case MYSQL_TYPE_NEWDECIMAL:
		if len(data) < 2 {
			return nil, d.malformed("truncated decimal")
		}
		v, err := decodeDecimal(newReader(data[2:]), int(data[0]), int(data[1]))
		if err != nil {
			return nil, err
		}
		return json.Number(v.String()), nil
	case MYSQL_TYPE_TIME:
		v, err := d.decodeUInt(data, 8)
		if err != nil {
			return nil, err
		}
		return timeFromPacked(int64(v)).String(), nil
	case MYSQL_TYPE_DATE:
		v, err := d.decodeUInt(data, 8)
		if err != nil {
			return nil, err
		}
		dt := datetimeFromPacked(int64(v))
		return Date{dt.Year, dt.Month, dt.Day}.String(), nil
	case MYSQL_TYPE_DATETIME, MYSQL_TYPE_TIMESTAMP:
		v, err := d.decodeUInt(data, 8)
		if err != nil {
			return nil, err
		}
		return datetimeFromPacked(int64(v)).String(), nil
	}
	return string(data), nil
}
