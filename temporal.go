package binlog

// Legacy temporal types store decimal-packed fields little-endian. The
// fractional-seconds types added in 5.6.4 (TIME2, DATETIME2, TIMESTAMP2)
// store a big-endian integer part followed by (fsp+1)/2 bytes of fraction.
//
// https://dev.mysql.com/doc/internals/en/date-and-time-data-type-representation.html

const (
	timeIntOffset     = 0x800000
	time6Offset       = 0x800000000000
	datetimeIntOffset = 0x8000000000
)

func decodeDate(r *reader) Date {
	v := r.int3()
	return Date{Year: int(v >> 9), Month: int(v>>5) & 15, Day: int(v) & 31}
}

// decodeTime decodes a legacy TIME, stored as the signed decimal hhmmss.
func decodeTime(r *reader) Time {
	v := int32(r.int3()<<8) >> 8
	t := Time{}
	if v < 0 {
		t.Negative = true
		v = -v
	}
	t.Hour, t.Minute, t.Second = int(v/10000), int(v/100%100), int(v%100)
	return t
}

// decodeDateTime decodes a legacy DATETIME, stored as the decimal YYYYMMDDhhmmss.
func decodeDateTime(r *reader) DateTime {
	v := r.int8()
	d, t := v/1000000, v%1000000
	return DateTime{
		Year: int(d / 10000), Month: int(d / 100 % 100), Day: int(d % 100),
		Hour: int(t / 10000), Minute: int(t / 100 % 100), Second: int(t % 100),
	}
}

func decodeTimestamp(r *reader) Timestamp {
	return Timestamp{Sec: int64(r.int4())}
}

func checkFrac(r *reader, frac int) error {
	if frac < 0 || frac > 6 {
		return r.fail("invalid fractional seconds precision %d", frac)
	}
	return nil
}

func decodeTimestamp2(r *reader, frac int) (Timestamp, error) {
	if err := checkFrac(r, frac); err != nil {
		return Timestamp{}, err
	}
	ts := Timestamp{Sec: int64(r.intBig(4)), Frac: frac}
	switch frac {
	case 1, 2:
		ts.Microsecond = int(r.int1()) * 10000
	case 3, 4:
		ts.Microsecond = int(r.intBig(2)) * 100
	case 5, 6:
		ts.Microsecond = int(r.intBig(3))
	}
	return ts, r.err
}

// readFrac reads the signed fractional part of a DATETIME2 in microseconds.
func readFrac(r *reader, frac int) int64 {
	switch frac {
	case 1, 2:
		return int64(int8(r.int1())) * 10000
	case 3, 4:
		return int64(int16(r.intBig(2))) * 100
	case 5, 6:
		return int64(int32(r.intBig(3)<<8) >> 8)
	}
	return 0
}

func decodeDateTime2(r *reader, frac int) (DateTime, error) {
	if err := checkFrac(r, frac); err != nil {
		return DateTime{}, err
	}
	intpart := int64(r.be5()) - datetimeIntOffset
	packed := intpart<<24 + readFrac(r, frac)
	if r.err != nil {
		return DateTime{}, r.err
	}
	dt := datetimeFromPacked(packed)
	dt.Frac = frac
	return dt, nil
}

func decodeTime2(r *reader, frac int) (Time, error) {
	if err := checkFrac(r, frac); err != nil {
		return Time{}, err
	}
	var packed int64
	switch frac {
	case 0:
		packed = (int64(r.be3()) - timeIntOffset) << 24
	case 1, 2:
		intpart := int64(r.be3()) - timeIntOffset
		f := int64(r.int1())
		if intpart < 0 && f != 0 {
			intpart++
			f -= 0x100
		}
		packed = intpart<<24 + f*10000
	case 3, 4:
		intpart := int64(r.be3()) - timeIntOffset
		f := int64(r.intBig(2))
		if intpart < 0 && f != 0 {
			intpart++
			f -= 0x10000
		}
		packed = intpart<<24 + f*100
	case 5, 6:
		packed = int64(r.intBig(6)) - time6Offset
	}
	if r.err != nil {
		return Time{}, r.err
	}

	t := timeFromPacked(packed)
	t.Frac = frac
	return t, nil
}

// timeFromPacked unpacks the in-memory longlong TIME representation.
func timeFromPacked(v int64) Time {
	t := Time{Frac: 6}
	if v < 0 {
		t.Negative = true
		v = -v
	}
	hms := v >> 24
	t.Microsecond = int(v % (1 << 24))
	t.Hour, t.Minute, t.Second = int((hms>>12)%(1<<10)), int((hms>>6)%(1<<6)), int(hms%(1<<6))
	return t
}

// datetimeFromPacked unpacks the in-memory longlong DATETIME representation.
func datetimeFromPacked(v int64) DateTime {
	if v < 0 {
		v = -v
	}
	dt := DateTime{Frac: 6, Microsecond: int(v % (1 << 24))}
	ymdhms := v >> 24
	ymd := ymdhms >> 17
	ym := ymd >> 5
	hms := ymdhms % (1 << 17)
	dt.Year, dt.Month, dt.Day = int(ym/13), int(ym%13), int(ymd%(1<<5))
	dt.Hour, dt.Minute, dt.Second = int(hms>>12), int((hms>>6)%(1<<6)), int(hms%(1<<6))
	return dt
}
