package binlog

import (
	"encoding/binary"
	"hash/crc32"
)

// event returns a complete event of type typ with body, without checksum.
func event(typ EventType, body []byte) []byte {
	w := &writer{}
	EventHeader{
		Timestamp: 1700000000,
		EventType: typ,
		ServerID:  1,
		EventSize: uint32(EventHeaderSize + len(body)),
		NextPos:   uint32(4 + EventHeaderSize + len(body)),
	}.encode(w)
	w.bytes(body)
	return w.Bytes()
}

// eventCRC returns a complete event of type typ with body and a CRC32 trailer.
func eventCRC(typ EventType, body []byte) []byte {
	w := &writer{}
	EventHeader{
		Timestamp: 1700000000,
		EventType: typ,
		ServerID:  1,
		EventSize: uint32(EventHeaderSize + len(body) + 4),
		NextPos:   uint32(4 + EventHeaderSize + len(body) + 4),
	}.encode(w)
	w.bytes(body)
	buf := w.Bytes()
	return binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
}

// headerLengths returns a post header length array as written by MySQL 8.0.
func headerLengths() []byte {
	lengths := make([]byte, int(HEARTBEAT_EVENT_V2))
	lengths[QUERY_EVENT-1] = 13
	lengths[ROTATE_EVENT-1] = 8
	lengths[FORMAT_DESCRIPTION_EVENT-1] = byte(fdeFixedLength + len(lengths))
	lengths[TABLE_MAP_EVENT-1] = 8
	for _, t := range []EventType{WRITE_ROWS_EVENTv2, UPDATE_ROWS_EVENTv2, DELETE_ROWS_EVENTv2} {
		lengths[t-1] = 10
	}
	lengths[GTID_EVENT-1] = 42
	lengths[TRANSACTION_PAYLOAD_EVENT-1] = 40
	return lengths
}

// fdeBody returns the body of a format description event. With trailer,
// the checksum algorithm byte is appended; the crc itself is added by
// eventCRC.
func fdeBody(version string, trailer bool, alg ChecksumType) []byte {
	w := &writer{}
	(&FormatDescriptionEvent{
		BinlogVersion:          4,
		ServerVersion:          version,
		CreateTimestamp:        1700000000,
		EventHeaderLength:      EventHeaderSize,
		EventTypeHeaderLengths: headerLengths(),
	}).encode(w)
	if trailer {
		w.int1(uint8(alg))
	}
	return w.Bytes()
}

// fdeEvent returns a format description event of a MySQL 8.0 server with
// CRC32 checksums.
func fdeEvent() []byte {
	return eventCRC(FORMAT_DESCRIPTION_EVENT, fdeBody("8.0.36", true, CHECKSUM_CRC32))
}

// tableMap is a fixture for the body of a TABLE_MAP_EVENT.
type tableMap struct {
	id       uint64
	schema   string
	table    string
	types    []byte
	meta     []byte
	nullable []int
	optional []byte
}

func (tm tableMap) encode() []byte {
	w := &writer{}
	w.int6(tm.id)
	w.int2(1)
	w.int1(uint8(len(tm.schema)))
	w.stringNull(tm.schema)
	w.int1(uint8(len(tm.table)))
	w.stringNull(tm.table)
	w.intN(uint64(len(tm.types)))
	w.bytes(tm.types)
	w.intN(uint64(len(tm.meta)))
	w.bytes(tm.meta)
	w.bytes(bitmap(len(tm.types), tm.nullable...))
	w.bytes(tm.optional)
	return w.Bytes()
}

// bitmap returns a bitmap of n bits with the given bits set.
func bitmap(n int, set ...int) []byte {
	bm := make([]byte, bitmapSize(n))
	for _, i := range set {
		bm[i/8] |= 1 << uint(i%8)
	}
	return bm
}

// allBits returns a bitmap of n bits, all set.
func allBits(n int) []byte {
	set := make([]int, n)
	for i := range set {
		set[i] = i
	}
	return bitmap(n, set...)
}

// rowsHeader writes the post header and column bitmaps of a rows event.
func rowsHeader(w *writer, typ EventType, tableID uint64, numCol int, present ...[]byte) {
	w.int6(tableID)
	w.int2(0)
	switch typ {
	case WRITE_ROWS_EVENTv2, UPDATE_ROWS_EVENTv2, DELETE_ROWS_EVENTv2:
		w.int2(2)
	}
	w.intN(uint64(numCol))
	for _, bm := range present {
		w.bytes(bm)
	}
}

// optionalField returns one optional metadata field of a table map.
func optionalField(typ byte, value []byte) []byte {
	w := &writer{}
	w.int1(typ)
	w.intN(uint64(len(value)))
	w.bytes(value)
	return w.Bytes()
}

// writer appends MySQL wire encodings to a byte slice. It is the inverse of
// reader and is used to build event fixtures.
type writer struct {
	buf []byte
}

func (w *writer) Bytes() []byte {
	return w.buf
}

func (w *writer) int1(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) int2(v uint16) {
	w.intFixed(2, uint64(v))
}

func (w *writer) int3(v uint32) {
	w.intFixed(3, uint64(v))
}

func (w *writer) int4(v uint32) {
	w.intFixed(4, uint64(v))
}

func (w *writer) int6(v uint64) {
	w.intFixed(6, v)
}

func (w *writer) int8(v uint64) {
	w.intFixed(8, v)
}

// intFixed writes the low n bytes of v, little-endian.
func (w *writer) intFixed(n int, v uint64) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, byte(v>>(uint(i)*8)))
	}
}

// intBig writes the low n bytes of v, big-endian.
func (w *writer) intBig(n int, v uint64) {
	for i := n - 1; i >= 0; i-- {
		w.buf = append(w.buf, byte(v>>(uint(i)*8)))
	}
}

func (w *writer) intN(v uint64) {
	switch {
	case v < 0xfb:
		w.int1(uint8(v))
	case v <= 0xffff:
		w.int1(0xfc)
		w.int2(uint16(v))
	case v <= 0xffffff:
		w.int1(0xfd)
		w.int3(uint32(v))
	default:
		w.int1(0xfe)
		w.int8(v)
	}
}

func (w *writer) bytes(v []byte) {
	w.buf = append(w.buf, v...)
}

func (w *writer) string(v string) {
	w.buf = append(w.buf, v...)
}

func (w *writer) stringNull(v string) {
	w.string(v)
	w.int1(0)
}

func (w *writer) stringN(v string) {
	w.intN(uint64(len(v)))
	w.string(v)
}

func (h EventHeader) encode(w *writer) {
	w.int4(h.Timestamp)
	w.int1(uint8(h.EventType))
	w.int4(h.ServerID)
	w.int4(h.EventSize)
	w.int4(h.NextPos)
	w.int2(h.Flags)
}

func (e *FormatDescriptionEvent) encode(w *writer) {
	w.int2(e.BinlogVersion)
	sv := make([]byte, 50)
	copy(sv, e.ServerVersion)
	w.bytes(sv)
	w.int4(e.CreateTimestamp)
	w.int1(e.EventHeaderLength)
	w.bytes(e.EventTypeHeaderLengths)
}
