package binlog

import (
	"fmt"
)

// TableMapEvent is written before rows events and maps a table id to the
// table definition, as logged at that point of the binlog.
//
// https://dev.mysql.com/doc/internals/en/table-map-event.html
type TableMapEvent struct {
	TableID    uint64
	Flags      uint16
	SchemaName string
	TableName  string
	Columns    []Column
	NullBitmap Bitmap

	// PrimaryKey lists the column indexes of the primary key and
	// PrimaryKeyPrefix the prefix length of each, 0 for the full column.
	// Both are set only if the server logs optional metadata.
	PrimaryKey       []int
	PrimaryKeyPrefix []int

	// Logged tells which optional metadata the server logged.
	Logged LoggedMetadata
}

// LoggedMetadata tells which optional metadata fields a table map carried.
// binlog_row_metadata=MINIMAL logs signedness and charsets, FULL logs all.
type LoggedMetadata struct {
	Signedness   bool
	Charset      bool
	ColumnNames  bool
	EnumSetValue bool
	PrimaryKey   bool
}

// DecodeTableMap decodes the body of a TABLE_MAP_EVENT of a current
// server, checksum already stripped, and registers it in tables unless
// tables is nil.
func DecodeTableMap(payload []byte, tables *TableMaps) (*TableMapEvent, error) {
	e := &TableMapEvent{}
	if err := e.decode(newReader(payload), nil); err != nil {
		return nil, err
	}
	if tables != nil {
		tables.Put(e)
	}
	return e, nil
}

func (e *TableMapEvent) decode(r *reader, fde *FormatDescriptionEvent) error {
	e.TableID = r.intFixed(fde.tableIDLength(TABLE_MAP_EVENT))
	e.Flags = r.int2()
	e.SchemaName = r.string(int(r.int1()))
	r.skip(1)
	e.TableName = r.string(int(r.int1()))
	r.skip(1)
	numCol := r.intN()
	if r.err != nil {
		return r.err
	}
	if numCol > uint64(r.remaining()) {
		return r.fail("column count %d exceeds remaining %d bytes", numCol, r.remaining())
	}
	e.Columns = make([]Column, numCol)
	for i := range e.Columns {
		e.Columns[i].Ordinal = i
		e.Columns[i].Type = r.int1()
	}

	meta := newReader(r.bytesN())
	if r.err != nil {
		return r.err
	}
	for i := range e.Columns {
		col := &e.Columns[i]
		switch col.Type {
		case MYSQL_TYPE_VARCHAR, MYSQL_TYPE_VAR_STRING, MYSQL_TYPE_BIT:
			col.Meta = meta.int2()
		case MYSQL_TYPE_DECIMAL, MYSQL_TYPE_NEWDECIMAL, MYSQL_TYPE_STRING, MYSQL_TYPE_ENUM, MYSQL_TYPE_SET:
			col.Meta = uint16(meta.intBig(2))
		default:
			if metaSize(col.Type) == 1 {
				col.Meta = uint16(meta.int1())
			}
		}
	}
	if meta.err != nil {
		return r.fail("column metadata: %v", meta.err)
	}
	if meta.more() {
		return r.fail("column metadata has %d unused bytes", meta.remaining())
	}

	e.NullBitmap = r.bytes(bitmapSize(len(e.Columns)))
	if r.err != nil {
		return r.err
	}
	for i := range e.Columns {
		e.Columns[i].Nullable = e.NullBitmap.IsSet(i)
	}

	for r.more() {
		typ := r.int1()
		field := newReader(r.bytesN())
		if r.err != nil {
			return r.err
		}
		if err := e.decodeOptionalMetadata(typ, field); err != nil {
			return r.fail("optional metadata %d: %v", typ, err)
		}
	}
	return r.err
}

// optional metadata field types, logged with binlog_row_metadata=FULL.
//
// https://dev.mysql.com/doc/dev/mysql-server/latest/classbinary__log_1_1Table__map__event.html
const (
	metaSignedness = iota + 1
	metaDefaultCharset
	metaColumnCharset
	metaColumnName
	metaSetStrValue
	metaEnumStrValue
	metaGeometryType
	metaSimplePrimaryKey
	metaPrimaryKeyWithPrefix
	metaEnumAndSetDefaultCharset
	metaEnumAndSetColumnCharset
	metaColumnVisibility
)

func (e *TableMapEvent) decodeOptionalMetadata(typ byte, r *reader) error {
	switch typ {
	case metaSignedness:
		e.Logged.Signedness = true
		signedness := r.bytesEOF()
		i := 0
		for c := range e.Columns {
			if !e.Columns[c].isNumeric() {
				continue
			}
			if i/8 >= len(signedness) {
				return r.fail("signedness bitmap too short")
			}
			e.Columns[c].Unsigned = signedness[i/8]&(0x80>>uint(i%8)) != 0
			i++
		}
	case metaDefaultCharset:
		e.Logged.Charset = true
		e.decodeDefaultCharset(r, (*Column).isCharacter)
	case metaEnumAndSetDefaultCharset:
		e.Logged.Charset = true
		e.decodeDefaultCharset(r, (*Column).isEnumOrSet)
	case metaColumnCharset:
		e.Logged.Charset = true
		e.decodeColumnCharset(r, (*Column).isCharacter)
	case metaEnumAndSetColumnCharset:
		e.Logged.Charset = true
		e.decodeColumnCharset(r, (*Column).isEnumOrSet)
	case metaColumnName:
		e.Logged.ColumnNames = true
		for i := range e.Columns {
			e.Columns[i].Name = r.stringN()
		}
	case metaSetStrValue:
		e.Logged.EnumSetValue = true
		e.decodeStrValues(r, MYSQL_TYPE_SET)
	case metaEnumStrValue:
		e.Logged.EnumSetValue = true
		e.decodeStrValues(r, MYSQL_TYPE_ENUM)
	case metaSimplePrimaryKey:
		e.Logged.PrimaryKey = true
		for r.more() {
			if err := e.addPrimaryKey(r, int(r.intN()), 0); err != nil {
				return err
			}
		}
	case metaPrimaryKeyWithPrefix:
		e.Logged.PrimaryKey = true
		for r.more() {
			idx := int(r.intN())
			if err := e.addPrimaryKey(r, idx, int(r.intN())); err != nil {
				return err
			}
		}
	}
	return r.err
}

func (e *TableMapEvent) decodeDefaultCharset(r *reader, match func(*Column) bool) {
	def := r.intN()
	var overrides = make(map[int]uint64)
	for r.more() {
		i := int(r.intN())
		overrides[i] = r.intN()
	}
	i := 0
	for c := range e.Columns {
		col := &e.Columns[c]
		if !match(col) {
			continue
		}
		col.Collation = def
		if v, ok := overrides[i]; ok {
			col.Collation = v
		}
		col.Charset = charsetForCollation(col.Collation)
		i++
	}
}

func (e *TableMapEvent) decodeColumnCharset(r *reader, match func(*Column) bool) {
	for c := range e.Columns {
		col := &e.Columns[c]
		if !match(col) {
			continue
		}
		col.Collation = r.intN()
		col.Charset = charsetForCollation(col.Collation)
	}
}

func (e *TableMapEvent) decodeStrValues(r *reader, realType byte) {
	for c := range e.Columns {
		col := &e.Columns[c]
		if col.RealType() != realType {
			continue
		}
		n := r.intN()
		if r.err != nil {
			return
		}
		if n > uint64(r.remaining()) {
			r.fail("%d values exceed remaining %d bytes", n, r.remaining())
			return
		}
		col.Values = make([]string, n)
		for i := range col.Values {
			col.Values[i] = r.stringN()
		}
	}
}

func (e *TableMapEvent) addPrimaryKey(r *reader, idx, prefix int) error {
	if r.err != nil {
		return r.err
	}
	if idx >= len(e.Columns) {
		return r.fail("primary key column %d out of range", idx)
	}
	e.PrimaryKey = append(e.PrimaryKey, idx)
	e.PrimaryKeyPrefix = append(e.PrimaryKeyPrefix, prefix)
	return nil
}

func (e *TableMapEvent) String() string {
	return fmt.Sprintf("%s.%s", e.SchemaName, e.TableName)
}

// TableMaps is the binlog context of one stream: the most recent
// TableMapEvent per table id. A later table map with the same id replaces
// the earlier one. It is not safe for concurrent use.
type TableMaps struct {
	m map[uint64]*TableMapEvent
}

func NewTableMaps() *TableMaps {
	return &TableMaps{m: make(map[uint64]*TableMapEvent)}
}

func (t *TableMaps) Get(tableID uint64) (*TableMapEvent, bool) {
	if t == nil {
		return nil, false
	}
	e, ok := t.m[tableID]
	return e, ok
}

func (t *TableMaps) Put(e *TableMapEvent) {
	t.m[e.TableID] = e
}

func (t *TableMaps) Len() int {
	return len(t.m)
}

// Reset forgets all table maps. Call it when the stream is reopened.
func (t *TableMaps) Reset() {
	for k := range t.m {
		delete(t.m, k)
	}
}

// bitmap ---

// Bitmap is a column bitmap, bit i of byte i/8 least significant first.
type Bitmap []byte

func bitmapSize(numCol int) int {
	return (numCol + 7) / 8
}

func (bm Bitmap) IsSet(i int) bool {
	return i/8 < len(bm) && bm[i/8]&(1<<uint(i%8)) != 0
}

// Count returns the number of bits set among the first n.
func (bm Bitmap) Count(n int) int {
	c := 0
	for i := 0; i < n; i++ {
		if bm.IsSet(i) {
			c++
		}
	}
	return c
}
