package binlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// itemsTable is the table map of
//
//	create table items(id int, name varchar(20), qty tinyint)
func itemsTable(id uint64) tableMap {
	return tableMap{
		id:       id,
		schema:   "shop",
		table:    "items",
		types:    []byte{MYSQL_TYPE_LONG, MYSQL_TYPE_VARCHAR, MYSQL_TYPE_TINY},
		meta:     []byte{80, 0},
		nullable: []int{1, 2},
	}
}

func registerTable(t *testing.T, tm tableMap) *TableMaps {
	t.Helper()
	tables := NewTableMaps()
	_, err := DecodeTableMap(tm.encode(), tables)
	require.NoError(t, err)
	return tables
}

// writeRow writes a row image of the given present columns of tme.
func writeRow(w *writer, tme *TableMapEvent, present []int, vals ...Value) {
	var null []int
	for i, v := range vals {
		if v == nil {
			null = append(null, i)
		}
	}
	w.bytes(bitmap(len(present), null...))
	for i, v := range vals {
		if v != nil {
			encodeValue(w, &tme.Columns[present[i]], v)
		}
	}
}

func TestDecodeRows_write(t *testing.T) {
	tables := registerTable(t, itemsTable(10))
	tme, _ := tables.Get(10)
	all := []int{0, 1, 2}

	w := &writer{}
	rowsHeader(w, WRITE_ROWS_EVENTv2, 10, 3, allBits(3))
	writeRow(w, tme, all, Int{1, 4}, Bytes{[]byte("apple")}, Int{5, 1})
	writeRow(w, tme, all, Int{2, 4}, nil, nil)

	e, err := DecodeRows(WRITE_ROWS_EVENTv2, w.Bytes(), tables)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), e.TableID)
	assert.Same(t, tme, e.TableMap)
	assert.Equal(t, uint64(3), e.ColumnCount)
	assert.Empty(t, e.ExtraData)
	assert.Equal(t, []RowImage{
		{Int{1, 4}, Bytes{[]byte("apple")}, Int{5, 1}},
		{Int{2, 4}, nil, nil},
	}, e.Rows)
	assert.Nil(t, e.AfterRows)
	assert.Len(t, e.Columns(), 3)
}

func TestDecodeRows_nullBitmapSize(t *testing.T) {
	const n = 10
	types := make([]byte, n)
	for i := range types {
		types[i] = MYSQL_TYPE_TINY
	}
	tables := registerTable(t, tableMap{id: 3, schema: "s", table: "wide", types: types})
	tme, _ := tables.Get(3)

	for _, present := range [][]int{{0, 5, 9}, {0, 1, 2, 3, 4, 5, 6, 7, 8}} {
		k := len(present)
		w := &writer{}
		rowsHeader(w, WRITE_ROWS_EVENTv1, 3, n, bitmap(n, present...))
		header := len(w.Bytes())
		var row, last []Value
		for i := 0; i < k; i++ {
			row = append(row, Int{int64(i), 1})
			last = append(last, Int{int64(-i), 1})
		}
		writeRow(w, tme, present, row...)
		assert.Equal(t, header+bitmapSize(k)+k, len(w.Bytes()))
		writeRow(w, tme, present, last...)

		e, err := DecodeRows(WRITE_ROWS_EVENTv1, w.Bytes(), tables)
		require.NoError(t, err, "k=%d", k)
		require.Len(t, e.Rows, 2)
		assert.Equal(t, RowImage(row), e.Rows[0])
		assert.Equal(t, RowImage(last), e.Rows[1])
		cols := e.Columns()
		require.Len(t, cols, k)
		for i, c := range cols {
			assert.Equal(t, present[i], c.Ordinal)
		}
	}
}

func TestDecodeRows_update(t *testing.T) {
	for _, typ := range []EventType{UPDATE_ROWS_EVENTv1, UPDATE_ROWS_EVENTv2} {
		t.Run(typ.String(), func(t *testing.T) {
			tables := registerTable(t, itemsTable(11))
			tme, _ := tables.Get(11)

			w := &writer{}
			rowsHeader(w, typ, 11, 3, allBits(3), bitmap(3, 0, 2))
			writeRow(w, tme, []int{0, 1, 2}, Int{1, 4}, Bytes{[]byte("apple")}, Int{5, 1})
			writeRow(w, tme, []int{0, 2}, Int{1, 4}, Int{6, 1})
			writeRow(w, tme, []int{0, 1, 2}, Int{2, 4}, nil, Int{0, 1})
			writeRow(w, tme, []int{0, 2}, Int{2, 4}, nil)

			e, err := DecodeRows(typ, w.Bytes(), tables)
			require.NoError(t, err)
			require.Len(t, e.Rows, 2)
			require.Len(t, e.AfterRows, len(e.Rows))
			assert.Equal(t, RowImage{Int{1, 4}, Bytes{[]byte("apple")}, Int{5, 1}}, e.Rows[0])
			assert.Equal(t, RowImage{Int{1, 4}, Int{6, 1}}, e.AfterRows[0])
			assert.Equal(t, RowImage{Int{2, 4}, nil}, e.AfterRows[1])
			assert.Len(t, e.AfterColumns(), 2)
			assert.Equal(t, 2, e.AfterColumns()[1].Ordinal)
		})
	}
}

func TestDecodeRows_updateV0(t *testing.T) {
	tables := registerTable(t, itemsTable(12))
	tme, _ := tables.Get(12)

	w := &writer{}
	rowsHeader(w, UPDATE_ROWS_EVENTv0, 12, 3, allBits(3))
	writeRow(w, tme, []int{0, 1, 2}, Int{1, 4}, nil, nil)
	writeRow(w, tme, []int{0, 1, 2}, Int{1, 4}, Bytes{[]byte("x")}, nil)

	e, err := DecodeRows(UPDATE_ROWS_EVENTv0, w.Bytes(), tables)
	require.NoError(t, err)
	assert.Len(t, e.Rows, 2)
	assert.Nil(t, e.AfterRows)
	assert.Nil(t, e.ColumnsPresentAfter)
}

func TestDecodeRows_delete(t *testing.T) {
	tables := registerTable(t, itemsTable(13))
	tme, _ := tables.Get(13)

	w := &writer{}
	rowsHeader(w, DELETE_ROWS_EVENTv1, 13, 3, bitmap(3, 0))
	writeRow(w, tme, []int{0}, Int{-7, 4})

	e, err := DecodeRows(DELETE_ROWS_EVENTv1, w.Bytes(), tables)
	require.NoError(t, err)
	assert.Equal(t, []RowImage{{Int{-7, 4}}}, e.Rows)
}

func TestDecodeRows_extraData(t *testing.T) {
	tables := registerTable(t, itemsTable(14))
	tme, _ := tables.Get(14)

	w := &writer{}
	w.int6(14)
	w.int2(0)
	w.int2(2 + 3)
	w.bytes([]byte{0x00, 0x01, 0x02})
	w.intN(3)
	w.bytes(allBits(3))
	writeRow(w, tme, []int{0, 1, 2}, Int{1, 4}, nil, nil)

	e, err := DecodeRows(WRITE_ROWS_EVENTv2, w.Bytes(), tables)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, e.ExtraData)
	assert.Len(t, e.Rows, 1)
}

func TestDecodeRows_missingTableMap(t *testing.T) {
	w := &writer{}
	rowsHeader(w, WRITE_ROWS_EVENTv2, 99, 3, allBits(3))
	w.bytes([]byte{0x00, 1, 0, 0, 0, 0, 1})

	r := newReader(w.Bytes())
	_, err := decodeRows(r, WRITE_ROWS_EVENTv2, nil, NewTableMaps(), false)
	require.Error(t, err)
	assert.True(t, ErrMissingTableMap.Is(err), "%v", err)
	assert.Equal(t, 6, r.off)

	_, err = DecodeRows(WRITE_ROWS_EVENTv2, w.Bytes(), nil)
	assert.True(t, ErrMissingTableMap.Is(err))
}

func TestDecodeRows_dummyEvent(t *testing.T) {
	w := &writer{}
	w.int6(dummyTableID)
	w.int2(1)
	w.int2(2)
	w.intN(0)

	e, err := DecodeRows(WRITE_ROWS_EVENTv2, w.Bytes(), NewTableMaps())
	require.NoError(t, err)
	assert.Equal(t, uint64(dummyTableID), e.TableID)
	assert.Equal(t, uint16(1), e.Flags)
	assert.Nil(t, e.TableMap)
	assert.Empty(t, e.Rows)
	assert.Nil(t, e.Columns())
}

func TestDecodeRows_columnCount(t *testing.T) {
	tables := registerTable(t, itemsTable(15))
	tme, _ := tables.Get(15)

	fewer := &writer{}
	rowsHeader(fewer, WRITE_ROWS_EVENTv2, 15, 2, allBits(2))
	writeRow(fewer, tme, []int{0, 1}, Int{1, 4}, Bytes{[]byte("a")})

	more := &writer{}
	rowsHeader(more, WRITE_ROWS_EVENTv2, 15, 4, allBits(4))
	more.bytes([]byte{0x0e, 1, 0, 0, 0})

	_, err := DecodeRows(WRITE_ROWS_EVENTv2, fewer.Bytes(), tables)
	assert.True(t, ErrMalformedEvent.Is(err), "%v", err)

	_, err = DecodeRows(WRITE_ROWS_EVENTv2, more.Bytes(), tables)
	assert.True(t, ErrMalformedEvent.Is(err), "%v", err)

	e, err := decodeRows(newReader(fewer.Bytes()), WRITE_ROWS_EVENTv2, nil, tables, true)
	require.NoError(t, err)
	assert.Equal(t, []RowImage{{Int{1, 4}, Bytes{[]byte("a")}}}, e.Rows)

	_, err = decodeRows(newReader(more.Bytes()), WRITE_ROWS_EVENTv2, nil, tables, true)
	assert.True(t, ErrMalformedEvent.Is(err), "%v", err)
}

func TestDecodeRows_malformed(t *testing.T) {
	tables := registerTable(t, itemsTable(16))
	tme, _ := tables.Get(16)

	w := &writer{}
	rowsHeader(w, WRITE_ROWS_EVENTv2, 16, 3, allBits(3))
	writeRow(w, tme, []int{0, 1, 2}, Int{1, 4}, Bytes{[]byte("apple")}, Int{5, 1})
	full := w.Bytes()

	empty := &writer{}
	rowsHeader(empty, WRITE_ROWS_EVENTv2, 16, 3, bitmap(3))
	empty.int1(0)

	badExtra := &writer{}
	badExtra.int6(16)
	badExtra.int2(0)
	badExtra.int2(1)

	testCases := map[string][]byte{
		"truncatedValue":  full[:len(full)-1],
		"truncatedBitmap": full[:10],
		"noColumns":       empty.Bytes(),
		"extraLength":     badExtra.Bytes(),
	}
	for name, payload := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRows(WRITE_ROWS_EVENTv2, payload, tables)
			require.Error(t, err)
			assert.True(t, ErrMalformedEvent.Is(err), "%v", err)
		})
	}
}

func TestRowsQueryEvent(t *testing.T) {
	e := &RowsQueryEvent{}
	require.NoError(t, e.decode(newReader(append([]byte{5}, "BEGIN"...))))
	assert.Equal(t, "BEGIN", e.Query)
}
