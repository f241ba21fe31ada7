package binlog

// dummyTableID marks the rows event MySQL writes to close a statement
// without a table.
const dummyTableID = 0x00ffffff

// RowImage holds the values of the present columns of one row, in column
// order. A nil Value is SQL NULL.
type RowImage []Value

// RowsEvent holds the rows of a write, update or delete.
//
// For updates Rows holds the before image and AfterRows the after image
// of each row; the two are paired by index.
//
// https://dev.mysql.com/doc/internals/en/rows-event.html
type RowsEvent struct {
	EventType           EventType
	TableID             uint64
	Flags               uint16
	ExtraData           []byte
	ColumnCount         uint64
	ColumnsPresent      Bitmap
	ColumnsPresentAfter Bitmap
	TableMap            *TableMapEvent
	Rows                []RowImage
	AfterRows           []RowImage
}

// DecodeRows decodes the body of a rows event of type typ written by a
// current server, checksum already stripped, against the table maps
// registered in tables.
func DecodeRows(typ EventType, payload []byte, tables *TableMaps) (*RowsEvent, error) {
	return decodeRows(newReader(payload), typ, nil, tables, false)
}

func decodeRows(r *reader, typ EventType, fde *FormatDescriptionEvent, tables *TableMaps, lenient bool) (*RowsEvent, error) {
	e := &RowsEvent{EventType: typ}
	e.TableID = r.intFixed(fde.tableIDLength(typ))
	if r.err != nil {
		return nil, r.err
	}
	if e.TableID == dummyTableID {
		e.Flags = r.int2()
		return e, r.err
	}
	tme, ok := tables.Get(e.TableID)
	if !ok {
		return nil, ErrMissingTableMap.New(e.TableID)
	}
	e.TableMap = tme

	e.Flags = r.int2()
	switch typ {
	case WRITE_ROWS_EVENTv2, UPDATE_ROWS_EVENTv2, DELETE_ROWS_EVENTv2:
		extraDataLength := r.int2()
		if r.err != nil {
			return nil, r.err
		}
		if extraDataLength < 2 {
			return nil, r.fail("invalid extra data length %d", extraDataLength)
		}
		e.ExtraData = r.bytes(int(extraDataLength - 2))
	}
	e.ColumnCount = r.intN()
	if r.err != nil {
		return nil, r.err
	}
	switch numCol := uint64(len(tme.Columns)); {
	case e.ColumnCount > numCol:
		return nil, r.fail("%d columns in rows event, table map %s has %d", e.ColumnCount, tme, numCol)
	case e.ColumnCount < numCol && !lenient:
		return nil, r.fail("%d columns in rows event, table map %s has %d", e.ColumnCount, tme, numCol)
	}

	e.ColumnsPresent = r.bytes(bitmapSize(int(e.ColumnCount)))
	if e.hasAfterImage() {
		e.ColumnsPresentAfter = r.bytes(bitmapSize(int(e.ColumnCount)))
	}
	if r.err != nil {
		return nil, r.err
	}

	for r.more() {
		off := r.off
		row, err := e.decodeImage(r, e.ColumnsPresent)
		if err != nil {
			return nil, err
		}
		e.Rows = append(e.Rows, row)
		if e.hasAfterImage() {
			row, err := e.decodeImage(r, e.ColumnsPresentAfter)
			if err != nil {
				return nil, err
			}
			e.AfterRows = append(e.AfterRows, row)
		}
		if r.off == off {
			return nil, r.fail("row image without columns")
		}
	}
	return e, r.err
}

func (e *RowsEvent) hasAfterImage() bool {
	return e.EventType == UPDATE_ROWS_EVENTv1 || e.EventType == UPDATE_ROWS_EVENTv2
}

// decodeImage decodes one row image. Its null bitmap covers only the
// columns present in the image.
func (e *RowsEvent) decodeImage(r *reader, present Bitmap) (RowImage, error) {
	numCol := int(e.ColumnCount)
	k := present.Count(numCol)
	null := Bitmap(r.bytesInternal(bitmapSize(k)))
	if r.err != nil {
		return nil, r.err
	}
	row := make(RowImage, 0, k)
	for i := 0; i < numCol; i++ {
		if !present.IsSet(i) {
			continue
		}
		if null.IsSet(len(row)) {
			row = append(row, nil)
			continue
		}
		v, err := decodeValue(r, &e.TableMap.Columns[i])
		if err != nil {
			return nil, err
		}
		row = append(row, v)
	}
	return row, nil
}

func (e *RowsEvent) columns(present Bitmap) []Column {
	if e.TableMap == nil {
		return nil
	}
	var cols []Column
	for i := 0; i < int(e.ColumnCount); i++ {
		if present.IsSet(i) {
			cols = append(cols, e.TableMap.Columns[i])
		}
	}
	return cols
}

// Columns returns the columns of the values of Rows.
func (e *RowsEvent) Columns() []Column {
	return e.columns(e.ColumnsPresent)
}

// AfterColumns returns the columns of the values of AfterRows.
func (e *RowsEvent) AfterColumns() []Column {
	return e.columns(e.ColumnsPresentAfter)
}

// system variable binlog_rows_query_log_events must be ON for this event
// https://dev.mysql.com/doc/refman/5.7/en/replication-options-binary-log.html#sysvar_binlog_rows_query_log_events

type RowsQueryEvent struct {
	Query string
}

func (e *RowsQueryEvent) decode(r *reader) error {
	r.int1() // length ignored
	e.Query = r.stringEOF()
	return r.err
}
