/*
Package binlog decodes MySQL binary log events.

This library is mainly aimed to provide RBR event parsing: table map
events and the row images of write, update and delete rows events, with
every column value decoded according to the column type and metadata
logged in the table map.

A Decoder holds the state of one stream and decodes one complete event at
a time:

	dec := binlog.NewDecoder(binlog.Options{})
	for {
		buf := nextEventBytes() // header, body and checksum of one event
		e, err := dec.Decode(buf)
		if err != nil {
			if binlog.ErrMissingTableMap.Is(err) {
				continue // or abort the stream
			}
			return err
		}
		re, ok := e.Data.(*binlog.RowsEvent)
		if !ok {
			continue
		}
		fmt.Printf("Table: %s.%s\n", re.TableMap.SchemaName, re.TableMap.TableName)
		for i, row := range re.Rows {
			cols := re.Columns()
			for j, v := range row {
				fmt.Printf("col=%s ordinal=%d value=%s\n", cols[j].Name, cols[j].Ordinal, cols[j].ValueLiteral(v))
			}
			if e.Header.EventType.IsUpdateRows() {
				after := re.AfterRows[i]
				_ = after
			}
		}
	}

to read binlog files from a directory:

	bl, err := binlog.Open("/var/lib/mysql/binlog.000001", binlog.Options{})
	if err != nil {
		return err
	}
	defer bl.Close()
	for {
		e, err := bl.NextEvent()
		if err == io.EOF {
			break
		}
		...
	}

for example usage see cmd/binlog/main.go
*/
package binlog
