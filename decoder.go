package binlog

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// Decoder decodes the events of one binlog stream in log order.
//
// It owns the stream state: the format description event, which decides
// the checksum trailer of every later event, and the table maps that rows
// events are decoded against. Use one Decoder per stream. A Decoder is not
// safe for concurrent use.
type Decoder struct {
	opts   Options
	log    *logrus.Entry
	fde    *FormatDescriptionEvent
	tables *TableMaps
	zstd   *zstd.Decoder
}

func NewDecoder(opts Options) *Decoder {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Decoder{
		opts:   opts,
		log:    log,
		tables: NewTableMaps(),
	}
}

// Format returns the format description event of the stream, nil if none
// was decoded yet.
func (d *Decoder) Format() *FormatDescriptionEvent {
	return d.fde
}

// Tables returns the table maps of the stream.
func (d *Decoder) Tables() *TableMaps {
	return d.tables
}

// Reset forgets the format description event and all table maps, as
// needed when the stream is reopened.
func (d *Decoder) Reset() {
	d.fde = nil
	d.tables.Reset()
}

// Close releases the resources of the decoder.
func (d *Decoder) Close() {
	if d.zstd != nil {
		d.zstd.Close()
		d.zstd = nil
	}
}

// Decode decodes one complete event: common header, body and checksum
// trailer if any. data must hold at least the number of bytes given by the
// header's EventSize; extra bytes are ignored.
func (d *Decoder) Decode(data []byte) (Event, error) {
	e, err := d.decode(data, true)
	if err != nil {
		d.opts.Metrics.observeError(err)
		return e, err
	}
	d.opts.Metrics.observe(e)
	return e, nil
}

func (d *Decoder) decode(data []byte, checksummed bool) (Event, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Event{}, err
	}
	e := Event{Header: h}
	if h.EventSize < EventHeaderSize {
		return e, ErrMalformedEvent.New("event size smaller than header")
	}
	if uint64(len(data)) < uint64(h.EventSize) {
		return e, ErrMalformedEvent.New("truncated event")
	}
	data = data[:h.EventSize]

	if h.EventType == FORMAT_DESCRIPTION_EVENT {
		fde, err := DecodeFormatDescription(data[EventHeaderSize:])
		if err != nil {
			return e, err
		}
		if fde.ChecksumType == CHECKSUM_CRC32 && d.opts.VerifyChecksum {
			if err := verifyChecksum(data); err != nil {
				return e, err
			}
		}
		d.fde = fde
		d.log.WithFields(logrus.Fields{
			"serverVersion": fde.Version(),
			"binlogVersion": fde.BinlogVersion,
			"checksum":      fde.ChecksumType,
		}).Debug("binlog: format description")
		e.Data = fde
		return e, nil
	}

	body := data[EventHeaderSize:]
	if checksummed && d.fde != nil && d.fde.ChecksumLength > 0 {
		n := d.fde.ChecksumLength
		if len(body) < n {
			return e, ErrChecksumLengthMismatch.New(len(body), n)
		}
		if d.opts.VerifyChecksum {
			if err := verifyChecksum(data); err != nil {
				return e, err
			}
		}
		body = body[:len(body)-n]
	}

	e.Data, err = d.decodeBody(h, newReader(body))
	if err != nil {
		return e, err
	}
	if d.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		d.log.WithFields(logrus.Fields{
			"type": h.EventType,
			"pos":  h.NextPos,
			"size": h.EventSize,
		}).Trace("binlog: event")
	}
	return e, nil
}

func verifyChecksum(data []byte) error {
	n := len(data) - 4
	if n < EventHeaderSize {
		return ErrChecksumLengthMismatch.New(len(data)-EventHeaderSize, 4)
	}
	want := binary.LittleEndian.Uint32(data[n:])
	if got := crc32.ChecksumIEEE(data[:n]); got != want {
		return ErrChecksumMismatch.New(got, want)
	}
	return nil
}

func (d *Decoder) decodeBody(h EventHeader, r *reader) (interface{}, error) {
	type decoder interface {
		decode(r *reader) error
	}
	var v decoder
	switch typ := h.EventType; typ {
	case TABLE_MAP_EVENT:
		tme, err := d.decodeTableMap(r)
		if err != nil {
			return nil, err
		}
		return tme, nil
	case WRITE_ROWS_EVENTv0, WRITE_ROWS_EVENTv1, WRITE_ROWS_EVENTv2,
		UPDATE_ROWS_EVENTv0, UPDATE_ROWS_EVENTv1, UPDATE_ROWS_EVENTv2,
		DELETE_ROWS_EVENTv0, DELETE_ROWS_EVENTv1, DELETE_ROWS_EVENTv2:
		re, err := decodeRows(r, typ, d.fde, d.tables, d.opts.LenientColumnCount)
		if err != nil {
			return nil, err
		}
		return re, nil
	case TRANSACTION_PAYLOAD_EVENT:
		tpe, err := d.decodeTransactionPayload(r)
		if err != nil {
			return nil, err
		}
		return tpe, nil
	case STOP_EVENT:
		return &StopEvent{}, nil
	case ROTATE_EVENT:
		v = &RotateEvent{}
	case QUERY_EVENT:
		v = &QueryEvent{}
	case XID_EVENT:
		v = &XidEvent{}
	case INTVAR_EVENT:
		v = &IntVarEvent{}
	case RAND_EVENT:
		v = &RandEvent{}
	case USER_VAR_EVENT:
		v = &UserVarEvent{}
	case INCIDENT_EVENT:
		v = &IncidentEvent{}
	case HEARTBEAT_EVENT:
		v = &HeartbeatEvent{}
	case ROWS_QUERY_EVENT:
		v = &RowsQueryEvent{}
	case GTID_EVENT, ANONYMOUS_GTID_EVENT:
		v = &GTIDEvent{}
	case PREVIOUS_GTIDS_EVENT:
		v = &PreviousGTIDsEvent{}
	default:
		d.log.WithFields(logrus.Fields{
			"type": typ,
			"pos":  h.NextPos,
		}).Warn("binlog: skipping event")
		return &UnknownEvent{Type: typ, Data: r.bytesEOF()}, r.err
	}
	if err := v.decode(r); err != nil {
		return nil, err
	}
	return v, nil
}

func (d *Decoder) decodeTableMap(r *reader) (*TableMapEvent, error) {
	tme := &TableMapEvent{}
	if err := tme.decode(r, d.fde); err != nil {
		return nil, err
	}
	if d.opts.OnTableMap != nil {
		if err := d.opts.OnTableMap(tme); err != nil {
			return nil, err
		}
	}
	d.tables.Put(tme)
	d.log.WithFields(logrus.Fields{
		"tableID": tme.TableID,
		"schema":  tme.SchemaName,
		"table":   tme.TableName,
		"columns": len(tme.Columns),
	}).Debug("binlog: table map")
	return tme, nil
}
