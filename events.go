package binlog

import (
	"strings"
)

// ChecksumType is the checksum algorithm announced by the format description event.
type ChecksumType uint8

const (
	CHECKSUM_OFF   ChecksumType = 0
	CHECKSUM_CRC32 ChecksumType = 1
)

const (
	fdeFixedLength      = 2 + 50 + 4 + 1 // version, server version, timestamp, header length
	checksumTrailerSize = 1 + 4          // algorithm id, crc32
)

// FormatDescriptionEvent is written to the beginning of the each binary log file.
// This event is used as of MySQL 5.0; it supersedes START_EVENT_V3.
//
// https://dev.mysql.com/doc/internals/en/format-description-event.html
type FormatDescriptionEvent struct {
	BinlogVersion uint16
	// ServerVersion is the fixed width field as written, NUL padding included.
	// Use Version for the trimmed value.
	ServerVersion          string
	CreateTimestamp        uint32
	EventHeaderLength      uint8
	EventTypeHeaderLengths []byte
	ChecksumType           ChecksumType
	// ChecksumLength is the number of trailing bytes to strip from every
	// later event of the stream: 4 for CRC32, else 0.
	ChecksumLength int
}

// DecodeFormatDescription decodes the body of a FORMAT_DESCRIPTION_EVENT,
// that is the event bytes following the common header, checksum included.
func DecodeFormatDescription(payload []byte) (*FormatDescriptionEvent, error) {
	e := &FormatDescriptionEvent{}
	if err := e.decode(newReader(payload)); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *FormatDescriptionEvent) decode(r *reader) error {
	e.BinlogVersion = r.int2()
	e.ServerVersion = r.string(50)
	e.CreateTimestamp = r.int4()
	e.EventHeaderLength = r.int1()
	lengths := r.bytesEOF()
	if r.err != nil {
		return r.err
	}

	// The post header of this event includes the header lengths array, so
	// whatever follows its own post header length is the checksum trailer.
	// Servers before 5.6.1 never write one.
	if len(lengths) >= int(FORMAT_DESCRIPTION_EVENT) && e.checksumCapable() {
		own := int(lengths[FORMAT_DESCRIPTION_EVENT-1])
		if own >= fdeFixedLength && fdeFixedLength+len(lengths)-own == checksumTrailerSize {
			e.ChecksumType = ChecksumType(lengths[len(lengths)-checksumTrailerSize])
			lengths = lengths[:len(lengths)-checksumTrailerSize]
		}
	}
	if e.ChecksumType == CHECKSUM_CRC32 {
		e.ChecksumLength = 4
	}
	e.EventTypeHeaderLengths = lengths
	return nil
}

// Version returns ServerVersion without its NUL padding.
func (e *FormatDescriptionEvent) Version() string {
	return strings.TrimRight(e.ServerVersion, "\x00")
}

func (e *FormatDescriptionEvent) checksumCapable() bool {
	sv, err := newServerVersion(e.Version())
	if err != nil {
		return true
	}
	return !sv.lt(serverVersion{5, 6, 1})
}

func (e *FormatDescriptionEvent) postHeaderLength(typ EventType, def int) int {
	if typ > 0 && len(e.EventTypeHeaderLengths) >= int(typ) {
		return int(e.EventTypeHeaderLengths[typ-1])
	}
	return def
}

// tableIDLength returns the width of the table id in table map and rows
// events of type typ. Servers whose post header for typ is 6 bytes long
// write 4-byte table ids. A nil e means a current server.
func (e *FormatDescriptionEvent) tableIDLength(typ EventType) int {
	if e != nil && e.postHeaderLength(typ, 8) == 6 {
		return 4
	}
	return 6
}

// RotateEvent is written when mysqld switches to a new binary log file.
// This occurs when someone issues a FLUSH LOGS statement or
// the current binary log file becomes too large.
// The maximum size is determined by max_binlog_size.
//
// https://dev.mysql.com/doc/internals/en/rotate-event.html
type RotateEvent struct {
	Position   uint64
	NextBinlog string
}

func (e *RotateEvent) decode(r *reader) error {
	e.Position = r.int8()
	e.NextBinlog = r.stringEOF()
	return r.err
}

// QueryEvent is written when an updating statement is done.
// The query event is used to send text query right the binlog.
//
// https://dev.mysql.com/doc/internals/en/query-event.html
type QueryEvent struct {
	SlaveProxyID  uint32
	ExecutionTime uint32
	ErrorCode     uint16
	StatusVars    []byte
	Schema        string
	Query         string
}

func (e *QueryEvent) decode(r *reader) error {
	e.SlaveProxyID = r.int4()
	e.ExecutionTime = r.int4()
	schemaLen := r.int1()
	e.ErrorCode = r.int2()
	statusVarsLen := r.int2()
	if r.err != nil {
		return r.err
	}
	e.StatusVars = r.bytes(int(statusVarsLen))
	e.Schema = r.string(int(schemaLen))
	r.skip(1)
	e.Query = r.stringEOF()
	return r.err
}

// XidEvent is generated for a commit of a transaction that modifies
// one or more tables of an XA-capable storage engine.
//
// https://dev.mysql.com/doc/internals/en/xid-event.html
type XidEvent struct {
	XID uint64
}

func (e *XidEvent) decode(r *reader) error {
	e.XID = r.int8()
	return r.err
}

// IncidentEvent used to log an out of the ordinary event that
// occurred on the master. It notifies the slave that something
// happened on the master that might cause data to be in an
// inconsistent state.
//
// https://dev.mysql.com/doc/internals/en/incident-event.html
type IncidentEvent struct {
	Type    uint16
	Message string
}

func (e *IncidentEvent) decode(r *reader) error {
	e.Type = r.int2()
	size := r.int1()
	e.Message = r.string(int(size))
	return r.err
}

// RandEvent is written every time a statement uses the RAND() function.
// It precedes other events for the statement. Indicates the seed values
// to use for generating a random number with RAND() in the next statement.
// This is written only before a QUERY_EVENT and is not used with row-based logging.
//
// https://dev.mysql.com/doc/internals/en/rand-event.html
type RandEvent struct {
	Seed1 uint64
	Seed2 uint64
}

func (e *RandEvent) decode(r *reader) error {
	e.Seed1 = r.int8()
	e.Seed2 = r.int8()
	return r.err
}

// StopEvent signals last event in the file.
//
// https://dev.mysql.com/doc/internals/en/stop-event.html
type StopEvent struct{}

// IntVarEvent written every time a statement uses an AUTO_INCREMENT column
// or the LAST_INSERT_ID() function. It precedes other events for the statement.
// This is written only before a QUERY_EVENT and is not used with row-based logging.
//
// https://dev.mysql.com/doc/internals/en/intvar-event.html
type IntVarEvent struct {
	// Type indicates subtype.
	//
	// INSERT_ID_EVENT(0x02) indicates the value to use for an AUTO_INCREMENT column in the next statement.
	//
	// LAST_INSERT_ID_EVENT(0x01) indicates the value to use for the LAST_INSERT_ID() function in the next statement.
	Type  uint8
	Value uint64
}

func (e *IntVarEvent) decode(r *reader) error {
	e.Type = r.int1()
	e.Value = r.int8()
	return r.err
}

// UserVarEvent is written every time a statement uses a user variable.
// It precedes other events for the statement. Indicates the value to
// use for the user variable in the next statement. This is written only
// before a QUERY_EVENT and is not used with row-based logging.
//
// https://dev.mysql.com/doc/internals/en/user-var-event.html
type UserVarEvent struct {
	Name     string
	Null     bool
	Type     uint8
	Charset  uint32
	Value    []byte
	Unsigned bool
}

func (e *UserVarEvent) decode(r *reader) error {
	nameLen := r.int4()
	if r.err != nil {
		return r.err
	}
	e.Name = r.string(int(nameLen))
	e.Null = r.int1() == 1
	if r.err != nil || e.Null {
		return r.err
	}
	e.Type = r.int1()
	e.Charset = r.int4()
	valueLen := r.int4()
	if r.err != nil {
		return r.err
	}
	e.Value = r.bytes(int(valueLen))
	if r.more() {
		e.Unsigned = r.int1()&0x01 != 0
	}
	return r.err
}

// HeartbeatEvent sent by a master to a slave to let the slave
// know that the master is still alive. Not written to log files.
//
// https://dev.mysql.com/doc/internals/en/heartbeat-event.html
type HeartbeatEvent struct {
	LogFile string
}

func (e *HeartbeatEvent) decode(r *reader) error {
	e.LogFile = r.stringEOF()
	return r.err
}

// UnknownEvent holds the body of an event whose type is not decoded
// by this package.
type UnknownEvent struct {
	Type EventType
	Data []byte
}
