package binlog

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// GTIDEvent precedes the events of each transaction when gtid_mode is ON.
// ANONYMOUS_GTID_EVENT has the same layout with a zero SID.
//
// https://dev.mysql.com/doc/dev/mysql-server/latest/classbinary__log_1_1Gtid__event.html
type GTIDEvent struct {
	CommitFlag     bool
	SID            uuid.UUID
	GNO            int64
	LastCommitted  int64
	SequenceNumber int64

	// commit timestamps are in microseconds since the epoch
	ImmediateCommitTimestamp uint64
	OriginalCommitTimestamp  uint64
	TransactionLength        uint64
	ImmediateServerVersion   uint32
	OriginalServerVersion    uint32
}

const logicalTimestampTypeCode = 2

func (e *GTIDEvent) decode(r *reader) error {
	e.CommitFlag = r.int1() == 1
	sid := r.bytesInternal(16)
	if r.err != nil {
		return r.err
	}
	var err error
	if e.SID, err = uuid.FromBytes(sid); err != nil {
		return r.fail("gtid sid: %v", err)
	}
	e.GNO = int64(r.int8())
	if !r.more() {
		return r.err
	}
	if r.int1() == logicalTimestampTypeCode {
		e.LastCommitted = int64(r.int8())
		e.SequenceNumber = int64(r.int8())
	}
	if r.remaining() >= 7 {
		const originalFollows = 1 << 55
		e.ImmediateCommitTimestamp = r.intFixed(7)
		e.OriginalCommitTimestamp = e.ImmediateCommitTimestamp
		if e.ImmediateCommitTimestamp&originalFollows != 0 {
			e.ImmediateCommitTimestamp &^= originalFollows
			e.OriginalCommitTimestamp = r.intFixed(7)
		}
	}
	if r.more() {
		e.TransactionLength = r.intN()
	}
	if r.remaining() >= 4 {
		const originalFollows = 1 << 31
		e.ImmediateServerVersion = r.int4()
		e.OriginalServerVersion = e.ImmediateServerVersion
		if e.ImmediateServerVersion&originalFollows != 0 {
			e.ImmediateServerVersion &^= originalFollows
			e.OriginalServerVersion = r.int4()
		}
	}
	return r.err
}

// GTID returns the global transaction identifier as SID:GNO.
func (e *GTIDEvent) GTID() string {
	return e.SID.String() + ":" + strconv.FormatInt(e.GNO, 10)
}

// PreviousGTIDsEvent is written at the start of each binlog file and
// holds the set of transactions of all previous files.
type PreviousGTIDsEvent struct {
	Sets []GTIDSet
}

// GTIDSet is the executed transactions of one source server.
type GTIDSet struct {
	SID       uuid.UUID
	Intervals []GTIDInterval
}

// GTIDInterval is the half-open range [Start, End) of transaction numbers.
type GTIDInterval struct {
	Start, End int64
}

func (e *PreviousGTIDsEvent) decode(r *reader) error {
	n := r.int8()
	if r.err != nil {
		return r.err
	}
	if n > uint64(r.remaining()/24) {
		return r.fail("%d gtid sets exceed remaining %d bytes", n, r.remaining())
	}
	e.Sets = make([]GTIDSet, n)
	for i := range e.Sets {
		sid := r.bytesInternal(16)
		m := r.int8()
		if r.err != nil {
			return r.err
		}
		if m > uint64(r.remaining()/16) {
			return r.fail("%d gtid intervals exceed remaining %d bytes", m, r.remaining())
		}
		e.Sets[i].SID, _ = uuid.FromBytes(sid)
		e.Sets[i].Intervals = make([]GTIDInterval, m)
		for j := range e.Sets[i].Intervals {
			e.Sets[i].Intervals[j] = GTIDInterval{Start: int64(r.int8()), End: int64(r.int8())}
		}
	}
	return r.err
}

func (s GTIDSet) String() string {
	var b strings.Builder
	b.WriteString(s.SID.String())
	for _, in := range s.Intervals {
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(in.Start, 10))
		if in.End-1 > in.Start {
			b.WriteByte('-')
			b.WriteString(strconv.FormatInt(in.End-1, 10))
		}
	}
	return b.String()
}

func (e *PreviousGTIDsEvent) String() string {
	sets := make([]string, len(e.Sets))
	for i, s := range e.Sets {
		sets[i] = s.String()
	}
	return strings.Join(sets, ",")
}
