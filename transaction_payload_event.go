package binlog

import (
	"github.com/klauspost/compress/zstd"
)

// TransactionPayloadEvent holds a whole transaction, compressed when
// binlog_transaction_compression is ON (MySQL 8.0.20 and later). Events
// holds the decoded events of the transaction.
//
// https://dev.mysql.com/doc/dev/mysql-server/latest/classbinary__log_1_1Transaction__payload__event.html
type TransactionPayloadEvent struct {
	PayloadSize      uint64
	CompressionType  uint64
	UncompressedSize uint64
	Events           []Event
}

// payload header fields
const (
	payloadHeaderEnd = iota
	payloadSizeField
	payloadCompressionTypeField
	payloadUncompressedSizeField
)

const (
	compressionZstd = 0
	compressionNone = 255
)

func (e *TransactionPayloadEvent) decodeHeader(r *reader) error {
	for {
		typ := r.intN()
		if r.err != nil {
			return r.err
		}
		if typ == payloadHeaderEnd {
			return nil
		}
		field := newReader(r.bytesN())
		if r.err != nil {
			return r.err
		}
		switch typ {
		case payloadSizeField:
			e.PayloadSize = field.intN()
		case payloadCompressionTypeField:
			e.CompressionType = field.intN()
		case payloadUncompressedSizeField:
			e.UncompressedSize = field.intN()
		}
		if field.err != nil {
			return r.fail("transaction payload header field %d: %v", typ, field.err)
		}
	}
}

func (d *Decoder) decodeTransactionPayload(r *reader) (*TransactionPayloadEvent, error) {
	e := &TransactionPayloadEvent{}
	if err := e.decodeHeader(r); err != nil {
		return nil, err
	}
	payload := r.bytesInternal(r.remaining())
	if e.PayloadSize != uint64(len(payload)) {
		return nil, r.fail("transaction payload of %d bytes, header says %d", len(payload), e.PayloadSize)
	}

	var events []byte
	switch e.CompressionType {
	case compressionNone:
		events = payload
	case compressionZstd:
		if e.UncompressedSize > maxEventSize {
			return nil, r.fail("transaction payload uncompressed size %d exceeds %d", e.UncompressedSize, maxEventSize)
		}
		if d.zstd == nil {
			dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxEventSize))
			if err != nil {
				return nil, err
			}
			d.zstd = dec
		}
		var err error
		events, err = d.zstd.DecodeAll(payload, make([]byte, 0, e.UncompressedSize))
		if err != nil {
			return nil, ErrMalformedEvent.New("transaction payload: " + err.Error())
		}
	default:
		return nil, ErrUnsupportedCompression.New(e.CompressionType)
	}

	// events inside the payload carry no checksum
	for len(events) > 0 {
		h, err := DecodeHeader(events)
		if err != nil {
			return nil, err
		}
		if h.EventSize < EventHeaderSize || uint64(h.EventSize) > uint64(len(events)) {
			return nil, ErrMalformedEvent.New("transaction payload: truncated event")
		}
		ev, err := d.decode(events[:h.EventSize], false)
		if err != nil {
			return nil, err
		}
		d.opts.Metrics.observe(ev)
		e.Events = append(e.Events, ev)
		events = events[h.EventSize:]
	}
	return e, nil
}
