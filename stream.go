package binlog

import (
	"io"
)

const maxEventSize = 1 << 30 // max_allowed_packet upper bound

// Stream reads consecutive events from r and decodes them with its Decoder.
type Stream struct {
	rd  io.Reader
	dec *Decoder
	buf []byte
}

func NewStream(r io.Reader, dec *Decoder) *Stream {
	return &Stream{rd: r, dec: dec, buf: make([]byte, EventHeaderSize, 4096)}
}

// Next returns the next event. It returns io.EOF if r ends at an event
// boundary and io.ErrUnexpectedEOF if it ends inside an event.
func (s *Stream) Next() (Event, error) {
	header := s.buf[:EventHeaderSize]
	if _, err := io.ReadFull(s.rd, header); err != nil {
		return Event{}, err
	}
	h, err := DecodeHeader(header)
	if err != nil {
		return Event{}, err
	}
	if h.EventSize < EventHeaderSize || h.EventSize > maxEventSize {
		return Event{Header: h}, ErrMalformedEvent.New("invalid event size")
	}
	if int(h.EventSize) > cap(s.buf) {
		buf := make([]byte, h.EventSize)
		copy(buf, header)
		s.buf = buf
	}
	event := s.buf[:h.EventSize]
	if _, err := io.ReadFull(s.rd, event[EventHeaderSize:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Event{Header: h}, err
	}
	return s.dec.Decode(event)
}
