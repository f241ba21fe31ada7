package binlog

import (
	"bytes"
	"fmt"
)

// reader is a bounds-checked cursor over the bytes of one event.
//
// The first failed read records ErrMalformedEvent in err; every later read
// is a no-op returning the zero value, so callers check err once after a
// group of reads.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) fail(format string, args ...interface{}) error {
	if r.err == nil {
		r.err = ErrMalformedEvent.New(fmt.Sprintf(format, args...))
	}
	return r.err
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) buffer() []byte {
	return r.buf[r.off:]
}

func (r *reader) ensure(n int) error {
	if r.err != nil {
		return r.err
	}
	if n < 0 || n > r.remaining() {
		return r.fail("need %d bytes at offset %d, only %d left", n, r.off, r.remaining())
	}
	return nil
}

func (r *reader) skip(n int) error {
	if err := r.ensure(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

func (r *reader) more() bool {
	return r.err == nil && r.remaining() > 0
}

// int ---

func (r *reader) int1() byte {
	if err := r.ensure(1); err != nil {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) int2() uint16 {
	return uint16(r.intFixed(2))
}

func (r *reader) int3() uint32 {
	return uint32(r.intFixed(3))
}

func (r *reader) int4() uint32 {
	return uint32(r.intFixed(4))
}

func (r *reader) int5() uint64 {
	return r.intFixed(5)
}

func (r *reader) int6() uint64 {
	return r.intFixed(6)
}

func (r *reader) int8() uint64 {
	return r.intFixed(8)
}

// intFixed reads an n byte little-endian unsigned integer, 1 <= n <= 8.
func (r *reader) intFixed(n int) uint64 {
	if n < 1 || n > 8 {
		r.fail("invalid integer width %d", n)
		return 0
	}
	if err := r.ensure(n); err != nil {
		return 0
	}
	var v uint64
	for i, b := range r.buf[r.off : r.off+n] {
		v |= uint64(b) << (uint(i) * 8)
	}
	r.off += n
	return v
}

// intBig reads an n byte big-endian unsigned integer, 1 <= n <= 8.
func (r *reader) intBig(n int) uint64 {
	if n < 1 || n > 8 {
		r.fail("invalid integer width %d", n)
		return 0
	}
	if err := r.ensure(n); err != nil {
		return 0
	}
	var v uint64
	for _, b := range r.buf[r.off : r.off+n] {
		v = v<<8 | uint64(b)
	}
	r.off += n
	return v
}

func (r *reader) be3() uint32 {
	return uint32(r.intBig(3))
}

func (r *reader) be5() uint64 {
	return r.intBig(5)
}

// intN reads a length-encoded integer.
//
// https://dev.mysql.com/doc/internals/en/integer.html#packet-Protocol::LengthEncodedInteger
func (r *reader) intN() uint64 {
	b := r.int1()
	if r.err != nil {
		return 0
	}
	switch b {
	case 0xfc:
		return uint64(r.int2())
	case 0xfd:
		return uint64(r.int3())
	case 0xfe:
		return r.int8()
	case 0xfb, 0xff:
		r.fail("invalid length-encoded integer prefix 0x%02x", b)
		return 0
	default:
		return uint64(b)
	}
}

// bytes, strings ---

// bytesInternal returns a slice aliasing the event buffer.
func (r *reader) bytesInternal(n int) []byte {
	if err := r.ensure(n); err != nil {
		return nil
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

func (r *reader) bytes(n int) []byte {
	v := r.bytesInternal(n)
	if v == nil {
		return nil
	}
	return append([]byte{}, v...)
}

func (r *reader) string(n int) string {
	return string(r.bytesInternal(n))
}

func (r *reader) stringNull() string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.buffer(), 0)
	if i == -1 {
		r.fail("missing NUL terminator at offset %d", r.off)
		return ""
	}
	v := string(r.buf[r.off : r.off+i])
	r.off += i + 1
	return v
}

func (r *reader) bytesEOF() []byte {
	return r.bytes(r.remaining())
}

func (r *reader) stringEOF() string {
	return r.string(r.remaining())
}

func (r *reader) bytesN() []byte {
	l := r.intN()
	if r.err != nil {
		return nil
	}
	if l > uint64(r.remaining()) {
		r.fail("length %d exceeds remaining %d bytes", l, r.remaining())
		return nil
	}
	return r.bytes(int(l))
}

func (r *reader) stringN() string {
	return string(r.bytesN())
}
