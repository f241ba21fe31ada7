package binlog

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

// Decoding errors. Every error returned while decoding an event is of one of
// these kinds; use Kind.Is to classify.
var (
	// ErrMalformedEvent is returned when a read runs past the available
	// bytes or a field holds a value the wire format does not allow.
	ErrMalformedEvent = errors.NewKind("binlog: malformed event: %s")

	// ErrUnsupportedColumnType is returned for column type codes that
	// cannot appear in row-based events or that are not decoded.
	ErrUnsupportedColumnType = errors.NewKind("binlog: unsupported column type 0x%02x")

	// ErrMissingTableMap is returned for a rows event whose table id has no
	// table map registered in the binlog context.
	ErrMissingTableMap = errors.NewKind("binlog: no table map for table id %d")

	// ErrChecksumLengthMismatch is returned when the event body is shorter
	// than the checksum declared by the format description event.
	ErrChecksumLengthMismatch = errors.NewKind("binlog: event body of %d bytes is shorter than checksum length %d")

	// ErrChecksumMismatch is returned when checksum verification is enabled
	// and the CRC32 trailer does not match.
	ErrChecksumMismatch = errors.NewKind("binlog: checksum mismatch: got 0x%08x, want 0x%08x")

	ErrInvalidFileHeader      = errors.NewKind("binlog: %s has invalid file header")
	ErrUnsupportedCompression = errors.NewKind("binlog: unsupported transaction payload compression %d")
)

// errorKind returns a short label for err, used as metrics label.
func errorKind(err error) string {
	switch {
	case ErrMalformedEvent.Is(err):
		return "malformed"
	case ErrUnsupportedColumnType.Is(err):
		return "unsupported_column_type"
	case ErrMissingTableMap.Is(err):
		return "missing_table_map"
	case ErrChecksumLengthMismatch.Is(err):
		return "checksum_length"
	case ErrChecksumMismatch.Is(err):
		return "checksum"
	case ErrUnsupportedCompression.Is(err):
		return "compression"
	}
	return "other"
}
