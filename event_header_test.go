package binlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHeader(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x20, 0x00}
	h, err := DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, EventHeader{
		Timestamp: 50462976,
		EventType: UNKNOWN_EVENT,
		ServerID:  1,
		EventSize: 16,
		NextPos:   4,
		Flags:     32,
	}, h)

	w := &writer{}
	h.encode(w)
	assert.Equal(t, data, w.Bytes())
}

func TestDecodeHeader_truncated(t *testing.T) {
	_, err := DecodeHeader(make([]byte, EventHeaderSize-1))
	require.Error(t, err)
	assert.True(t, ErrMalformedEvent.Is(err))
}

func TestEventType(t *testing.T) {
	assert.Equal(t, "tableMap", TABLE_MAP_EVENT.String())
	assert.Equal(t, "0x7f", EventType(0x7f).String())

	for _, typ := range []EventType{WRITE_ROWS_EVENTv0, UPDATE_ROWS_EVENTv1, DELETE_ROWS_EVENTv2} {
		assert.True(t, typ.IsRows(), typ.String())
	}
	assert.True(t, WRITE_ROWS_EVENTv2.IsWriteRows())
	assert.True(t, UPDATE_ROWS_EVENTv0.IsUpdateRows())
	assert.True(t, DELETE_ROWS_EVENTv1.IsDeleteRows())
	assert.False(t, TABLE_MAP_EVENT.IsRows())
	assert.False(t, ROWS_QUERY_EVENT.IsRows())
}
