package binlog

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBinlogFile(t *testing.T, dir, name string, events ...[]byte) {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(fileHeader)
	for _, e := range events {
		buf.Write(e)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

func rotateEvent(next string) []byte {
	w := &writer{}
	w.int8(4)
	w.string(next)
	return eventCRC(ROTATE_EVENT, w.Bytes())
}

func TestLocal(t *testing.T) {
	dir := t.TempDir()
	first := itemsEvents(t, 5)
	second := itemsEvents(t, 6)
	writeBinlogFile(t, dir, "binlog.000001", append([][]byte{fdeEvent()}, append(first, rotateEvent("binlog.000002"))...)...)
	writeBinlogFile(t, dir, "binlog.000002", append([][]byte{fdeEvent()}, second[0])...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "binlog.index"), []byte("./binlog.000001\n./binlog.000002\n"), 0o644))

	logger, hook := test.NewNullLogger()
	l, err := Open(filepath.Join(dir, "binlog.000001"), Options{VerifyChecksum: true, Logger: logrus.NewEntry(logger)})
	require.NoError(t, err)
	defer l.Close()

	var types []EventType
	var files []string
	for {
		e, err := l.NextEvent()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		types = append(types, e.Header.EventType)
		file, pos := l.Location()
		files = append(files, file)
		assert.Equal(t, e.Header.NextPos, pos)
	}
	assert.Equal(t, []EventType{
		FORMAT_DESCRIPTION_EVENT, TABLE_MAP_EVENT, WRITE_ROWS_EVENTv2, XID_EVENT, ROTATE_EVENT,
		FORMAT_DESCRIPTION_EVENT, TABLE_MAP_EVENT,
	}, types)
	assert.Equal(t, "binlog.000002", files[len(files)-1])
	assert.Equal(t, "binlog.000001", files[0])

	// table maps of the first file are gone after the switch
	_, ok := l.Decoder().Tables().Get(5)
	assert.False(t, ok)
	_, ok = l.Decoder().Tables().Get(6)
	assert.True(t, ok)

	var infos []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.InfoLevel {
			infos = append(infos, e)
		}
	}
	require.Len(t, infos, 1)
	assert.Equal(t, "binlog.000002", infos[0].Data["file"])
}

func TestLocal_noIndex(t *testing.T) {
	dir := t.TempDir()
	writeBinlogFile(t, dir, "binlog.000001", fdeEvent())

	l, err := Open(filepath.Join(dir, "binlog.000001"), Options{})
	require.NoError(t, err)
	defer l.Close()
	_, err = l.NextEvent()
	require.NoError(t, err)
	_, err = l.NextEvent()
	assert.Equal(t, io.EOF, err)
	_, err = l.NextEvent()
	assert.Equal(t, io.EOF, err)
}

func TestLocal_missingNextFile(t *testing.T) {
	dir := t.TempDir()
	writeBinlogFile(t, dir, "binlog.000001", fdeEvent())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "binlog.index"), []byte("binlog.000001\nbinlog.000002\n"), 0o644))

	l, err := Open(filepath.Join(dir, "binlog.000001"), Options{})
	require.NoError(t, err)
	defer l.Close()
	_, err = l.NextEvent()
	require.NoError(t, err)
	_, err = l.NextEvent()
	assert.Equal(t, io.EOF, err)
}

func TestLocal_truncated(t *testing.T) {
	dir := t.TempDir()
	fde := fdeEvent()
	writeBinlogFile(t, dir, "binlog.000001", fde[:len(fde)-1])

	l, err := Open(filepath.Join(dir, "binlog.000001"), Options{})
	require.NoError(t, err)
	defer l.Close()
	_, err = l.NextEvent()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestOpen_invalidFileHeader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short"), []byte{0xfe, 'b'}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"), []byte("\xfebig"), 0o644))

	for _, name := range []string{"short", "bad"} {
		_, err := Open(filepath.Join(dir, name), Options{})
		require.Error(t, err)
		assert.True(t, ErrInvalidFileHeader.Is(err), "%v", err)
	}

	_, err := Open(filepath.Join(dir, "missing"), Options{})
	assert.True(t, os.IsNotExist(err))
}

func TestNextBinlogFile(t *testing.T) {
	dir := t.TempDir()
	next, err := nextBinlogFile(dir, "binlog.000001")
	require.NoError(t, err)
	assert.Equal(t, "", next)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "binlog.index"), []byte("/var/lib/mysql/binlog.000001\n/var/lib/mysql/binlog.000002\n"), 0o644))
	next, err = nextBinlogFile(dir, "binlog.000001")
	require.NoError(t, err)
	assert.Equal(t, "binlog.000002", next)
	next, err = nextBinlogFile(dir, "binlog.000002")
	require.NoError(t, err)
	assert.Equal(t, "", next)
}

func TestIndexFile(t *testing.T) {
	assert.Equal(t, "binlog.index", indexFile("binlog.000001"))
	assert.Equal(t, "mysql-bin.index", indexFile("mysql-bin.000042"))
	assert.Equal(t, "host-relay.bin.index", indexFile("host-relay.bin.000003"))
}

func TestLocal_namedIndex(t *testing.T) {
	dir := t.TempDir()
	writeBinlogFile(t, dir, "mysql-bin.000007", fdeEvent())
	writeBinlogFile(t, dir, "mysql-bin.000008", fdeEvent(), itemsEvents(t, 9)[0])
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mysql-bin.index"), []byte("./mysql-bin.000007\n./mysql-bin.000008\n"), 0o644))
	// an index of another log in the same directory is ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "binlog.index"), []byte("mysql-bin.000007\n"), 0o644))

	l, err := Open(filepath.Join(dir, "mysql-bin.000007"), Options{})
	require.NoError(t, err)
	defer l.Close()

	var types []EventType
	for {
		e, err := l.NextEvent()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		types = append(types, e.Header.EventType)
	}
	assert.Equal(t, []EventType{FORMAT_DESCRIPTION_EVENT, FORMAT_DESCRIPTION_EVENT, TABLE_MAP_EVENT}, types)
	file, _ := l.Location()
	assert.Equal(t, "mysql-bin.000008", file)
}
