package binlog

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var fileHeader = []byte{0xfe, 'b', 'i', 'n'}

// Local reads binlog files from a directory. When a file is exhausted it
// continues with the next file listed in the index file of the log, if
// any. The index of mysql-bin.000001 is mysql-bin.index.
type Local struct {
	dir    string
	name   string
	pos    uint32
	file   *os.File
	dec    *Decoder
	stream *Stream
	log    *logrus.Entry
}

func Open(file string, opts Options) (*Local, error) {
	dec := NewDecoder(opts)
	l := &Local{
		dir: filepath.Dir(file),
		dec: dec,
		log: dec.log,
	}
	if err := l.open(filepath.Base(file)); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Local) open(name string) error {
	f, err := openBinlogFile(filepath.Join(l.dir, name))
	if err != nil {
		return err
	}
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file, l.name, l.pos = f, name, uint32(len(fileHeader))
	l.stream = NewStream(bufio.NewReader(f), l.dec)
	return nil
}

// NextEvent returns the next event, io.EOF after the last event of the
// last file.
func (l *Local) NextEvent() (Event, error) {
	for {
		e, err := l.stream.Next()
		if err == io.EOF {
			next, err := nextBinlogFile(l.dir, l.name)
			if err != nil {
				return Event{}, err
			}
			if next == "" {
				return Event{}, io.EOF
			}
			if _, err := os.Stat(filepath.Join(l.dir, next)); os.IsNotExist(err) {
				return Event{}, io.EOF
			}
			if err := l.open(next); err != nil {
				return Event{}, err
			}
			// table ids are valid within one file only
			l.dec.Reset()
			l.log.WithField("file", next).Info("binlog: switched to next file")
			continue
		}
		if err != nil {
			return e, err
		}
		if e.Header.NextPos != 0 {
			l.pos = e.Header.NextPos
		}
		return e, nil
	}
}

// Location returns the current file and the position of the next event.
func (l *Local) Location() (file string, pos uint32) {
	return l.name, l.pos
}

func (l *Local) Decoder() *Decoder {
	return l.dec
}

func (l *Local) Close() error {
	l.dec.Close()
	return l.file.Close()
}

func openBinlogFile(file string) (*os.File, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	header := make([]byte, len(fileHeader))
	if _, err = io.ReadFull(f, header); err != nil || !bytes.Equal(header, fileHeader) {
		_ = f.Close()
		return nil, ErrInvalidFileHeader.New(file)
	}
	return f, nil
}

// indexFile returns the name of the index file of the binlog file name.
func indexFile(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".index"
}

// nextBinlogFile returns the file following name in the index of dir,
// "" if name is the last one or there is no index.
func nextBinlogFile(dir, name string) (string, error) {
	index, err := os.Open(filepath.Join(dir, indexFile(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer index.Close()
	s := bufio.NewScanner(index)
	found := false
	for s.Scan() {
		file := filepath.Base(s.Text())
		if found {
			return file, nil
		}
		found = file == name
	}
	return "", s.Err()
}
