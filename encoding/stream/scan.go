package stream

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/robot-dreams/ztopk"
	"github.com/robot-dreams/ztopk/encoding"
)

type scan struct {
	s      *bufio.Scanner
	source string
	line   uint64
	done   bool
	closed bool
	// release frees decoder state before c is closed.
	release func()
	c       io.Closer
}

var _ ztopk.Iterator = (*scan)(nil)

// NewScan opens the file at path for reading one value per line.
func NewScan(path string, compression Compression) (*scan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ztopk.NewIOError("open", path, err)
	}
	r, release, err := newDecoder(bufio.NewReader(f), compression)
	if err != nil {
		_ = f.Close()
		return nil, ztopk.NewIOError("open", path, err)
	}
	s := newScan(path, r)
	s.release = release
	s.c = f
	return s, nil
}

// NewReaderScan reads values from r; source names r in errors.  Closing the
// scan doesn't close r.
func NewReaderScan(source string, r io.Reader) *scan {
	return newScan(source, r)
}

func newScan(source string, r io.Reader) *scan {
	return &scan{
		s:      bufio.NewScanner(r),
		source: source,
	}
}

func (s *scan) Next() (int64, error) {
	if s.closed {
		return 0, errors.New("Cannot call Next after scan was closed")
	}
	if s.done {
		return 0, io.EOF
	}
	if !s.s.Scan() {
		s.done = true
		err := s.s.Err()
		if err == nil {
			return 0, io.EOF
		} else if err == bufio.ErrTooLong {
			// No integer is this long.
			return 0, ztopk.NewMalformedInputError(
				s.source, s.line+1, "", err)
		} else {
			return 0, ztopk.NewIOError("read", s.source, err)
		}
	}
	s.line++
	text := s.s.Text()
	v, err := encoding.ParseValue(text)
	if err != nil {
		return 0, ztopk.NewMalformedInputError(s.source, s.line, text, err)
	}
	return v, nil
}

// Line returns the number of records read so far.
func (s *scan) Line() uint64 {
	return s.line
}

func (s *scan) Close() error {
	if s.closed {
		return nil
	}
	defer func() {
		s.closed = true
	}()
	if s.release != nil {
		s.release()
	}
	if s.c == nil {
		return nil
	}
	err := s.c.Close()
	if err != nil {
		return ztopk.NewIOError("close", s.source, err)
	}
	return nil
}
