package stream

import (
	"bufio"
	"io"
	"os"

	"github.com/robot-dreams/ztopk"
	"github.com/robot-dreams/ztopk/encoding"
)

type write struct {
	w      *bufio.Writer
	enc    io.WriteCloser
	path   string
	closed bool
	c      io.Closer
}

var _ ztopk.Sink = (*write)(nil)

func NewWrite(path string, compression Compression) (*write, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, ztopk.NewIOError("create", path, err)
	}
	enc, err := newEncoder(f, compression)
	if err != nil {
		_ = f.Close()
		return nil, ztopk.NewIOError("create", path, err)
	}
	return &write{
		w:    bufio.NewWriter(enc),
		enc:  enc,
		path: path,
		c:    f,
	}, nil
}

func (w *write) WriteValue(v int64) error {
	err := encoding.WriteValue(w.w, v)
	if err != nil {
		return ztopk.NewIOError("write", w.path, err)
	}
	return nil
}

func (w *write) Close() error {
	if w.closed {
		return nil
	}
	defer func() {
		w.closed = true
	}()
	err := w.w.Flush()
	if err != nil {
		_ = w.c.Close()
		return ztopk.NewIOError("flush", w.path, err)
	}
	err = w.enc.Close()
	if err != nil {
		_ = w.c.Close()
		return ztopk.NewIOError("flush", w.path, err)
	}
	err = w.c.Close()
	if err != nil {
		return ztopk.NewIOError("close", w.path, err)
	}
	return nil
}

// WriteAll writes values to a new file at path.
func WriteAll(path string, compression Compression, values []int64) error {
	w, err := NewWrite(path, compression)
	if err != nil {
		return err
	}
	for _, v := range values {
		err = w.WriteValue(v)
		if err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
