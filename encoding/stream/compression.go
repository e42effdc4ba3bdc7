package stream

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/robot-dreams/ztopk"
)

type Compression string

const (
	None Compression = "none"
	Zstd Compression = "zstd"
	LZ4  Compression = "lz4"
)

func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case "", None:
		return None, nil
	case Zstd, LZ4:
		return c, nil
	default:
		return "", ztopk.NewConfigurationError(
			"compression", "unknown codec %q (want none, zstd or lz4)", s)
	}
}

// Extension is appended to shard file names so that compressed shards are
// recognizable on disk.
func (c Compression) Extension() string {
	switch c {
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	default:
		return ""
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// newEncoder wraps w so that everything written is compressed with c.  The
// returned Closer must be closed before w to flush the final frame.
func newEncoder(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case Zstd:
		return zstd.NewWriter(w)
	case LZ4:
		return lz4.NewWriter(w), nil
	default:
		return nopWriteCloser{w}, nil
	}
}

func newDecoder(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case Zstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case LZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return r, func() {}, nil
	}
}
