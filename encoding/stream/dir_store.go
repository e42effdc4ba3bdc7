package stream

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robot-dreams/ztopk"
)

// DirStore keeps each shard in its own file under dir.  We assume that a
// DirStore has exclusive access to the shard files it names.
type DirStore struct {
	dir         string
	prefix      string
	compression Compression

	// Set when dir was created by NewTempDirStore.
	temporary bool
}

var _ ztopk.ShardStore = (*DirStore)(nil)

// NewDirStore creates dir if needed.  Shard files are named after prefix, see
// ShardPrefix.
func NewDirStore(
	dir string,
	prefix string,
	compression Compression,
) (*DirStore, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, ztopk.NewIOError("mkdir", dir, err)
	}
	return &DirStore{
		dir:         dir,
		prefix:      prefix,
		compression: compression,
	}, nil
}

// NewTempDirStore places shards in a new temporary directory, which Cleanup
// removes entirely.
func NewTempDirStore(
	prefix string,
	compression Compression,
) (*DirStore, error) {
	dir, err := os.MkdirTemp("", "ztopk-")
	if err != nil {
		return nil, ztopk.NewIOError("mkdir", os.TempDir(), err)
	}
	return &DirStore{
		dir:         dir,
		prefix:      prefix,
		compression: compression,
		temporary:   true,
	}, nil
}

// ShardPrefix derives the shard file prefix from the source path: the base
// name without its extension, e.g. "/data/values.txt" becomes "values".
func ShardPrefix(source string) string {
	base := filepath.Base(source)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	if base == "" || base == "." || base == string(filepath.Separator) || base == "-" {
		return "stdin"
	}
	return base
}

func (d *DirStore) Dir() string {
	return d.dir
}

// Path returns the file of a shard, e.g. "values_sub_17.txt".
func (d *DirStore) Path(shard int) string {
	name := d.prefix + "_sub_" + strconv.Itoa(shard) + ".txt" +
		d.compression.Extension()
	return filepath.Join(d.dir, name)
}

func (d *DirStore) Location(shard int) string {
	return d.Path(shard)
}

func (d *DirStore) Create(shard int) (ztopk.Sink, error) {
	return NewWrite(d.Path(shard), d.compression)
}

func (d *DirStore) Open(shard int) (ztopk.Iterator, error) {
	return NewScan(d.Path(shard), d.compression)
}

// Cleanup deletes the given shard files.  A temporary store removes its whole
// directory instead; any other directory and the files in it that are not
// shards are left alone.
func (d *DirStore) Cleanup(shards []int) error {
	if d.temporary {
		err := os.RemoveAll(d.dir)
		if err != nil {
			return ztopk.NewIOError("remove", d.dir, err)
		}
		return nil
	}
	var firstErr error
	for _, shard := range shards {
		path := d.Path(shard)
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = ztopk.NewIOError("remove", path, err)
		}
	}
	return firstErr
}
