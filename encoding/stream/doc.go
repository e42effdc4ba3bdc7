// The stream package stores shards as plain files: one decimal value per line,
// optionally wrapped in a zstd or lz4 stream.  Although we use buffered I/O
// everywhere, there's no explicit notion of "blocks".
package stream
