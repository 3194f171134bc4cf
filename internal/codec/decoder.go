package codec

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/andybalholm/brotli"

	"archivepipe/internal/errs"
)

// countingReader wraps a byte slice and tracks how many bytes have
// been pulled from it, independent of how much the decompressor above
// it has produced (spec §4.4: Consumed() tracks compressed input, not
// decompressed output).
type countingReader struct {
	buf []byte
	pos int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	n := copy(p, c.buf[c.pos:])
	c.pos += n
	return n, nil
}

type decoder struct {
	tracker *countingReader
	r       io.Reader // the decompressing reader, or tracker itself for None
	closer  io.Closer // non-nil when the underlying reader needs Close (e.g. gzip)
}

// NewDecoder builds a read-side adapter for algo over compressed input.
func NewDecoder(algo Algorithm, input []byte, dict []byte) (Decoder, error) {
	if len(dict) > 0 && !algo.SupportsDict() {
		return nil, errs.NewArchiveError(errs.CodeDictionaryError,
			"dictionary not supported for "+algo.String()+" algorithm", nil)
	}

	tracker := &countingReader{buf: input}

	switch algo {
	case None:
		return &decoder{tracker: tracker, r: tracker}, nil

	case Gzip:
		gr, err := gzip.NewReader(tracker)
		if err != nil {
			return nil, errs.NewArchiveError(errs.CodeCorruptedData, "failed to construct gzip decoder", err)
		}
		return &decoder{tracker: tracker, r: gr, closer: gr}, nil

	case Zlib:
		zr, err := zlib.NewReaderDict(tracker, dict)
		if err != nil {
			return nil, errs.NewArchiveError(errs.CodeCorruptedData, "failed to construct zlib decoder", err)
		}
		return &decoder{tracker: tracker, r: zr, closer: zr}, nil

	case Deflate:
		fr := flate.NewReaderDict(tracker, dict)
		return &decoder{tracker: tracker, r: fr, closer: fr}, nil

	case Brotli:
		br := brotli.NewReader(tracker)
		return &decoder{tracker: tracker, r: br}, nil

	default:
		return nil, errs.NewArchiveError(errs.CodeUnsupportedAlgorithm, "unsupported compression algorithm", nil)
	}
}

func (d *decoder) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && err != io.EOF {
		return n, errs.NewArchiveError(errs.CodeCorruptedData, "codec read failed", err)
	}
	return n, err
}

func (d *decoder) Consumed() int64 {
	return int64(d.tracker.pos)
}

// Close releases any decoder-held resources (e.g. the gzip footer
// reader). Safe to call even when the underlying decoder needs no
// closing.
func (d *decoder) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
