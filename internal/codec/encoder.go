package codec

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/andybalholm/brotli"

	"archivepipe/internal/errs"
)

// flushWriteCloser is the common surface the stdlib compress/* writers
// and the brotli writer all expose.
type flushWriteCloser interface {
	io.Writer
	Flush() error
	Close() error
}

type encoder struct {
	buf *bytes.Buffer
	w   flushWriteCloser // nil for None (store)
}

// NewEncoder builds a write-side adapter for algo. dict is a preset
// dictionary hint, only honored by zlib/deflate (spec §3); supplying a
// non-empty dict for any other algorithm is a DictionaryError.
func NewEncoder(algo Algorithm, level int, chunkSize int, gz *GzipOptions, dict []byte) (Encoder, error) {
	if len(dict) > 0 && !algo.SupportsDict() {
		return nil, errs.NewArchiveError(errs.CodeDictionaryError,
			"dictionary not supported for "+algo.String()+" algorithm", nil)
	}

	buf := bytes.NewBuffer(make([]byte, 0, chunkSize))

	switch algo {
	case None:
		return &encoder{buf: buf}, nil

	case Gzip:
		gw, err := gzip.NewWriterLevel(buf, level)
		if err != nil {
			return nil, errs.NewArchiveError(errs.CodeIOError, "failed to construct gzip encoder", err)
		}
		if gz != nil {
			gw.Comment = gz.Comment
			gw.Extra = gz.Extra
			if gz.OSCode != nil {
				gw.OS = *gz.OSCode
			}
		}
		return &encoder{buf: buf, w: gw}, nil

	case Zlib:
		zw, err := zlib.NewWriterLevelDict(buf, level, dict)
		if err != nil {
			return nil, errs.NewArchiveError(errs.CodeIOError, "failed to construct zlib encoder", err)
		}
		return &encoder{buf: buf, w: zw}, nil

	case Deflate:
		fw, err := flate.NewWriterDict(buf, level, dict)
		if err != nil {
			return nil, errs.NewArchiveError(errs.CodeIOError, "failed to construct deflate encoder", err)
		}
		return &encoder{buf: buf, w: fw}, nil

	case Brotli:
		bw := brotli.NewWriterLevel(buf, level)
		return &encoder{buf: buf, w: bw}, nil

	default:
		return nil, errs.NewArchiveError(errs.CodeUnsupportedAlgorithm, "unsupported compression algorithm", nil)
	}
}

func (e *encoder) Write(p []byte) (int, error) {
	var n int
	var err error
	if e.w != nil {
		n, err = e.w.Write(p)
	} else {
		n, err = e.buf.Write(p)
	}
	if err != nil {
		return n, errs.NewArchiveError(errs.CodeIOError, "codec write failed", err)
	}
	return n, nil
}

func (e *encoder) Flush() error {
	if e.w == nil {
		return nil
	}
	if err := e.w.Flush(); err != nil {
		return errs.NewArchiveError(errs.CodeIOError, "codec flush failed", err)
	}
	return nil
}

func (e *encoder) Finish() ([]byte, error) {
	if e.w != nil {
		if err := e.w.Close(); err != nil {
			return nil, errs.NewArchiveError(errs.CodeIOError, "codec finish failed", err)
		}
	}
	return e.buf.Bytes(), nil
}
