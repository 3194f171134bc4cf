// Package codec provides a uniform write/read interface over the
// archive's compression backends: none (identity), gzip, zlib, raw
// deflate, and brotli. Each adapter is single-consumer and not
// re-entrant, matching spec §4.4.
package codec

import (
	"archivepipe/internal/errs"
)

// Algorithm selects a compression backend.
type Algorithm int

const (
	None Algorithm = iota
	Gzip
	Zlib
	Deflate
	Brotli
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zlib:
		return "zlib"
	case Deflate:
		return "deflate"
	case Brotli:
		return "brotli"
	default:
		return "unknown"
	}
}

// MIMEType returns the informative (non-authoritative) content type
// for a), matching spec §6 "MIME tagging".
func (a Algorithm) MIMEType() string {
	switch a {
	case Gzip:
		return "application/gzip"
	case Zlib:
		return "application/zlib"
	case Deflate:
		return "application/deflate"
	case Brotli:
		return "application/brotli"
	default:
		return "application/octet-stream"
	}
}

// SupportsDict reports whether the algorithm can consume a preset
// dictionary (spec §3 supplemented feature: only zlib/deflate do).
func (a Algorithm) SupportsDict() bool {
	return a == Zlib || a == Deflate
}

// ValidateLevel checks level against the algorithm's accepted range
// (spec §3 ArchiveConfig.level domain).
func ValidateLevel(a Algorithm, level int) error {
	switch a {
	case Gzip, Zlib, Deflate:
		if level < 0 || level > 9 {
			return errs.NewArchiveError(errs.CodeInvalidCompressionLevel,
				"compression level must be between 0 and 9", nil)
		}
	case Brotli:
		if level < 0 || level > 11 {
			return errs.NewArchiveError(errs.CodeInvalidCompressionLevel,
				"compression level for brotli must be between 0 and 11", nil)
		}
	case None:
		if level != 6 {
			return errs.NewArchiveError(errs.CodeInvalidCompressionLevel,
				"compression level ignored for none algorithm, must be sentinel 6", nil)
		}
	default:
		return errs.NewArchiveError(errs.CodeUnsupportedAlgorithm, "unsupported compression algorithm", nil)
	}
	return nil
}

// Encoder is the write-side adapter: accepts plaintext chunks and
// produces the framed compressed output on Finish.
type Encoder interface {
	Write(p []byte) (int, error)
	Flush() error
	Finish() ([]byte, error)
}

// Decoder is the read-side adapter: a pull-based byte source over
// compressed input, with Consumed() reporting the count of compressed
// input bytes pulled so far (used for progress against input length,
// not output length).
type Decoder interface {
	Read(p []byte) (int, error)
	Consumed() int64
	Close() error
}

// GzipOptions carries the optional gzip header fields from
// ArchiveConfig (spec §3: comment, extra, os_code).
type GzipOptions struct {
	Comment string
	Extra   []byte
	OSCode  *byte
}
