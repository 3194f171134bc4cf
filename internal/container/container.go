// Package container packs and unpacks the entry list that sits above
// the compression layer: either a single-blob pass-through ("none") or
// a standard ZIP container with per-entry metadata.
package container

import (
	"archivepipe/internal/errs"
)

// Format selects the container layout.
type Format int

const (
	None Format = iota
	ZIP
)

func (f Format) String() string {
	switch f {
	case None:
		return "none"
	case ZIP:
		return "zip"
	default:
		return "unknown"
	}
}

// Method selects the ZIP per-entry storage method. Only deflate and
// store are permitted (spec §4.3: ZIP accepts only deflate or none).
type Method int

const (
	Store Method = iota
	Deflate
)

// Entry is a logical named blob plus optional filesystem metadata. It
// is constructed once and never mutated except through SetModifiedTime
// / SetPermissions, mirroring the read-only-after-construction entries
// the pipeline driver hands to container.Pack.
type Entry struct {
	Name         string
	Data         []byte
	ModifiedTime *int64 // seconds since Unix epoch, optional
	Permissions  *uint32 // POSIX mode, low 12 bits, optional
}

// SetModifiedTime sets the entry's modification time in place.
func (e *Entry) SetModifiedTime(t int64) { e.ModifiedTime = &t }

// SetPermissions sets the entry's POSIX permission bits in place.
func (e *Entry) SetPermissions(perm uint32) { e.Permissions = &perm }

const defaultPermissions = 0o644

// Pack serializes entries into a container blob of the given format.
// method and level only apply to ZIP. cancel, if non-nil, is polled
// before each ZIP entry is written; a true result aborts the pack with
// a CodeOperationAborted error wrapping errs.ErrCancelled.
func Pack(format Format, entries []Entry, method Method, level int, cancel func() bool) ([]byte, error) {
	switch format {
	case None:
		return packNone(entries)
	case ZIP:
		return packZIP(entries, method, level, cancel)
	default:
		return nil, errs.NewArchiveError(errs.CodeInvalidArchiveFormat, "unsupported container format", nil)
	}
}

// Unpack deserializes a container blob back into entries.
func Unpack(format Format, data []byte) ([]Entry, error) {
	switch format {
	case None:
		return unpackNone(data)
	case ZIP:
		return unpackZIP(data)
	default:
		return nil, errs.NewArchiveError(errs.CodeInvalidArchiveFormat, "unsupported container format", nil)
	}
}

func packNone(entries []Entry) ([]byte, error) {
	if len(entries) != 1 {
		return nil, errs.NewArchiveError(errs.CodeInvalidArchiveFormat,
			"none container requires exactly one entry", nil)
	}
	return entries[0].Data, nil
}

func unpackNone(data []byte) ([]Entry, error) {
	return []Entry{{Name: "data", Data: data}}, nil
}
