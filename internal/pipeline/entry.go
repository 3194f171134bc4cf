package pipeline

import (
	"archivepipe/internal/checksum"
)

// ArchiveEntry is the logical unit the driver packs and unpacks: a
// named, immutable byte blob plus optional filesystem metadata. Its
// Checksum is computed at construction time, not lazily, so Verify
// never needs to recompute from scratch on a caller-held copy.
type ArchiveEntry struct {
	Name         string
	Data         []byte
	ModifiedTime *int64  // seconds since Unix epoch, optional
	Permissions  *uint32 // POSIX mode, low 12 bits, optional
	Checksum     uint32  // CRC-32 of Data, set by NewArchiveEntry
}

// NewArchiveEntry constructs an entry and computes its checksum.
func NewArchiveEntry(name string, data []byte) *ArchiveEntry {
	return &ArchiveEntry{
		Name:     name,
		Data:     data,
		Checksum: checksum.Sum(data),
	}
}

// SetModifiedTime sets the entry's modification time in place.
func (e *ArchiveEntry) SetModifiedTime(t int64) { e.ModifiedTime = &t }

// SetPermissions sets the entry's POSIX permission bits in place.
func (e *ArchiveEntry) SetPermissions(perm uint32) { e.Permissions = &perm }

// Verify reports whether expected matches the entry's stored checksum.
func (e *ArchiveEntry) Verify(expected uint32) bool {
	return e.Checksum == expected
}
