package pipeline

import "testing"

func TestNewArchiveEntryComputesChecksum(t *testing.T) {
	entry := NewArchiveEntry("file.txt", []byte("hello"))
	if entry.Checksum == 0 {
		t.Error("checksum should be non-zero for non-empty data")
	}
	if !entry.Verify(entry.Checksum) {
		t.Error("Verify should succeed against its own checksum")
	}
	if entry.Verify(entry.Checksum ^ 0xFFFFFFFF) {
		t.Error("Verify should fail against a wrong checksum")
	}
}

func TestArchiveEntrySetters(t *testing.T) {
	entry := NewArchiveEntry("a", []byte("data"))
	entry.SetModifiedTime(1700000000)
	entry.SetPermissions(0o600)

	if entry.ModifiedTime == nil || *entry.ModifiedTime != 1700000000 {
		t.Errorf("ModifiedTime = %v; want 1700000000", entry.ModifiedTime)
	}
	if entry.Permissions == nil || *entry.Permissions != 0o600 {
		t.Errorf("Permissions = %v; want 0600", entry.Permissions)
	}
}
