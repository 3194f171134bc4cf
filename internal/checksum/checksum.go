// Package checksum implements the incremental CRC-32 (IEEE polynomial)
// used as the archive's optional trailing integrity footer.
package checksum

import (
	"encoding/binary"
	"hash/crc32"

	"archivepipe/internal/errs"
)

// FooterSize is the length, in bytes, of the little-endian CRC-32
// footer appended to a checksummed stream.
const FooterSize = 4

// CRC32 accumulates an IEEE CRC-32 over successive writes, matching
// the bit-for-bit behavior of a hand-rolled register walk: init
// 0xFFFFFFFF, per-byte XOR-and-shift against polynomial 0xEDB88320,
// final XOR with 0xFFFFFFFF. The stdlib hash/crc32 IEEE table
// implements the identical algorithm, so it is used directly rather
// than hand-rolled.
type CRC32 struct {
	crc uint32
}

// New returns a fresh CRC32 accumulator.
func New() *CRC32 {
	return &CRC32{crc: 0}
}

// Write feeds buf into the running checksum. Never returns an error;
// satisfies io.Writer.
func (c *CRC32) Write(buf []byte) (int, error) {
	c.crc = crc32.Update(c.crc, crc32.IEEETable, buf)
	return len(buf), nil
}

// Sum32 returns the checksum of all bytes written so far.
func (c *CRC32) Sum32() uint32 {
	return c.crc
}

// Footer returns the 4-byte little-endian encoding of Sum32(), ready
// to append to the checksummed stream.
func (c *CRC32) Footer() []byte {
	out := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(out, c.crc)
	return out
}

// Sum computes the CRC-32 of data in a single call.
func Sum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// AppendFooter returns data with its CRC-32 footer appended.
func AppendFooter(data []byte) []byte {
	sum := Sum(data)
	out := make([]byte, len(data)+FooterSize)
	copy(out, data)
	binary.LittleEndian.PutUint32(out[len(data):], sum)
	return out
}

// SplitAndVerify splits the trailing FooterSize-byte CRC-32 footer off
// data, recomputes the checksum over the remainder, and compares. It
// returns the remainder on success.
func SplitAndVerify(data []byte) ([]byte, error) {
	if len(data) < FooterSize {
		return nil, errs.NewArchiveError(errs.CodeInvalidInput, "input too short for checksum verification", nil)
	}
	split := len(data) - FooterSize
	body, footer := data[:split], data[split:]
	expected := binary.LittleEndian.Uint32(footer)
	if Sum(body) != expected {
		return nil, errs.NewArchiveError(errs.CodeChecksumMismatch, "checksum verification failed", nil)
	}
	return body, nil
}

// Verify reports whether data's checksum matches the little-endian
// uint32 encoded in expectedLE.
func Verify(data, expectedLE []byte) bool {
	if len(expectedLE) != FooterSize {
		return false
	}
	return Sum(data) == binary.LittleEndian.Uint32(expectedLE)
}
