package container

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"strings"

	"archivepipe/internal/errs"
)

// dosDate/dosTime implement the approximate clamping decomposition:
// fixed 31-day months and 365-day years, so every Unix timestamp maps
// to a valid (if not calendar-exact) DOS date/time. This mirrors the
// original archive's simplified epoch math rather than a proper
// civil-date conversion.
func dosDateTime(t int64) (date uint16, time_ uint16) {
	if t < 0 {
		t = 0
	}
	seconds := t % 60
	minutes := (t / 60) % 60
	hours := (t / 3600) % 24
	day := (t/86400)%31 + 1
	month := (t/2678400)%12 + 1
	year := t/31536000 + 1980

	time_ = uint16((hours << 11) | (minutes << 5) | (seconds / 2))
	date = uint16(((year - 1980) << 9) | (month << 5) | day)
	return date, time_
}

// unixFromDOS reverses dosDateTime under the same fixed-length
// assumptions it was constructed with.
func unixFromDOS(date, time_ uint16) int64 {
	year := int64((date>>9)&0x7f) + 1980
	month := int64((date >> 5) & 0x0f)
	day := int64(date & 0x1f)
	hours := int64((time_ >> 11) & 0x1f)
	minutes := int64((time_ >> 5) & 0x3f)
	seconds := int64(time_&0x1f) * 2

	if month > 0 {
		month--
	}
	if day > 0 {
		day--
	}

	return (year-1980)*31536000 + month*2678400 + day*86400 + hours*3600 + minutes*60 + seconds
}

func packZIP(entries []Entry, method Method, level int, cancel func() bool) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	zipMethod := zip.Store
	if method == Deflate {
		zipMethod = zip.Deflate
	}

	for _, entry := range entries {
		if cancel != nil && cancel() {
			return nil, errs.NewArchiveError(errs.CodeOperationAborted, "operation aborted", errs.ErrCancelled)
		}

		header := &zip.FileHeader{
			Name:   strings.TrimPrefix(entry.Name, "/"),
			Method: zipMethod,
		}

		perm := uint32(defaultPermissions)
		if entry.Permissions != nil {
			perm = *entry.Permissions
		}
		header.SetMode(os.FileMode(perm).Perm())

		if entry.ModifiedTime != nil {
			header.ModifiedDate, header.ModifiedTime = dosDateTime(*entry.ModifiedTime)
		}

		fw, err := w.CreateHeader(header)
		if err != nil {
			return nil, errs.NewArchiveError(errs.CodeIOError, "failed to create zip entry", err)
		}
		if _, err := fw.Write(entry.Data); err != nil {
			return nil, errs.NewArchiveError(errs.CodeIOError, "failed to write zip entry", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, errs.NewArchiveError(errs.CodeIOError, "failed to finalize zip archive", err)
	}
	return buf.Bytes(), nil
}

func unpackZIP(data []byte) ([]Entry, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errs.NewArchiveError(errs.CodeCorruptedData, "failed to open zip archive", err)
	}

	entries := make([]Entry, 0, len(r.File))
	for _, f := range r.File {
		if strings.Contains(f.Name, "..") {
			return nil, errs.NewArchiveError(errs.CodeCorruptedData, "zip entry path traversal rejected", nil)
		}
		if f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, errs.NewArchiveError(errs.CodeCorruptedData, "failed to open zip entry", err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errs.NewArchiveError(errs.CodeCorruptedData, "failed to read zip entry", err)
		}

		entry := Entry{Name: f.Name, Data: body}
		perm := uint32(f.Mode().Perm())
		entry.Permissions = &perm

		mtime := unixFromDOS(f.ModifiedDate, f.ModifiedTime)
		entry.ModifiedTime = &mtime

		entries = append(entries, entry)
	}
	return entries, nil
}
