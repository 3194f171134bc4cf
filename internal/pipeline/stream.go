package pipeline

import (
	"archivepipe/internal/container"
	"archivepipe/internal/errs"
)

// PullSource is a pull-based chunk source: each call returns the next
// chunk of bytes and whether the source is exhausted. It mirrors the
// host's async `read() -> {done, value}` contract (spec §6) as a
// blocking Go call; callers needing concurrency run the driver off its
// own goroutine.
type PullSource interface {
	Read() (data []byte, done bool, err error)
}

// ArchiveStream reads entries from a pull-based source instead of a
// pre-built entry list. archive_format = zip is rejected immediately,
// without consuming the stream, since ZIP needs the full payload size
// up front. Progress during the read phase is reported through
// ProgressBytesFunc (bytes accumulated so far, no known total); once
// the full payload is buffered the rest of the pipeline reports
// fractional progress as usual.
func (d *Driver) ArchiveStream(src PullSource, cfg *ArchiveConfig) ([]byte, error) {
	if cfg.ArchiveFormat == container.ZIP {
		return nil, errs.NewArchiveError(errs.CodeUnsupportedFeature,
			"zip container is not permitted with streaming input", nil)
	}

	if err := d.beginOperation(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, cfg.ChunkSize)
	var total int64
	for {
		if d.checkAbort() {
			return nil, d.fail(d.abortedError())
		}

		chunk, done, err := src.Read()
		if err != nil {
			return nil, d.fail(errs.NewArchiveError(errs.CodeIOError, "stream read failed", err))
		}
		if len(chunk) > 0 {
			buf = append(buf, chunk...)
			total += int64(len(chunk))
			if total > cfg.MemoryLimit {
				return nil, d.fail(errs.NewArchiveError(errs.CodeMemoryLimitExceeded,
					"streamed input exceeds memory limit", nil))
			}
			if err := d.reportProgressBytes(total); err != nil {
				return nil, d.fail(errs.NewArchiveError(errs.CodeIOError, "progress callback failed", err))
			}
		}
		if done {
			break
		}
	}

	// The accumulated payload becomes a single entry; the rest of the
	// pipeline (container pack, compress, checksum, encrypt) runs
	// exactly as in Archive. beginOperation already transitioned the
	// driver to Running, so hand off to the phase runner directly.
	entry := NewArchiveEntry("data", buf)
	return d.runArchivePhases([]ArchiveEntry{*entry}, cfg)
}

// UnarchiveStream reads the full (possibly encrypted/compressed) blob
// from a pull-based source, then runs the standard reverse pipeline.
func (d *Driver) UnarchiveStream(src PullSource, cfg *ArchiveConfig) ([]ArchiveEntry, error) {
	if err := d.beginOperation(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, cfg.ChunkSize)
	var total int64
	for {
		if d.checkAbort() {
			return nil, d.fail(d.abortedError())
		}

		chunk, done, err := src.Read()
		if err != nil {
			return nil, d.fail(errs.NewArchiveError(errs.CodeIOError, "stream read failed", err))
		}
		if len(chunk) > 0 {
			buf = append(buf, chunk...)
			total += int64(len(chunk))
			if total > cfg.MemoryLimit {
				return nil, d.fail(errs.NewArchiveError(errs.CodeMemoryLimitExceeded,
					"streamed input exceeds memory limit", nil))
			}
			if err := d.reportProgressBytes(total); err != nil {
				return nil, d.fail(errs.NewArchiveError(errs.CodeIOError, "progress callback failed", err))
			}
		}
		if done {
			break
		}
	}

	return d.runUnarchivePhases(buf, cfg)
}
