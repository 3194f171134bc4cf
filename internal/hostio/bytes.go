// Package hostio adapts the stateful pipeline.Driver to the two host
// shapes a caller actually has on hand: a fully-buffered byte slice, or
// a pull-based stream. Both are thin, one-shot wrappers around a
// throwaway Driver instance — callers that need progress/metrics
// callbacks or salt reuse across repeated calls should use
// pipeline.Driver directly instead.
package hostio

import "archivepipe/internal/pipeline"

// ArchiveBytes runs a single Archive operation over entries already
// held in memory. masterKey is only required when cfg.Encryption is
// set; pass nil otherwise.
func ArchiveBytes(entries []pipeline.ArchiveEntry, cfg *pipeline.ArchiveConfig, masterKey []byte) ([]byte, error) {
	d := pipeline.NewDriver()
	defer d.Close()
	if len(masterKey) > 0 {
		if err := d.SetMasterKey(masterKey); err != nil {
			return nil, err
		}
	}
	return d.Archive(entries, cfg)
}

// UnarchiveBytes runs a single Unarchive operation over a fully-buffered
// blob. masterKey is only required when cfg.Encryption is set.
func UnarchiveBytes(data []byte, cfg *pipeline.ArchiveConfig, masterKey []byte) ([]pipeline.ArchiveEntry, error) {
	d := pipeline.NewDriver()
	defer d.Close()
	if len(masterKey) > 0 {
		if err := d.SetMasterKey(masterKey); err != nil {
			return nil, err
		}
	}
	return d.Unarchive(data, cfg)
}
