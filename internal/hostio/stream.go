package hostio

import (
	"io"

	"archivepipe/internal/pipeline"
)

// ReaderSource adapts a standard io.Reader (an open file, a network
// body, stdin) into a pipeline.PullSource, reading fixed-size chunks
// until the reader reports io.EOF.
type ReaderSource struct {
	r         io.Reader
	chunkSize int
}

// NewReaderSource wraps r as a PullSource that reads chunkSize bytes at
// a time.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	return &ReaderSource{r: r, chunkSize: chunkSize}
}

// Read implements pipeline.PullSource.
func (s *ReaderSource) Read() (data []byte, done bool, err error) {
	buf := make([]byte, s.chunkSize)
	n, readErr := s.r.Read(buf)
	if readErr == io.EOF {
		return buf[:n], true, nil
	}
	if readErr != nil {
		return nil, false, readErr
	}
	return buf[:n], false, nil
}

// ArchiveStream runs a single streaming Archive over src. masterKey is
// only required when cfg.Encryption is set.
func ArchiveStream(src pipeline.PullSource, cfg *pipeline.ArchiveConfig, masterKey []byte) ([]byte, error) {
	d := pipeline.NewDriver()
	defer d.Close()
	if len(masterKey) > 0 {
		if err := d.SetMasterKey(masterKey); err != nil {
			return nil, err
		}
	}
	return d.ArchiveStream(src, cfg)
}

// UnarchiveStream runs a single streaming Unarchive over src. masterKey
// is only required when cfg.Encryption is set.
func UnarchiveStream(src pipeline.PullSource, cfg *pipeline.ArchiveConfig, masterKey []byte) ([]pipeline.ArchiveEntry, error) {
	d := pipeline.NewDriver()
	defer d.Close()
	if len(masterKey) > 0 {
		if err := d.SetMasterKey(masterKey); err != nil {
			return nil, err
		}
	}
	return d.UnarchiveStream(src, cfg)
}
