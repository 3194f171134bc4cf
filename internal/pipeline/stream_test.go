package pipeline

import (
	"bytes"
	"testing"

	"archivepipe/internal/codec"
	"archivepipe/internal/container"
	"archivepipe/internal/errs"
)

// sliceSource is a minimal PullSource over a pre-chunked in-memory
// slice, used to exercise ArchiveStream/UnarchiveStream without a real
// host-side async reader.
type sliceSource struct {
	chunks [][]byte
	pos    int
}

func (s *sliceSource) Read() ([]byte, bool, error) {
	if s.pos >= len(s.chunks) {
		return nil, true, nil
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, s.pos >= len(s.chunks), nil
}

func chunked(data []byte, size int) [][]byte {
	var out [][]byte
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		out = append(out, data[i:end])
	}
	return out
}

func TestArchiveStreamUnarchiveStreamRoundTrip(t *testing.T) {
	cfg, err := NewConfigBuilder().WithAlgorithm(codec.Gzip).WithChunkSize(16).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	payload := bytes.Repeat([]byte("stream me "), 100)
	src := &sliceSource{chunks: chunked(payload, 23)}

	d := NewDriver()
	var seenBytes []int64
	d.SetProgressBytes(func(processed int64) error {
		seenBytes = append(seenBytes, processed)
		return nil
	})

	out, err := d.ArchiveStream(src, cfg)
	if err != nil {
		t.Fatalf("ArchiveStream: %v", err)
	}
	if len(seenBytes) == 0 {
		t.Error("expected at least one ProgressBytesFunc invocation")
	}

	d2 := NewDriver()
	dst := &sliceSource{chunks: chunked(out, 37)}
	got, err := d2.UnarchiveStream(dst, cfg)
	if err != nil {
		t.Fatalf("UnarchiveStream: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Data, payload) {
		t.Errorf("round trip mismatch: got %d entries", len(got))
	}
}

func TestArchiveStreamRejectsZipImmediately(t *testing.T) {
	cfg, err := NewConfigBuilder().WithArchiveFormat(container.ZIP).WithAlgorithm(codec.Deflate).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	src := &sliceSource{chunks: [][]byte{[]byte("should never be read")}}
	d := NewDriver()
	_, err = d.ArchiveStream(src, cfg)
	if errs.Code(err) != errs.CodeUnsupportedFeature {
		t.Fatalf("Code(err) = %d; want %d", errs.Code(err), errs.CodeUnsupportedFeature)
	}
	if src.pos != 0 {
		t.Errorf("stream must not be consumed before the zip rejection, pos = %d", src.pos)
	}
}

func TestArchiveStreamMemoryLimit(t *testing.T) {
	cfg, err := NewConfigBuilder().WithMemoryLimit(8).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	src := &sliceSource{chunks: chunked(bytes.Repeat([]byte("x"), 32), 4)}
	d := NewDriver()
	_, err = d.ArchiveStream(src, cfg)
	if errs.Code(err) != errs.CodeMemoryLimitExceeded {
		t.Fatalf("Code(err) = %d; want %d", errs.Code(err), errs.CodeMemoryLimitExceeded)
	}
}

func TestArchiveStreamPropagatesSourceError(t *testing.T) {
	cfg, err := NewConfigBuilder().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := NewDriver()
	_, err = d.ArchiveStream(&erroringSource{}, cfg)
	if errs.Code(err) != errs.CodeIOError {
		t.Fatalf("Code(err) = %d; want %d", errs.Code(err), errs.CodeIOError)
	}
}

type erroringSource struct{}

func (erroringSource) Read() ([]byte, bool, error) {
	return nil, false, errIntentional
}

var errIntentional = &pullSourceError{"intentional stream failure"}

type pullSourceError struct{ msg string }

func (e *pullSourceError) Error() string { return e.msg }
