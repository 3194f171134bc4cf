package hostio

import (
	"bytes"
	"strings"
	"testing"

	"archivepipe/internal/codec"
	"archivepipe/internal/pipeline"
)

func TestArchiveBytesUnarchiveBytesRoundTrip(t *testing.T) {
	cfg, err := pipeline.NewConfigBuilder().WithAlgorithm(codec.Gzip).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	entries := []pipeline.ArchiveEntry{*pipeline.NewArchiveEntry("note.txt", []byte("hostio round trip"))}
	out, err := ArchiveBytes(entries, cfg, nil)
	if err != nil {
		t.Fatalf("ArchiveBytes: %v", err)
	}

	got, err := UnarchiveBytes(out, cfg, nil)
	if err != nil {
		t.Fatalf("UnarchiveBytes: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Data, []byte("hostio round trip")) {
		t.Errorf("got = %+v", got)
	}
}

func TestReaderSourceStreamRoundTrip(t *testing.T) {
	cfg, err := pipeline.NewConfigBuilder().WithAlgorithm(codec.Gzip).WithChunkSize(8).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	payload := "the quick brown fox jumps over the lazy dog, repeatedly, for good measure"
	src := NewReaderSource(strings.NewReader(payload), 11)

	out, err := ArchiveStream(src, cfg, nil)
	if err != nil {
		t.Fatalf("ArchiveStream: %v", err)
	}

	dst := NewReaderSource(bytes.NewReader(out), 17)
	got, err := UnarchiveStream(dst, cfg, nil)
	if err != nil {
		t.Fatalf("UnarchiveStream: %v", err)
	}
	if len(got) != 1 || string(got[0].Data) != payload {
		t.Errorf("round trip mismatch: %q", got)
	}
}
