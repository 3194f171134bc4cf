package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"archivepipe/internal/aead"
	"archivepipe/internal/codec"
	"archivepipe/internal/container"
	"archivepipe/internal/errs"
	"archivepipe/internal/kdf"
)

func TestPlainGzipRoundTrip(t *testing.T) {
	cfg, err := NewConfigBuilder().
		WithAlgorithm(codec.Gzip).WithLevel(6).
		WithArchiveFormat(container.None).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := NewDriver()
	entries := []ArchiveEntry{*NewArchiveEntry("hello.txt", []byte("Hello, world!\n"))}

	out, err := d.Archive(entries, cfg)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if len(out) < 3 || out[0] != 0x1f || out[1] != 0x8b || out[2] != 0x08 {
		t.Fatalf("missing gzip magic header: % x", out[:3])
	}

	d2 := NewDriver()
	got, err := d2.Unarchive(out, cfg)
	if err != nil {
		t.Fatalf("Unarchive: %v", err)
	}
	if len(got) != 1 || got[0].Name != "data" {
		t.Fatalf("got = %+v; want single entry named data", got)
	}
	if !bytes.Equal(got[0].Data, []byte("Hello, world!\n")) {
		t.Errorf("body = %q", got[0].Data)
	}
}

func TestZipDeflateTwoEntries(t *testing.T) {
	cfg, err := NewConfigBuilder().
		WithAlgorithm(codec.Deflate).WithLevel(6).
		WithArchiveFormat(container.ZIP).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	mtime := int64(1_700_000_000)
	a := NewArchiveEntry("a", []byte("AAAA"))
	a.SetModifiedTime(mtime)
	b := NewArchiveEntry("b", []byte("BBBB"))

	d := NewDriver()
	out, err := d.Archive([]ArchiveEntry{*a, *b}, cfg)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	got, err := NewDriver().Unarchive(out, cfg)
	if err != nil {
		t.Fatalf("Unarchive: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d; want 2", len(got))
	}
	byName := map[string]ArchiveEntry{}
	for _, e := range got {
		byName[e.Name] = e
	}
	if !bytes.Equal(byName["a"].Data, []byte("AAAA")) || !bytes.Equal(byName["b"].Data, []byte("BBBB")) {
		t.Errorf("recovered bodies mismatch: %+v", byName)
	}
}

func TestBrotliChecksumTamperDetected(t *testing.T) {
	cfg, err := NewConfigBuilder().
		WithAlgorithm(codec.Brotli).WithLevel(11).
		WithChecksum(true).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := NewDriver()
	entries := []ArchiveEntry{*NewArchiveEntry("x", bytes.Repeat([]byte("payload "), 50))}
	out, err := d.Archive(entries, cfg)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if _, err := NewDriver().Unarchive(out, cfg); err != nil {
		t.Fatalf("baseline Unarchive should succeed: %v", err)
	}

	tampered := append([]byte(nil), out...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = NewDriver().Unarchive(tampered, cfg)
	if errs.Code(err) != errs.CodeChecksumMismatch {
		t.Errorf("Code(err) = %d; want %d", errs.Code(err), errs.CodeChecksumMismatch)
	}
}

func encryptedConfig(t *testing.T) *ArchiveConfig {
	t.Helper()
	cfg, err := NewConfigBuilder().
		WithAlgorithm(codec.Gzip).WithLevel(6).
		WithEncryption(&aead.Config{
			Algorithm: aead.AES256GCM,
			KDF: kdf.Config{
				Algorithm:   kdf.Argon2id,
				TimeCost:    1,
				MemoryCost: 8 * 1024,
				Parallelism: 1,
			},
			KeyVersion: 1,
		}).
		WithEncryptionContext([]byte("tenantA")).
		WithEncryptionAAD([]byte("v1")).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cfg
}

func TestEncryptedGzipWithContextMismatch(t *testing.T) {
	cfg := encryptedConfig(t)
	masterKey := bytes.Repeat([]byte{0x42}, 32)

	d := NewDriver()
	if err := d.SetMasterKey(masterKey); err != nil {
		t.Fatalf("SetMasterKey: %v", err)
	}

	entries := []ArchiveEntry{*NewArchiveEntry("secret.txt", []byte("top secret payload"))}
	out, err := d.Archive(entries, cfg)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	got, err := d.Unarchive(out, cfg)
	if err != nil {
		t.Fatalf("Unarchive (same driver, same context): %v", err)
	}
	if !bytes.Equal(got[0].Data, []byte("top secret payload")) {
		t.Errorf("body mismatch: %q", got[0].Data)
	}

	wrongContextCfg := *cfg
	wrongContextCfg.EncryptionContext = []byte("tenantB")
	_, err = d.Unarchive(out, &wrongContextCfg)
	if errs.Code(err) != errs.CodeContextValidationFailed {
		t.Errorf("Code(err) = %d; want %d", errs.Code(err), errs.CodeContextValidationFailed)
	}
}

func TestAbortBeforeSecondChunk(t *testing.T) {
	cfg, err := NewConfigBuilder().WithAlgorithm(codec.Gzip).WithChunkSize(64).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := NewDriver()
	calls := 0
	metricsCalled := false
	d.SetMetrics(func(Metrics) { metricsCalled = true })
	d.SetProgress(func(fraction float64) error {
		calls++
		if calls == 1 {
			d.Abort()
		}
		return nil
	})

	entries := []ArchiveEntry{*NewArchiveEntry("big", bytes.Repeat([]byte("x"), 1024))}
	_, err = d.Archive(entries, cfg)
	if errs.Code(err) != errs.CodeOperationAborted {
		t.Fatalf("Code(err) = %d; want %d", errs.Code(err), errs.CodeOperationAborted)
	}
	if metricsCalled {
		t.Error("metrics callback must not fire on aborted operation")
	}
	if d.State() != StateFailed {
		t.Errorf("State() = %v; want StateFailed", d.State())
	}
}

func TestMemoryLimitGuard(t *testing.T) {
	cfg, err := NewConfigBuilder().WithMemoryLimit(10).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	d := NewDriver()
	entries := []ArchiveEntry{*NewArchiveEntry("x", bytes.Repeat([]byte("y"), 11))}
	_, err = d.Archive(entries, cfg)
	if errs.Code(err) != errs.CodeMemoryLimitExceeded {
		t.Errorf("Code(err) = %d; want %d", errs.Code(err), errs.CodeMemoryLimitExceeded)
	}
}

func TestDriverRejectsConcurrentOperations(t *testing.T) {
	d := NewDriver()
	d.mu.Lock()
	d.state = StateRunning
	d.mu.Unlock()

	cfg, _ := NewConfigBuilder().Build()
	_, err := d.Archive(nil, cfg)
	if errs.Code(err) != errs.CodeOperationAborted {
		t.Errorf("Code(err) = %d; want %d", errs.Code(err), errs.CodeOperationAborted)
	}
}

func TestNoneArchiveFormatRequiresSingleEntry(t *testing.T) {
	cfg, _ := NewConfigBuilder().WithArchiveFormat(container.None).Build()
	d := NewDriver()
	entries := []ArchiveEntry{*NewArchiveEntry("a", []byte("a")), *NewArchiveEntry("b", []byte("b"))}
	_, err := d.Archive(entries, cfg)
	if errs.Code(err) != errs.CodeInvalidArchiveFormat {
		t.Errorf("Code(err) = %d; want %d", errs.Code(err), errs.CodeInvalidArchiveFormat)
	}
}

func TestProgressCallbackErrorAborts(t *testing.T) {
	cfg, _ := NewConfigBuilder().WithChunkSize(8).Build()
	d := NewDriver()
	boom := errors.New("ui crashed")
	d.SetProgress(func(float64) error { return boom })

	entries := []ArchiveEntry{*NewArchiveEntry("x", bytes.Repeat([]byte("z"), 64))}
	_, err := d.Archive(entries, cfg)
	if errs.Code(err) != errs.CodeIOError {
		t.Errorf("Code(err) = %d; want %d", errs.Code(err), errs.CodeIOError)
	}
}

func TestMIMEType(t *testing.T) {
	plainCfg, _ := NewConfigBuilder().WithAlgorithm(codec.Gzip).Build()
	if MIMEType(plainCfg) != "application/gzip" {
		t.Errorf("MIMEType(plain gzip) = %q", MIMEType(plainCfg))
	}

	encCfg := encryptedConfig(t)
	if MIMEType(encCfg) != "application/octet-stream" {
		t.Errorf("MIMEType(encrypted) = %q", MIMEType(encCfg))
	}
}
