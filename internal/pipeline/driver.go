// Package pipeline orchestrates the archive/unarchive data flow:
// container packing, chunked compression, optional checksum, and
// optional authenticated encryption, in that order (and mirrored in
// reverse). See Driver for the stateful entry point.
package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"archivepipe/internal/aead"
	"archivepipe/internal/checksum"
	"archivepipe/internal/codec"
	"archivepipe/internal/container"
	"archivepipe/internal/crypto"
	"archivepipe/internal/errs"
	"archivepipe/internal/log"
	"archivepipe/internal/util"
)

// State is the driver's operation lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateAborting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAborting:
		return "aborting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressFunc reports fraction of input processed, in [0.0, 1.0]. A
// non-nil error return aborts the operation with an IO-class error.
type ProgressFunc func(fraction float64) error

// ProgressBytesFunc reports bytes processed so far when the total size
// isn't known up front (streaming input). A non-nil error return
// aborts the operation.
type ProgressBytesFunc func(processed int64) error

// Metrics is emitted once per successful operation.
type Metrics struct {
	Ratio      float64
	Elapsed    time.Duration
	InputSize  int64
	OutputSize int64
}

// MetricsFunc receives Metrics on successful completion. Never called
// on failure.
type MetricsFunc func(Metrics)

// Driver is the stateful orchestrator for one logical archive/unarchive
// session. It is single-consumer: concurrent Archive/Unarchive calls on
// the same instance are undefined, matching spec §5. Progress, metrics,
// and the master key can only be set while no operation is in flight
// (Idle or Failed).
type Driver struct {
	mu            sync.Mutex
	state         State
	progress      ProgressFunc
	progressBytes ProgressBytesFunc
	metrics       MetricsFunc
	keyCtx        crypto.CryptoContext
	abort         atomic.Bool
	logger        log.Logger

	encSvc *aead.Service
	encCfg *EncCfg
}

// NewDriver returns an idle driver using the package-level logger.
func NewDriver() *Driver {
	return &Driver{logger: log.GetLogger()}
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SetProgress installs the fractional progress callback. Rejected while
// an operation is in flight.
func (d *Driver) SetProgress(fn ProgressFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateRunning || d.state == StateAborting {
		return errs.NewArchiveError(errs.CodeOperationAborted, "cannot configure driver while an operation is running", nil)
	}
	d.progress = fn
	return nil
}

// SetProgressBytes installs the byte-count progress callback used by
// streaming input. Rejected while an operation is in flight.
func (d *Driver) SetProgressBytes(fn ProgressBytesFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateRunning || d.state == StateAborting {
		return errs.NewArchiveError(errs.CodeOperationAborted, "cannot configure driver while an operation is running", nil)
	}
	d.progressBytes = fn
	return nil
}

// SetMetrics installs the metrics callback. Rejected while an operation
// is in flight.
func (d *Driver) SetMetrics(fn MetricsFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateRunning || d.state == StateAborting {
		return errs.NewArchiveError(errs.CodeOperationAborted, "cannot configure driver while an operation is running", nil)
	}
	d.metrics = fn
	return nil
}

// SetMasterKey installs the master key used for encryption/decryption.
// The driver copies the slice; callers retain ownership of the
// original. Rejected while an operation is in flight.
func (d *Driver) SetMasterKey(key []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateRunning || d.state == StateAborting {
		return errs.NewArchiveError(errs.CodeOperationAborted, "cannot configure driver while an operation is running", nil)
	}
	d.keyCtx.SetMasterKey(key)
	return nil
}

// Abort requests cancellation of the in-flight operation. Safe to call
// from another goroutine. The driver polls this flag at checkpoints;
// there is no mid-chunk cancellation.
func (d *Driver) Abort() {
	d.abort.Store(true)
}

// Close zeroes the master key and releases the cached AEAD service.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keyCtx.Close()
	if d.encSvc != nil {
		d.encSvc.Close()
		d.encSvc = nil
	}
	d.encCfg = nil
}

func (d *Driver) beginOperation() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateRunning || d.state == StateAborting {
		return errs.NewArchiveError(errs.CodeOperationAborted, "driver already has an operation in flight", nil)
	}
	d.state = StateRunning
	d.abort.Store(false)
	return nil
}

func (d *Driver) checkAbort() bool {
	if !d.abort.Load() {
		return false
	}
	d.mu.Lock()
	d.state = StateAborting
	d.mu.Unlock()
	return true
}

func (d *Driver) abortedError() error {
	return errs.NewArchiveError(errs.CodeOperationAborted, "operation aborted", errs.ErrCancelled)
}

func (d *Driver) fail(err error) error {
	d.mu.Lock()
	d.state = StateFailed
	d.mu.Unlock()
	d.logger.Error("pipeline operation failed", log.Code(errs.Code(err)), log.Err(err))
	return err
}

func (d *Driver) succeed() {
	d.mu.Lock()
	d.state = StateIdle
	d.mu.Unlock()
}

func (d *Driver) reportProgress(processed, total int64) error {
	if d.progress == nil {
		return nil
	}
	fraction := 1.0
	if total > 0 {
		fraction = float64(processed) / float64(total)
	}
	return d.progress(fraction)
}

func (d *Driver) reportProgressBytes(processed int64) error {
	if d.progressBytes == nil {
		return nil
	}
	return d.progressBytes(processed)
}

func (d *Driver) emitMetrics(inputSize, outputSize int64, start time.Time) {
	if d.metrics == nil {
		return
	}
	ratio := 1.0
	if inputSize > 0 {
		ratio = float64(outputSize) / float64(inputSize)
	}
	d.metrics(Metrics{
		Ratio:      ratio,
		Elapsed:    time.Since(start),
		InputSize:  inputSize,
		OutputSize: outputSize,
	})
}

// getService lazily builds (or reuses) the AEAD service for cfg. The
// service is cached on the driver so an Archive followed by an
// Unarchive on the same instance, with the same master key and
// encryption config, share the same derived key and salt — since the
// wire frame itself carries no salt (spec §4.2, §9 open question).
func (d *Driver) getService(cfg *EncCfg) (*aead.Service, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.keyCtx.Len() == 0 {
		return nil, errs.NewArchiveError(errs.CodeInvalidMasterKey, "encryption configured but no master key set", nil)
	}
	if d.encSvc != nil && encCfgEqual(d.encCfg, cfg) {
		return d.encSvc, nil
	}
	if d.encSvc != nil {
		d.logger.Debug("rekeying AEAD service", log.Phase("rekey"))
		d.encSvc.Close()
		d.encSvc = nil
	}

	svc, err := aead.NewService(d.keyCtx.MasterKey(), *cfg)
	if err != nil {
		return nil, errs.NewArchiveError(errs.CodeEncryptionError, "failed to initialize AEAD service", err)
	}
	d.encSvc = svc
	d.encCfg = cfg
	return svc, nil
}

func encCfgEqual(a, b *EncCfg) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Algorithm == b.Algorithm &&
		a.KeyVersion == b.KeyVersion &&
		a.KDF.Algorithm == b.KDF.Algorithm &&
		a.KDF.TimeCost == b.KDF.TimeCost &&
		a.KDF.MemoryCost == b.KDF.MemoryCost &&
		a.KDF.Parallelism == b.KDF.Parallelism &&
		a.KDF.Iterations == b.KDF.Iterations
}

// Archive packs entries, compresses, optionally checksums, and
// optionally encrypts, returning the resulting byte vector.
func (d *Driver) Archive(entries []ArchiveEntry, cfg *ArchiveConfig) ([]byte, error) {
	if err := d.beginOperation(); err != nil {
		return nil, err
	}
	return d.runArchivePhases(entries, cfg)
}

// runArchivePhases implements the pack/compress/checksum/encrypt
// sequence. The caller must already have transitioned the driver to
// Running via beginOperation.
func (d *Driver) runArchivePhases(entries []ArchiveEntry, cfg *ArchiveConfig) ([]byte, error) {
	start := time.Now()
	var total int64
	for _, e := range entries {
		total += int64(len(e.Data))
	}
	d.logger.Debug("archive starting", log.Op("archive"), log.Int("entries", len(entries)),
		log.Bytes(total), log.String("algorithm", cfg.Algorithm.String()))
	if total > cfg.MemoryLimit {
		return nil, d.fail(errs.NewArchiveError(errs.CodeMemoryLimitExceeded,
			fmt.Sprintf("input size %d exceeds memory limit %d", total, cfg.MemoryLimit), nil))
	}
	if cfg.ArchiveFormat == container.None && len(entries) != 1 {
		return nil, d.fail(errs.NewArchiveError(errs.CodeInvalidArchiveFormat,
			"none container requires exactly one entry", nil))
	}

	if d.checkAbort() {
		return nil, d.fail(d.abortedError())
	}

	method := container.Store
	if cfg.Algorithm == codec.Deflate {
		method = container.Deflate
	}
	packed, err := container.Pack(cfg.ArchiveFormat, toContainerEntries(entries), method, cfg.Level, d.checkAbort)
	if err != nil {
		return nil, d.fail(err)
	}
	d.logger.Debug("container packed", log.Phase("pack"), log.Bytes(int64(len(packed))))

	compressed, err := d.compress(packed, cfg, total)
	if err != nil {
		return nil, d.fail(err)
	}
	d.logger.Debug("compression complete", log.Phase("compress"), log.Bytes(int64(len(compressed))))

	output := compressed
	if cfg.Checksum {
		output = checksum.AppendFooter(output)
	}

	if cfg.Encryption != nil {
		svc, err := d.getService(cfg.Encryption)
		if err != nil {
			return nil, d.fail(err)
		}
		encrypted, err := svc.Encrypt(output, cfg.EncryptionContext, cfg.EncryptionAAD)
		if err != nil {
			return nil, d.fail(errs.NewArchiveError(errs.CodeEncryptionError, "encryption failed", err))
		}
		output = encrypted
		d.logger.Debug("output sealed", log.Phase("encrypt"), log.Bytes(int64(len(output))))
	}

	d.emitMetrics(total, int64(len(output)), start)
	d.succeed()
	d.logger.Info("archive complete", log.Op("archive"), log.Duration("elapsed", time.Since(start)),
		log.Bytes(total), log.Bytes(int64(len(output))))
	return output, nil
}

// compress drives a codec.Encoder over packed in ChunkSize windows,
// polling for cancellation and reporting fractional progress between
// chunks.
func (d *Driver) compress(packed []byte, cfg *ArchiveConfig, total int64) ([]byte, error) {
	var gz *codec.GzipOptions
	if cfg.Algorithm == codec.Gzip {
		gz = &codec.GzipOptions{Comment: cfg.Comment, Extra: cfg.Extra, OSCode: cfg.OSCode}
	}

	enc, err := codec.NewEncoder(cfg.Algorithm, cfg.Level, cfg.ChunkSize, gz, cfg.Dict)
	if err != nil {
		return nil, err
	}

	var processed int64
	for offset := 0; offset < len(packed); offset += cfg.ChunkSize {
		if d.checkAbort() {
			return nil, d.abortedError()
		}

		end := offset + cfg.ChunkSize
		if end > len(packed) {
			end = len(packed)
		}

		if _, err := enc.Write(packed[offset:end]); err != nil {
			return nil, err
		}
		processed += int64(end - offset)

		if err := d.reportProgress(processed, total); err != nil {
			return nil, errs.NewArchiveError(errs.CodeIOError, "progress callback failed", err)
		}
	}

	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return enc.Finish()
}

// Unarchive reverses Archive: optional decryption, optional checksum
// verification, chunked decompression, and container unpacking.
func (d *Driver) Unarchive(data []byte, cfg *ArchiveConfig) ([]ArchiveEntry, error) {
	if err := d.beginOperation(); err != nil {
		return nil, err
	}
	return d.runUnarchivePhases(data, cfg)
}

// runUnarchivePhases implements the decrypt/verify/decompress/unpack
// sequence. The caller must already have transitioned the driver to
// Running via beginOperation.
func (d *Driver) runUnarchivePhases(data []byte, cfg *ArchiveConfig) ([]ArchiveEntry, error) {
	start := time.Now()
	total := int64(len(data))
	d.logger.Debug("unarchive starting", log.Op("unarchive"), log.Bytes(total),
		log.String("algorithm", cfg.Algorithm.String()))
	if total > cfg.MemoryLimit {
		return nil, d.fail(errs.NewArchiveError(errs.CodeMemoryLimitExceeded,
			fmt.Sprintf("input size %d exceeds memory limit %d", total, cfg.MemoryLimit), nil))
	}

	if d.checkAbort() {
		return nil, d.fail(d.abortedError())
	}

	body := data
	if cfg.Encryption != nil {
		svc, err := d.getService(cfg.Encryption)
		if err != nil {
			return nil, d.fail(err)
		}
		decrypted, err := svc.Decrypt(body, cfg.EncryptionContext, cfg.EncryptionAAD)
		if err != nil {
			return nil, d.fail(errs.NewArchiveError(errs.CodeEncryptionError, "decryption failed", err))
		}
		body = decrypted
		d.logger.Debug("input opened", log.Phase("decrypt"), log.Bytes(int64(len(body))))
	}

	if cfg.Checksum {
		verified, err := checksum.SplitAndVerify(body)
		if err != nil {
			return nil, d.fail(err)
		}
		body = verified
		d.logger.Debug("checksum verified", log.Phase("checksum"))
	}

	decompressed, err := d.decompress(body, cfg)
	if err != nil {
		return nil, d.fail(err)
	}
	d.logger.Debug("decompression complete", log.Phase("decompress"), log.Bytes(int64(len(decompressed))))

	containerEntries, err := container.Unpack(cfg.ArchiveFormat, decompressed)
	if err != nil {
		return nil, d.fail(err)
	}

	entries := fromContainerEntries(containerEntries)
	d.emitMetrics(total, int64(len(decompressed)), start)
	d.succeed()
	d.logger.Info("unarchive complete", log.Op("unarchive"), log.Duration("elapsed", time.Since(start)),
		log.Bytes(total), log.Int("entries", len(entries)))
	return entries, nil
}

// decompress drives a codec.Decoder to exhaustion, polling for
// cancellation and reporting progress against consumed compressed
// bytes rather than decompressed output size.
func (d *Driver) decompress(body []byte, cfg *ArchiveConfig) ([]byte, error) {
	dec, err := codec.NewDecoder(cfg.Algorithm, body, cfg.Dict)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	inputLen := int64(len(body))
	out := make([]byte, 0, len(body))

	pool := util.NewBufferPool(cfg.ChunkSize)
	buf := pool.Get()
	defer pool.Put(buf)

	for {
		if d.checkAbort() {
			return nil, d.abortedError()
		}

		n, readErr := dec.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
			if err := d.reportProgress(dec.Consumed(), inputLen); err != nil {
				return nil, errs.NewArchiveError(errs.CodeIOError, "progress callback failed", err)
			}
		}
		if readErr != nil {
			break
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

func toContainerEntries(entries []ArchiveEntry) []container.Entry {
	out := make([]container.Entry, len(entries))
	for i, e := range entries {
		out[i] = container.Entry{
			Name:         e.Name,
			Data:         e.Data,
			ModifiedTime: e.ModifiedTime,
			Permissions:  e.Permissions,
		}
	}
	return out
}

func fromContainerEntries(entries []container.Entry) []ArchiveEntry {
	out := make([]ArchiveEntry, len(entries))
	for i, e := range entries {
		out[i] = ArchiveEntry{
			Name:         e.Name,
			Data:         e.Data,
			ModifiedTime: e.ModifiedTime,
			Permissions:  e.Permissions,
			Checksum:     checksum.Sum(e.Data),
		}
	}
	return out
}

// MIMEType reports the informative (non-authoritative) content type
// for a successful Archive() call under cfg: when encryption is
// configured the outer wrapper is opaque (application/octet-stream)
// rather than the inner codec's type, per spec §9.3.
func MIMEType(cfg *ArchiveConfig) string {
	if cfg.Encryption != nil {
		return "application/octet-stream"
	}
	return cfg.Algorithm.MIMEType()
}
