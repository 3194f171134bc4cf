package pipeline

import (
	"archivepipe/internal/aead"
	"archivepipe/internal/codec"
	"archivepipe/internal/container"
	"archivepipe/internal/errs"
	"archivepipe/internal/util"
)

// MaxMemoryLimit is the hard ceiling on ArchiveConfig.MemoryLimit.
const MaxMemoryLimit = 256 * util.MiB

const defaultChunkSize = 65536

// EncCfg configures the optional authenticated-encryption layer. It is
// a thin alias over aead.Config: the AEAD service has no concept of
// its own beyond what the pipeline config already carries.
type EncCfg = aead.Config

// ArchiveConfig is the immutable, build-time-validated configuration
// for one archive/unarchive call.
type ArchiveConfig struct {
	Algorithm         codec.Algorithm
	Level             int
	ChunkSize         int
	Comment           string
	Extra             []byte
	OSCode            *byte
	Checksum          bool
	MemoryLimit       int64
	Dict              []byte
	ArchiveFormat     container.Format
	Encryption        *EncCfg
	EncryptionContext []byte
	EncryptionAAD     []byte
}

// ConfigBuilder validates an ArchiveConfig before any codec or crypto
// work starts, the way the teacher validates a VolumeHeader/
// EncryptRequest before touching the cipher layer.
type ConfigBuilder struct {
	cfg ArchiveConfig
}

// NewConfigBuilder returns a builder seeded with the spec's defaults:
// gzip, level 6, 64 KiB chunks, 256 MiB memory limit, no container,
// no checksum, no encryption.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: ArchiveConfig{
		Algorithm:     codec.Gzip,
		Level:         6,
		ChunkSize:     defaultChunkSize,
		MemoryLimit:   MaxMemoryLimit,
		ArchiveFormat: container.None,
	}}
}

func (b *ConfigBuilder) WithAlgorithm(a codec.Algorithm) *ConfigBuilder {
	b.cfg.Algorithm = a
	return b
}

func (b *ConfigBuilder) WithLevel(level int) *ConfigBuilder {
	b.cfg.Level = level
	return b
}

func (b *ConfigBuilder) WithChunkSize(size int) *ConfigBuilder {
	b.cfg.ChunkSize = size
	return b
}

func (b *ConfigBuilder) WithGzipHeader(comment string, extra []byte, osCode *byte) *ConfigBuilder {
	b.cfg.Comment = comment
	b.cfg.Extra = extra
	b.cfg.OSCode = osCode
	return b
}

func (b *ConfigBuilder) WithChecksum(enabled bool) *ConfigBuilder {
	b.cfg.Checksum = enabled
	return b
}

func (b *ConfigBuilder) WithMemoryLimit(limit int64) *ConfigBuilder {
	b.cfg.MemoryLimit = limit
	return b
}

func (b *ConfigBuilder) WithDict(dict []byte) *ConfigBuilder {
	b.cfg.Dict = dict
	return b
}

func (b *ConfigBuilder) WithArchiveFormat(format container.Format) *ConfigBuilder {
	b.cfg.ArchiveFormat = format
	return b
}

func (b *ConfigBuilder) WithEncryption(enc *EncCfg) *ConfigBuilder {
	b.cfg.Encryption = enc
	return b
}

func (b *ConfigBuilder) WithEncryptionContext(context []byte) *ConfigBuilder {
	b.cfg.EncryptionContext = context
	return b
}

func (b *ConfigBuilder) WithEncryptionAAD(aad []byte) *ConfigBuilder {
	b.cfg.EncryptionAAD = aad
	return b
}

// Build validates the accumulated configuration and returns an
// immutable ArchiveConfig, or the first validation failure encountered.
func (b *ConfigBuilder) Build() (*ArchiveConfig, error) {
	cfg := b.cfg

	if cfg.ChunkSize <= 0 {
		return nil, errs.NewArchiveError(errs.CodeInvalidChunkSize, "chunk_size must be greater than zero", nil)
	}
	if err := codec.ValidateLevel(cfg.Algorithm, cfg.Level); err != nil {
		return nil, err
	}
	if cfg.MemoryLimit <= 0 || cfg.MemoryLimit > MaxMemoryLimit {
		return nil, errs.NewArchiveError(errs.CodeMemoryLimitExceeded,
			"memory_limit must be in (0, 256 MiB]", nil)
	}
	if cfg.ArchiveFormat == container.ZIP && cfg.Algorithm != codec.Deflate && cfg.Algorithm != codec.None {
		return nil, errs.NewArchiveError(errs.CodeUnsupportedAlgorithm,
			"zip container only accepts deflate or none compression", nil)
	}
	if cfg.Encryption != nil && cfg.Encryption.KeyVersion > 255 {
		return nil, errs.NewArchiveError(errs.CodeInvalidKeyVersion,
			"key_version must fit in a single byte (<= 255)", nil)
	}

	result := cfg
	return &result, nil
}
