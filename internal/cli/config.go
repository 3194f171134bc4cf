package cli

import (
	"fmt"
	"os"
	"strings"

	"archivepipe/internal/aead"
	"archivepipe/internal/codec"
	"archivepipe/internal/container"
	"archivepipe/internal/kdf"
	"archivepipe/internal/pipeline"

	"github.com/spf13/cobra"
)

// pipelineFlags holds the flag values shared by both archive and
// unarchive, since the wire format carries no self-describing header
// (spec §6): unarchive must be invoked with the same algorithm/
// container/checksum/encryption choices used at archive time.
type pipelineFlags struct {
	algorithm string
	level     int
	format    string
	chunkSize int
	checksum  bool

	encrypt    bool
	keyFile    string
	keyVersion uint32
	context    string
	aad        string
	kdfAlgo    string
	argonTime  uint32
	argonMemKB uint32
	argonPar   uint8
}

func addPipelineFlags(cmd *cobra.Command, f *pipelineFlags) {
	cmd.Flags().StringVar(&f.algorithm, "algorithm", "gzip", "Compression algorithm: gzip, zlib, deflate, brotli, none")
	cmd.Flags().IntVar(&f.level, "level", 6, "Compression level (algorithm-specific range)")
	cmd.Flags().StringVar(&f.format, "format", "none", "Container format: none, zip")
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", 65536, "Chunk size in bytes for streaming compression")
	cmd.Flags().BoolVar(&f.checksum, "checksum", false, "Append a trailing CRC-32 checksum")

	cmd.Flags().BoolVar(&f.encrypt, "encrypt", false, "Wrap the output in AES-GCM authenticated encryption")
	cmd.Flags().StringVar(&f.keyFile, "key-file", "", "Path to a file holding raw master key bytes (required with --encrypt)")
	cmd.Flags().Uint32Var(&f.keyVersion, "key-version", 1, "Key version byte bound into the encryption frame (0-255)")
	cmd.Flags().StringVar(&f.context, "context", "", "Context string bound into the AEAD tag")
	cmd.Flags().StringVar(&f.aad, "aad", "", "Additional authenticated data")
	cmd.Flags().StringVar(&f.kdfAlgo, "kdf", "argon2id", "Key derivation function: argon2id, pbkdf2")
	cmd.Flags().Uint32Var(&f.argonTime, "argon2-time", 3, "Argon2id time cost")
	cmd.Flags().Uint32Var(&f.argonMemKB, "argon2-memory-kib", 65536, "Argon2id memory cost in KiB")
	cmd.Flags().Uint8Var(&f.argonPar, "argon2-parallelism", 1, "Argon2id parallelism")
}

func (f *pipelineFlags) algorithmValue() (codec.Algorithm, error) {
	switch strings.ToLower(f.algorithm) {
	case "gzip":
		return codec.Gzip, nil
	case "zlib":
		return codec.Zlib, nil
	case "deflate":
		return codec.Deflate, nil
	case "brotli":
		return codec.Brotli, nil
	case "none":
		return codec.None, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q", f.algorithm)
	}
}

func (f *pipelineFlags) formatValue() (container.Format, error) {
	switch strings.ToLower(f.format) {
	case "none", "":
		return container.None, nil
	case "zip":
		return container.ZIP, nil
	default:
		return 0, fmt.Errorf("unknown container format %q", f.format)
	}
}

// buildConfig assembles and validates an ArchiveConfig from the parsed
// flags.
func (f *pipelineFlags) buildConfig() (*pipeline.ArchiveConfig, error) {
	algo, err := f.algorithmValue()
	if err != nil {
		return nil, err
	}
	format, err := f.formatValue()
	if err != nil {
		return nil, err
	}

	b := pipeline.NewConfigBuilder().
		WithAlgorithm(algo).
		WithLevel(f.level).
		WithChunkSize(f.chunkSize).
		WithChecksum(f.checksum).
		WithArchiveFormat(format)

	if f.encrypt {
		kdfCfg, err := f.kdfConfig()
		if err != nil {
			return nil, err
		}
		b = b.WithEncryption(&aead.Config{
			Algorithm:  aead.AES256GCM,
			KDF:        kdfCfg,
			KeyVersion: f.keyVersion,
		}).
			WithEncryptionContext([]byte(f.context)).
			WithEncryptionAAD([]byte(f.aad))
	}

	return b.Build()
}

func (f *pipelineFlags) kdfConfig() (kdf.Config, error) {
	switch strings.ToLower(f.kdfAlgo) {
	case "argon2id", "":
		return kdf.Config{
			Algorithm:   kdf.Argon2id,
			TimeCost:    f.argonTime,
			MemoryCost:  f.argonMemKB,
			Parallelism: f.argonPar,
		}, nil
	case "pbkdf2":
		return kdf.Config{Algorithm: kdf.PBKDF2SHA256, Iterations: 600000}, nil
	default:
		return kdf.Config{}, fmt.Errorf("unknown KDF %q", f.kdfAlgo)
	}
}

// loadMasterKey reads the raw master key bytes from keyFile. Required
// only when encryption is enabled.
func loadMasterKey(keyFile string) ([]byte, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("--key-file is required with --encrypt")
	}
	return os.ReadFile(keyFile)
}
