// Package kdf derives symmetric keys from caller-supplied master key
// material for package aead. Two algorithms are supported: Argon2id and
// PBKDF2-HMAC-SHA256. Both always produce a 32-byte key.
package kdf

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"archivepipe/internal/crypto"
	"archivepipe/internal/errs"
)

// Algorithm selects the key-derivation function.
type Algorithm int

const (
	Argon2id Algorithm = iota
	PBKDF2SHA256
)

func (a Algorithm) String() string {
	switch a {
	case Argon2id:
		return "argon2id"
	case PBKDF2SHA256:
		return "pbkdf2-sha256"
	default:
		return "unknown"
	}
}

// KeySize is the fixed output length for both supported algorithms.
const KeySize = 32

// SaltSize is the recommended random salt length for DeriveKey.
const SaltSize = 32

// Config carries the tunable parameters for key derivation. Zero-value
// Config is invalid; use DefaultConfig or set fields explicitly.
type Config struct {
	Algorithm Algorithm

	// Argon2id parameters.
	TimeCost    uint32
	MemoryCost  uint32 // KiB
	Parallelism uint8

	// PBKDF2 parameter.
	Iterations uint32
}

// DefaultConfig returns Argon2id parameters suitable for interactive use
// (comparable to the teacher's normal-mode Argon2 parameters).
func DefaultConfig() Config {
	return Config{
		Algorithm:   Argon2id,
		TimeCost:    4,
		MemoryCost:  1 << 20, // 1 GiB
		Parallelism: 4,
	}
}

// Validate checks that the configured parameters are usable.
func (c Config) Validate() error {
	switch c.Algorithm {
	case Argon2id:
		if c.TimeCost == 0 || c.MemoryCost == 0 || c.Parallelism == 0 {
			return errs.NewCryptoError(errs.CodeInvalidArgon2Params, "invalid Argon2 parameters", nil)
		}
	case PBKDF2SHA256:
		if c.Iterations == 0 {
			return errs.NewCryptoError(errs.CodeInvalidArgon2Params, "invalid PBKDF2 iteration count", nil)
		}
	default:
		return errs.NewCryptoError(errs.CodeInvalidArgon2Params, "unsupported KDF algorithm", nil)
	}
	return nil
}

// RandomSalt draws a fresh SaltSize-byte salt from a CSPRNG.
func RandomSalt() ([]byte, error) {
	return crypto.RandomBytes(SaltSize)
}

// DeriveKey derives a KeySize-byte key from masterKey and salt per cfg.
//
// CRITICAL: for a given masterKey+salt+cfg, the derived key must be
// reproducible — these parameters MUST NOT change for data that is
// already encrypted under them.
func DeriveKey(masterKey, salt []byte, cfg Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(masterKey) == 0 {
		return nil, errs.NewCryptoError(errs.CodeInvalidArgon2Params, "master key must not be empty", nil)
	}
	if len(salt) == 0 {
		return nil, errs.NewCryptoError(errs.CodeInvalidArgon2Params, "salt must not be empty", nil)
	}

	var key []byte
	switch cfg.Algorithm {
	case Argon2id:
		key = argon2.IDKey(masterKey, salt, cfg.TimeCost, cfg.MemoryCost, cfg.Parallelism, KeySize)
		if allZero(key) {
			return nil, errs.NewCryptoError(errs.CodeArgon2Failed, "Argon2 key derivation failed", fmt.Errorf("produced zero key"))
		}
	case PBKDF2SHA256:
		key = pbkdf2.Key(masterKey, salt, int(cfg.Iterations), KeySize, sha256.New)
		if allZero(key) {
			return nil, errs.NewCryptoError(errs.CodeArgon2Failed, "PBKDF2 key derivation failed", fmt.Errorf("produced zero key"))
		}
	default:
		return nil, errs.NewCryptoError(errs.CodeInvalidArgon2Params, "unsupported KDF algorithm", nil)
	}

	return key, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return len(b) > 0
}
