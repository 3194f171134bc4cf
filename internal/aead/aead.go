// Package aead implements the authenticated-encryption layer: key
// derivation from a caller-supplied master key, AES-GCM encrypt/decrypt
// with a version+nonce frame, context-binding, batch processing, and
// single-call streaming.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"fmt"

	"archivepipe/internal/crypto"
	"archivepipe/internal/errs"
	"archivepipe/internal/kdf"
)

// Algorithm selects the AES-GCM key size.
type Algorithm int

const (
	AES256GCM Algorithm = iota
	AES128GCM
)

const (
	nonceSize   = 12
	tagSize     = 16
	versionSize = 1
	frameHeader = versionSize + nonceSize // 13
)

// Config carries the parameters a Service is constructed with. Mirrors
// the wire-relevant fields of ArchiveConfig.EncCfg (spec §3). KeyVersion
// is typed as a wider integer than the single byte it occupies on the
// wire (spec §9.2); pipeline.ConfigBuilder.Build() rejects values above
// 255, and a Service keeps only the low byte.
type Config struct {
	Algorithm  Algorithm
	KDF        kdf.Config
	KeyVersion uint32
}

// SecureBytes is an owned copy of sensitive byte material that is
// zeroed on Close and compared in constant time.
type SecureBytes struct {
	km *crypto.KeyMaterial
}

// NewSecureBytes copies data into a new SecureBytes.
func NewSecureBytes(data []byte) *SecureBytes {
	return &SecureBytes{km: crypto.NewKeyMaterial(data)}
}

// Bytes returns the underlying data, or nil if closed.
func (s *SecureBytes) Bytes() []byte { return s.km.Bytes() }

// Len returns the length of the data, or 0 if closed.
func (s *SecureBytes) Len() int { return s.km.Len() }

// Equal reports whether s holds the same bytes as other, in constant time.
func (s *SecureBytes) Equal(other []byte) bool {
	b := s.km.Bytes()
	if len(b) != len(other) {
		return false
	}
	return subtle.ConstantTimeCompare(b, other) == 1
}

// Close securely zeros the underlying data.
func (s *SecureBytes) Close() { s.km.Close() }

// Service holds a derived AES-GCM key and performs encrypt/decrypt
// operations against it. One Service corresponds to one (master key,
// salt, config) triple; construct a new Service to rotate any of them.
type Service struct {
	algorithm  Algorithm
	keyVersion uint8
	salt       []byte
	key        *crypto.KeyMaterial
	gcm        cipher.AEAD
}

// NewService derives a fresh random salt and builds a Service from
// masterKey under cfg. The salt is NOT persisted into the ciphertext
// frame (see Salt and NewServiceWithSalt) — this matches the documented
// frame format in spec §6 exactly, at the cost that a second process
// cannot reconstruct this exact key from masterKey alone without also
// knowing the salt out of band.
func NewService(masterKey []byte, cfg Config) (*Service, error) {
	salt, err := kdf.RandomSalt()
	if err != nil {
		return nil, errs.NewCryptoError(errs.CodeNonceGenerationFailed, "salt generation failed", err)
	}
	return NewServiceWithSalt(masterKey, salt, cfg)
}

// NewServiceWithSalt builds a Service from an explicit salt, letting a
// caller that needs to reconstruct the same derived key across
// processes persist and replay the salt itself.
func NewServiceWithSalt(masterKey, salt []byte, cfg Config) (*Service, error) {
	derived, err := kdf.DeriveKey(masterKey, salt, cfg.KDF)
	if err != nil {
		return nil, err
	}
	defer crypto.SecureZero(derived)

	var keyBytes []byte
	var code int
	switch cfg.Algorithm {
	case AES256GCM:
		keyBytes = derived[:32]
		code = errs.CodeInvalidAES256Key
	case AES128GCM:
		keyBytes = derived[:16]
		code = errs.CodeInvalidAES128Key
	default:
		return nil, errs.NewCryptoError(errs.CodeInvalidArgon2Params, "unsupported AEAD algorithm", nil)
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, errs.NewCryptoError(code, "invalid AES key length", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, errs.NewCryptoError(code, "invalid AES key length", err)
	}

	saltCopy := make([]byte, len(salt))
	copy(saltCopy, salt)

	return &Service{
		algorithm:  cfg.Algorithm,
		keyVersion: byte(cfg.KeyVersion), // ver = key_version & 0xFF, spec §4.2
		salt:       saltCopy,
		key:        crypto.NewKeyMaterial(keyBytes),
		gcm:        gcm,
	}, nil
}

// Salt returns the salt this Service's key was derived with, so a
// caller that opts into persisting it (see NewServiceWithSalt) can do so.
func (s *Service) Salt() []byte {
	out := make([]byte, len(s.salt))
	copy(out, s.salt)
	return out
}

// Close zeros the derived key. Safe to call multiple times.
func (s *Service) Close() {
	s.key.Close()
	crypto.SecureZero(s.salt)
}

func (s *Service) generateNonce() ([]byte, error) {
	nonce, err := crypto.RandomBytes(nonceSize)
	if err != nil {
		return nil, errs.NewCryptoError(errs.CodeNonceGenerationFailed, "nonce generation failed", err)
	}
	return nonce, nil
}

// seal runs AES-GCM over plaintext‖context under nonce, and frames the
// result as [version][nonce][ciphertext‖tag].
func (s *Service) seal(plaintext, context, aad, nonce []byte) []byte {
	msg := make([]byte, 0, len(plaintext)+len(context))
	msg = append(msg, plaintext...)
	msg = append(msg, context...)

	sealed := s.gcm.Seal(nil, nonce, msg, aad)

	out := make([]byte, 0, frameHeader+len(sealed))
	out = append(out, s.keyVersion)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out
}

// Encrypt seals plaintext, binding context into the sealed message and
// aad as associated data. See spec §4.3 "Encrypt contract".
func (s *Service) Encrypt(plaintext, context, aad []byte) ([]byte, error) {
	nonce, err := s.generateNonce()
	if err != nil {
		return nil, err
	}
	ciphertext := s.seal(plaintext, context, aad, nonce)
	if ciphertext == nil {
		return nil, errs.NewCryptoError(errs.CodeEncryptionFailed, "encryption operation failed", nil)
	}
	return ciphertext, nil
}

// Decrypt reverses Encrypt, verifying the version byte and the bound
// context in constant time. See spec §4.3 "Decrypt contract".
func (s *Service) Decrypt(ciphertext, context, aad []byte) ([]byte, error) {
	if len(ciphertext) < frameHeader {
		return nil, errs.NewCryptoError(errs.CodeInvalidCiphertextLen, "invalid ciphertext length", nil)
	}

	version := ciphertext[0]
	if version != s.keyVersion {
		return nil, errs.NewCryptoError(errs.CodeKeyVersionMismatch,
			fmt.Sprintf("key version mismatch: expected %d, got %d", s.keyVersion, version), nil)
	}

	nonce := ciphertext[1:frameHeader]
	body := ciphertext[frameHeader:]

	plaintext, err := s.gcm.Open(nil, nonce, body, aad)
	if err != nil {
		return nil, errs.NewCryptoError(errs.CodeDecryptionFailed, "decryption operation failed", nil)
	}

	if len(plaintext) <= len(context) {
		return nil, errs.NewCryptoError(errs.CodeInvalidPlaintextLen, "invalid plaintext length", nil)
	}

	splitAt := len(plaintext) - len(context)
	data, ctxPart := plaintext[:splitAt], plaintext[splitAt:]
	if subtle.ConstantTimeCompare(ctxPart, context) != 1 {
		crypto.SecureZero(plaintext)
		return nil, errs.NewCryptoError(errs.CodeContextValidationFailed, "context mismatch", nil)
	}

	out := make([]byte, len(data))
	copy(out, data)
	crypto.SecureZero(plaintext)
	return out, nil
}

// EstimateEncryptedSize returns the ciphertext length for an n-byte
// plaintext, ignoring context length (spec §4.3).
func (s *Service) EstimateEncryptedSize(n int) int {
	return n + nonceSize + tagSize + versionSize
}
