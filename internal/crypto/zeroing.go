// Package crypto provides shared random-byte and memory-zeroing
// primitives used by the kdf and aead packages.
// This file contains memory zeroing utilities for secure cleanup of sensitive data.

package crypto

import (
	"crypto/subtle"
)

// SecureZero overwrites a byte slice with zeros to prevent sensitive data
// from persisting in memory. This helps mitigate memory dump attacks and
// reduces the window during which keys are recoverable from RAM.
//
// ⚠️ SECURITY NOTE: Due to Go's garbage collector and potential compiler
// optimizations, this function cannot guarantee complete erasure. However,
// it significantly reduces the attack surface compared to no cleanup.
//
// The function uses subtle.ConstantTimeCopy to prevent the compiler from
// optimizing away the zeroing operation.
func SecureZero(b []byte) {
	if len(b) == 0 {
		return
	}
	// Use constant-time copy from a zero slice to prevent optimization removal
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// SecureZeroMultiple zeros multiple byte slices in a single call.
// Useful for cleaning up multiple related keys or buffers.
func SecureZeroMultiple(slices ...[]byte) {
	for _, s := range slices {
		SecureZero(s)
	}
}

// KeyMaterial wraps sensitive key data with automatic zeroing on Close().
// Use this for temporary key storage that must be cleaned up.
//
// Example:
//
//	km := NewKeyMaterial(derivedKey)
//	defer km.Close()
//	// ... use km.Bytes() ...
type KeyMaterial struct {
	data   []byte
	closed bool
}

// NewKeyMaterial creates a new KeyMaterial wrapper.
// The data is copied to prevent modification of the original slice.
func NewKeyMaterial(data []byte) *KeyMaterial {
	if data == nil {
		return &KeyMaterial{}
	}
	// Make a copy to own the data
	copied := make([]byte, len(data))
	copy(copied, data)
	return &KeyMaterial{data: copied}
}

// Bytes returns the underlying key data.
// Returns nil if the KeyMaterial has been closed.
func (km *KeyMaterial) Bytes() []byte {
	if km.closed {
		return nil
	}
	return km.data
}

// Len returns the length of the key data.
func (km *KeyMaterial) Len() int {
	if km.closed || km.data == nil {
		return 0
	}
	return len(km.data)
}

// Close securely zeros the key data and marks it as closed.
// This method is idempotent - multiple calls are safe. On a KeyMaterial
// built from nil data, Close does nothing and IsClosed stays false.
func (km *KeyMaterial) Close() {
	if km.closed || km.data == nil {
		return
	}
	SecureZero(km.data)
	km.data = nil
	km.closed = true
}

// IsClosed returns whether the KeyMaterial has been closed.
func (km *KeyMaterial) IsClosed() bool {
	return km.closed
}

// CryptoContext owns the caller-supplied master key for one archive/
// unarchive session. A session may rotate its key any number of times
// via SetMasterKey; each rotation zeros the previously held bytes
// before copying in the new ones.
type CryptoContext struct {
	masterKey []byte
	closed    bool
}

// SetMasterKey copies key into the context, zeroing out whatever key
// it was previously holding first. A nil or empty key clears the
// context without marking it closed.
func (cc *CryptoContext) SetMasterKey(key []byte) {
	SecureZero(cc.masterKey)
	cc.masterKey = append([]byte(nil), key...)
	cc.closed = false
}

// MasterKey returns the held key, or nil if the context is empty or
// has been closed. The caller must not retain the returned slice past
// the next SetMasterKey or Close call.
func (cc *CryptoContext) MasterKey() []byte {
	if cc.closed {
		return nil
	}
	return cc.masterKey
}

// Len reports the length of the held key, or 0 if empty or closed.
func (cc *CryptoContext) Len() int {
	if cc.closed {
		return 0
	}
	return len(cc.masterKey)
}

// Close securely zeros the held key. Idempotent; safe to call multiple
// times or on an empty context.
func (cc *CryptoContext) Close() {
	if cc.closed {
		return
	}
	SecureZero(cc.masterKey)
	cc.masterKey = nil
	cc.closed = true
}
