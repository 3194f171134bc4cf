package aead

import (
	"archivepipe/internal/crypto"
	"archivepipe/internal/errs"
)

// StreamState is a single-message streaming-encryption session: a
// frozen nonce chosen at init, an accumulation buffer, and a running
// byte counter. It implements single-shot-with-chunked-accumulation,
// NOT incremental AEAD — the entire accumulated buffer is sealed in one
// call under one nonce when the final chunk arrives (spec §4.3 "Stream
// mode"). A StreamState MUST NOT be reused across messages; construct a
// new one via InitStreamEncrypt for each.
type StreamState struct {
	buffer         []byte
	nonce          []byte
	processedBytes int64
	finalized      bool
}

// ProcessedBytes returns the number of plaintext bytes buffered so far.
func (st *StreamState) ProcessedBytes() int64 { return st.processedBytes }

// StreamProgressFunc is invoked with the cumulative processed-byte
// count after every chunk (spec §9.4: bytes, not a fraction, since the
// total stream length is unknown to the AEAD layer).
type StreamProgressFunc func(processedBytes int64) error

// InitStreamEncrypt chooses a fresh nonce for a new streaming session.
func (s *Service) InitStreamEncrypt() (*StreamState, error) {
	nonce, err := s.generateNonce()
	if err != nil {
		return nil, err
	}
	return &StreamState{nonce: nonce}, nil
}

// StreamEncryptChunk buffers data into state. When isFinal is false it
// returns an empty slice. When isFinal is true, it seals
// buffer‖context under the session's nonce, returns the framed
// ciphertext, and zeroes the buffer. Calling it again on an already
// finalized state returns an error.
func (s *Service) StreamEncryptChunk(state *StreamState, data, context, aad []byte, isFinal bool, progress StreamProgressFunc) ([]byte, error) {
	if state.finalized {
		return nil, errs.NewCryptoError(errs.CodeStreamEncryptFailed, "stream encryption failed", nil)
	}

	state.buffer = append(state.buffer, data...)
	state.processedBytes += int64(len(data))

	if progress != nil {
		if err := progress(state.processedBytes); err != nil {
			return nil, errs.NewCryptoError(errs.CodeStreamProgressCallback, "progress callback failed", err)
		}
	}

	if !isFinal {
		return []byte{}, nil
	}

	ciphertext := s.seal(state.buffer, context, aad, state.nonce)
	crypto.SecureZero(state.buffer)
	state.buffer = nil
	state.finalized = true

	if ciphertext == nil {
		return nil, errs.NewCryptoError(errs.CodeStreamEncryptFailed, "stream encryption failed", nil)
	}
	return ciphertext, nil
}
