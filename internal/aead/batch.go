package aead

import (
	"fmt"

	"archivepipe/internal/errs"
)

// BatchResult collects the outcome of a batch encrypt/decrypt call:
// successful outputs in input order, and textual per-item error
// records for the items that failed. A failed item never aborts the
// rest of the batch (spec §4.3 "Batch mode").
type BatchResult struct {
	Successes [][]byte
	Errors    []string
}

// BatchProgressFunc is invoked with a percentage in [0, 100] after
// every item, and once more with exactly 100.0 at completion.
type BatchProgressFunc func(percent float64) error

// BatchEncrypt encrypts each item in items with the shared context and
// aad, sequentially, collecting successes and per-item errors. It
// enforces maxMemoryBytes against the sum of input sizes before
// starting any work when maxMemoryBytes > 0.
func (s *Service) BatchEncrypt(items [][]byte, context, aad []byte, maxMemoryBytes int64, progress BatchProgressFunc) (*BatchResult, error) {
	return s.runBatch(items, maxMemoryBytes, progress,
		errs.CodeBatchMemoryLimit, errs.CodeBatchProgressCallback, errs.CodeBatchFinalCallback,
		func(item []byte) ([]byte, error) { return s.Encrypt(item, context, aad) })
}

// BatchDecrypt decrypts each item in ciphertexts with the shared
// context and aad, sequentially, collecting successes and per-item
// errors.
func (s *Service) BatchDecrypt(ciphertexts [][]byte, context, aad []byte, maxMemoryBytes int64, progress BatchProgressFunc) (*BatchResult, error) {
	return s.runBatch(ciphertexts, maxMemoryBytes, progress,
		errs.CodeBatchMemoryLimitDecrypt, errs.CodeBatchProgressCallbackDecrypt, errs.CodeBatchFinalCallbackDecrypt,
		func(item []byte) ([]byte, error) { return s.Decrypt(item, context, aad) })
}

func (s *Service) runBatch(
	items [][]byte,
	maxMemoryBytes int64,
	progress BatchProgressFunc,
	memLimitCode, progressCode, finalCode int,
	op func([]byte) ([]byte, error),
) (*BatchResult, error) {
	var totalBytes int64
	for _, item := range items {
		totalBytes += int64(len(item))
	}
	if maxMemoryBytes > 0 && totalBytes > maxMemoryBytes {
		return nil, errs.NewCryptoError(memLimitCode,
			fmt.Sprintf("input size %d exceeds max memory limit %d", totalBytes, maxMemoryBytes), nil)
	}

	result := &BatchResult{
		Successes: make([][]byte, 0, len(items)),
		Errors:    make([]string, 0),
	}

	var processedBytes int64
	for index, item := range items {
		out, err := op(item)
		processedBytes += int64(len(item))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Item %d: %s", index, err.Error()))
		} else {
			result.Successes = append(result.Successes, out)
		}

		if progress != nil {
			pct := 100.0
			if totalBytes > 0 {
				pct = (float64(processedBytes) / float64(totalBytes)) * 100.0
			}
			if err := progress(pct); err != nil {
				return nil, errs.NewCryptoError(progressCode, "progress callback failed", err)
			}
		}
	}

	if progress != nil {
		if err := progress(100.0); err != nil {
			return nil, errs.NewCryptoError(finalCode, "final progress callback failed", err)
		}
	}

	return result, nil
}
