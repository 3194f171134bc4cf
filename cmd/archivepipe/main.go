// archivepipe packs, compresses, checksums, and optionally encrypts
// byte blobs via a small set of composable stages:
//   - container packing (pass-through or ZIP)
//   - stream compression (gzip, zlib, raw deflate, brotli, or none)
//   - an optional trailing CRC-32 checksum
//   - optional AES-GCM authenticated encryption with context-binding
//
// The reverse path (unarchive) is the exact inverse.
package main

import (
	"os"

	"archivepipe/internal/cli"
)

const version = "v0.1"

func main() {
	os.Exit(cli.Execute(version))
}
