// Package cli provides the command-line interface for the archival
// pipeline.
package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set by main.go.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "archivepipe",
	Short: "Pack, compress, checksum, and optionally encrypt byte blobs",
	Long: `archivepipe turns one or more named byte blobs into a single
output and reverses the transformation. The pipeline
composes, in order: optional container packing (pass-through or ZIP),
generic stream compression (gzip, zlib, deflate, brotli, or none), an
optional trailing CRC-32 checksum, and optional AES-GCM encryption with
a context-binding check.`,
	Version: Version,
}

// globalReporter receives SIGINT/SIGTERM and forwards it to the
// in-flight driver as a cooperative abort request.
var globalReporter *Reporter

// Execute runs the CLI application and returns the process exit code.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		if globalReporter != nil {
			globalReporter.Cancel()
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
