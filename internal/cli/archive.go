package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"archivepipe/internal/pipeline"

	"github.com/spf13/cobra"
)

func init() {
	archiveCmd.SilenceErrors = true
	archiveCmd.SilenceUsage = true
	rootCmd.AddCommand(archiveCmd)
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Pack, compress, and optionally encrypt files into one output",
	Long: `Pack one or more input files into a single output blob.

Examples:
  archivepipe archive -i notes.txt -o notes.txt.gz
  archivepipe archive -i a.txt -i b.txt -o bundle.zip --format zip --algorithm deflate
  archivepipe archive -i secret.txt -o secret.bin --encrypt --key-file master.key --context tenantA`,
	RunE: runArchive,
}

var (
	archInput  []string
	archOutput string
	archQuiet  bool
	archFlags  pipelineFlags
)

func init() {
	archiveCmd.Flags().StringArrayVarP(&archInput, "input", "i", nil, "Input file(s) to archive (repeatable)")
	archiveCmd.Flags().StringVarP(&archOutput, "output", "o", "", "Output file path")
	archiveCmd.Flags().BoolVarP(&archQuiet, "quiet", "q", false, "Suppress progress output")
	addPipelineFlags(archiveCmd, &archFlags)
	_ = archiveCmd.MarkFlagRequired("input")
	_ = archiveCmd.MarkFlagRequired("output")
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := archFlags.buildConfig()
	if err != nil {
		return err
	}

	var masterKey []byte
	if archFlags.encrypt {
		masterKey, err = loadMasterKey(archFlags.keyFile)
		if err != nil {
			return err
		}
	}

	entries := make([]pipeline.ArchiveEntry, 0, len(archInput))
	for _, path := range archInput {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		entry := pipeline.NewArchiveEntry(filepath.Base(path), data)
		if info, err := os.Stat(path); err == nil {
			mtime := info.ModTime().Unix()
			entry.SetModifiedTime(mtime)
			entry.SetPermissions(uint32(info.Mode().Perm()))
		}
		entries = append(entries, *entry)
	}

	d := pipeline.NewDriver()
	defer d.Close()
	if masterKey != nil {
		if err := d.SetMasterKey(masterKey); err != nil {
			return err
		}
	}

	reporter := NewReporter(d, archQuiet)
	globalReporter = reporter

	out, err := d.Archive(entries, cfg)
	reporter.Finish()
	if err != nil {
		reporter.PrintError("%v", err)
		return err
	}

	if err := os.WriteFile(archOutput, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", archOutput, err)
	}
	return nil
}
