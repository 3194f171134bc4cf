package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"archivepipe/internal/pipeline"

	"github.com/spf13/cobra"
)

func init() {
	unarchiveCmd.SilenceErrors = true
	unarchiveCmd.SilenceUsage = true
	rootCmd.AddCommand(unarchiveCmd)
}

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive",
	Short: "Reverse archive: decrypt, verify, decompress, and unpack",
	Long: `Reverse the archive pipeline. The algorithm/format/checksum/
encryption flags must match the ones used to produce the input, since
the output blob carries no self-describing header.

With --encrypt, decryption fails for a blob written by a separate
archive run: each run derives its AES key under a fresh random salt,
and that salt is not stored in the output, so the same key file does
not reproduce the same key.

Examples:
  archivepipe unarchive -i notes.txt.gz -o out/
  archivepipe unarchive -i bundle.zip -o out/ --format zip --algorithm deflate`,
	RunE: runUnarchive,
}

var (
	unInput  string
	unOutDir string
	unQuiet  bool
	unFlags  pipelineFlags
)

func init() {
	unarchiveCmd.Flags().StringVarP(&unInput, "input", "i", "", "Input file to unarchive")
	unarchiveCmd.Flags().StringVarP(&unOutDir, "output", "o", ".", "Output directory for recovered entries")
	unarchiveCmd.Flags().BoolVarP(&unQuiet, "quiet", "q", false, "Suppress progress output")
	addPipelineFlags(unarchiveCmd, &unFlags)
	_ = unarchiveCmd.MarkFlagRequired("input")
}

func runUnarchive(cmd *cobra.Command, args []string) error {
	cfg, err := unFlags.buildConfig()
	if err != nil {
		return err
	}

	var masterKey []byte
	if unFlags.encrypt {
		masterKey, err = loadMasterKey(unFlags.keyFile)
		if err != nil {
			return err
		}
	}

	data, err := os.ReadFile(unInput)
	if err != nil {
		return fmt.Errorf("reading %s: %w", unInput, err)
	}

	d := pipeline.NewDriver()
	defer d.Close()
	if masterKey != nil {
		if err := d.SetMasterKey(masterKey); err != nil {
			return err
		}
	}

	reporter := NewReporter(d, unQuiet)
	globalReporter = reporter

	entries, err := d.Unarchive(data, cfg)
	reporter.Finish()
	if err != nil {
		reporter.PrintError("%v", err)
		return err
	}

	if err := os.MkdirAll(unOutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", unOutDir, err)
	}
	for _, entry := range entries {
		dest := filepath.Join(unOutDir, filepath.Base(entry.Name))
		perm := os.FileMode(0o644)
		if entry.Permissions != nil {
			perm = os.FileMode(*entry.Permissions).Perm()
		}
		if err := os.WriteFile(dest, entry.Data, perm); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
	}
	return nil
}
