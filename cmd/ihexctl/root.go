// Command ihexctl inspects and validates Intel HEX files. It does not modify
// them.
package main

import (
	"fmt"
	"os"

	"github.com/littlehawk93/ihex/pkg/ihexconfig"
	"github.com/spf13/cobra"
)

var (
	// cfg is the configuration loaded once in rootCmd's PersistentPreRunE
	// and consulted by every subcommand.
	cfg *ihexconfig.Config

	unusedFillFlag       uint8
	defaultBlockSizeFlag uint
	strictFlag           bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ihexctl",
	Short: "ihexctl - inspect and validate Intel HEX files",
	Long: `ihexctl loads Intel HEX files into the in-memory section/group model and
lets you inspect their layout, validate them strictly, read a byte range,
and report start-execution metadata. It never writes or patches a file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = ihexconfig.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cmd.Flags().Changed("unused-fill") {
			cfg.UnusedFill = unusedFillFlag
		}
		if cmd.Flags().Changed("block-size") {
			cfg.DefaultBlockSize = defaultBlockSizeFlag
		}
		if cmd.Flags().Changed("strict") {
			cfg.ThrowOnInvalidRecord = strictFlag
			cfg.ThrowOnChecksumMismatch = strictFlag
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Uint8Var(&unusedFillFlag, "unused-fill", 0xFF, "byte substituted for addresses not covered by any section")
	rootCmd.PersistentFlags().UintVar(&defaultBlockSizeFlag, "block-size", 16, "default block size, stored in the loaded configuration; no subcommand writes data, so it does not affect output")
	rootCmd.PersistentFlags().BoolVar(&strictFlag, "strict", true, "abort on the first malformed record or checksum mismatch instead of skipping it")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
