package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Load a file with strict policy toggles and report the first error, or OK",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.ThrowOnInvalidRecord = true
		cfg.ThrowOnChecksumMismatch = true

		if _, err := loadGroupFromFile(args[0]); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
