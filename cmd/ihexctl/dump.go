package main

import (
	"fmt"

	"github.com/littlehawk93/ihex"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print one line per section: kind, extended address, record count (no byte range)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := loadGroupFromFile(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dialect: %s\n", group.Dialect())
		for i := 0; i < group.Len(); i++ {
			section, _ := group.Section(i)
			fmt.Fprintf(out, "%d: %s%s (%d records)\n", i, section.Kind, extendedAddressSuffix(section), len(section.Records()))
		}
		return nil
	},
}

func extendedAddressSuffix(s *ihex.Section) string {
	if segment, err := s.Segment(); err == nil {
		return fmt.Sprintf(" segment=%04X", segment)
	}
	if linear, err := s.Linear(); err == nil {
		return fmt.Sprintf(" linear=%04X", linear)
	}
	return ""
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
