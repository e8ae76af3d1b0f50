package main

import (
	"fmt"

	"github.com/littlehawk93/ihex"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <file>",
	Short: "Print start-execution metadata (CS:IP or EIP), if present",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := loadGroupFromFile(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch group.Dialect() {
		case ihex.I16HEX:
			if !group.HasStartSegment() {
				fmt.Fprintln(out, "no start-execution record present")
				return nil
			}
			cs, _ := group.CodeSegment()
			ip, _ := group.InstructionPointer()
			fmt.Fprintf(out, "CS:IP = %04X:%04X\n", cs, ip)
		case ihex.I32HEX:
			if !group.HasStartLinear() {
				fmt.Fprintln(out, "no start-execution record present")
				return nil
			}
			eip, _ := group.ExtendedInstructionPointer()
			fmt.Fprintf(out, "EIP = %08X\n", eip)
		default:
			fmt.Fprintln(out, "no start-execution record present")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
