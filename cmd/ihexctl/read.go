package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	readAddrFlag string
	readSizeFlag uint
)

var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Print a hex dump of a byte range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := loadGroupFromFile(args[0])
		if err != nil {
			return err
		}

		addr, err := strconv.ParseUint(readAddrFlag, 0, 32)
		if err != nil {
			return fmt.Errorf("parsing --addr %q: %w", readAddrFlag, err)
		}

		data, err := group.GetData(uint32(addr), uint64(readSizeFlag))
		if err != nil {
			return fmt.Errorf("reading %d bytes at %#x: %w", readSizeFlag, addr, err)
		}

		out := cmd.OutOrStdout()
		for i := 0; i < len(data); i += 16 {
			end := i + 16
			if end > len(data) {
				end = len(data)
			}
			fmt.Fprintf(out, "%08X:", uint32(addr)+uint32(i))
			for _, b := range data[i:end] {
				fmt.Fprintf(out, " %02X", b)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	readCmd.Flags().StringVar(&readAddrFlag, "addr", "0", "absolute address to start reading from (decimal or 0x-prefixed hex)")
	readCmd.Flags().UintVar(&readSizeFlag, "size", 16, "number of bytes to read")
	rootCmd.AddCommand(readCmd)
}
