package cli

import (
	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup BARCODE",
	Short: "Resolve a single barcode and print the merged record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Lookup(cmd.Context(), args[0])
	},
}
