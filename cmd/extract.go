package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"projup/pkg/core"
)

var extractCmd = &cobra.Command{
	Use:   "extract bundle.agcp [dest]",
	Short: "Unpack an AGCP bundle of upgraded documents",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := "."
		if len(args) == 2 {
			dest = args[1]
		}
		paths, err := core.ExtractBundle(args[0], dest)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
