package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"projup/pkg/counter"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the lifetime number of upgraded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closer, err := counter.Open(cmd.Context(), cfg.Counter)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		total, err := store.Read(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Lifetime upgrades: %d\n", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
