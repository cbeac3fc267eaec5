package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"projup/pkg/codec"
	"projup/pkg/patch"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect path...",
	Short: "Print the version recorded in each document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := collectInputs(args, cfg.Input.Extension)
		if err != nil {
			return err
		}
		patcher, err := cfg.Patcher()
		if err != nil {
			return err
		}

		var result *multierror.Error
		for _, path := range paths {
			version, err := inspectFile(patcher, path)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\terror: %v\n", filepath.Base(path), err)
				result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", filepath.Base(path), version)
		}
		return result.ErrorOrNil()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspectFile(p *patch.Patcher, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	doc, err := codec.Decompress(data)
	if err != nil {
		return "", err
	}
	return p.Detect(doc)
}
