package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"projup/pkg/batch"
	"projup/pkg/counter"
	"projup/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upgrade pipeline over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doneCtx, cancel := handleSignals(cmd.Context())
		defer cancel()

		patcher, err := cfg.Patcher()
		if err != nil {
			return err
		}
		store, closer, err := counter.Open(doneCtx, cfg.Counter)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		svc := server.New(server.Config{
			Addr:           firstNonEmpty(serveAddr, cfg.Server.Addr),
			ArchivePrefix:  cfg.Archive.Prefix,
			MaxUploadBytes: cfg.Server.MaxUploadMiB << 20,
		}, batch.Deps{
			Patcher: patcher,
			Counter: store,
			Logger:  slog.Default(),
		})
		return svc.Run(doneCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}
