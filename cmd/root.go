package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"projup/config"
	"projup/pkg/logging"
)

var (
	configPath string
	logLevel   string

	cfg      *config.Config
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "projup",
	Short: "Upgrade the version marker of project documents",
	Long: `Rewrite the Version attribute inside gzip-compressed project documents
and package the upgraded set into one ZIP or AGCP archive.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded

		logger, closer, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.File)
		if err != nil {
			return err
		}
		closeLog = closer
		slog.SetDefault(logger.With(slog.String("command", cmd.Name())))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./projup.yaml or <user config dir>/projup/projup.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
