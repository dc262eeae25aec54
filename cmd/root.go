package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/luki/twatch/internal/config"
)

var (
	logLevel   string // Log verbosity level
	configPath string // Optional YAML config file
	sessionDir string // Directory holding session_<n>.csv files
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:          "twatch",
	Short:        "Record hardware temperatures into session logs and plot them",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		return nil
	},
}

// loadConfig builds the run configuration once: defaults, then the config
// file, then any flag the user set explicitly. The result is validated and
// never modified afterwards.
func loadConfig(cmd *cobra.Command, mode string) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("session-dir") {
		cfg.SessionDir = sessionDir
	}
	applyCaptureFlags(cmd, &cfg)
	applyPlotFlags(cmd, &cfg)
	if mode != "" {
		cfg.Mode = mode
	}

	return cfg, cfg.Validate()
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&sessionDir, "session-dir", "session", "Directory holding session logs")
}
