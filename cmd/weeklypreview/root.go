package weeklypreview

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/igorsilveira/weeklypreview/pkg/config"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "weeklypreview",
	Short:        "Weekly Preview - a multi-agent weekly calendar digest",
	Long:         "Weekly Preview runs Calendar, Formatter, Telegram and Orchestrator agents that talk A2A to turn next week's calendar into a short preview.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.weeklypreview/weeklypreview.toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(calendarAuthCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of Weekly Preview",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "weeklypreview v%s\n", version)
	},
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig reads .env files and the config file, then installs the
// process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	return cfg, logger, nil
}
