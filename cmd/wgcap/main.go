package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wgcap/wgcap/internal/config"
	"github.com/wgcap/wgcap/internal/logging"
)

var (
	version   = "0.1.0"
	cfgFile   string
	logLevel  string
	logFormat string
	logFile   string

	cfg       *config.Config
	logWriter *logging.RotatingWriter
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:           "wgcap",
	Short:         "Windows Graphics Capture tool",
	Long:          `wgcap captures windows and displays through Windows.Graphics.Capture and exposes the frames as CPU-readable images.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logWriter != nil {
			logWriter.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wgcap v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $APPDATA/wgcap/wgcap.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file, rotated by size")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the config, applies the logging flags on top of it and
// initializes the global logger.
func setup(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		return fmt.Errorf("invalid config: %w", errors.Join(result.Fatals...))
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		logWriter, err = logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			return err
		}
		out = io.MultiWriter(os.Stderr, logWriter)
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, out)

	for _, w := range result.Warnings {
		log.Warn("config value adjusted", logging.KeyError, w)
	}
	return nil
}
