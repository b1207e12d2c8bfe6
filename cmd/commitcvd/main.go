// Package main provides commitcvd, the commitcv analysis server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	commitcv "github.com/commitcv/commitcv"
	"github.com/commitcv/commitcv/internal/version"
)

var (
	cfgPath   string
	addrFlag  string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "commitcvd",
	Short: "commitcvd turns source-control activity into résumé content",
	Long: `commitcvd serves AI-assisted résumé analysis of a developer's
source-control projects: it groups projects into résumé roles or writes a
professional summary, with caching, per-user rate limits, and usage
accounting on top of an OpenRouter-compatible completion service.

Environment variables:
  OPENROUTER_API_KEY   Completion service API key (overrides the config file)
  COMMITCV_CONFIG      Config file path (when --config is not given)
  PORT                 Listen port (overrides the config file)`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <config-file>",
	Short: "Validate a configuration file (JSON/YAML)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := commitcv.LoadConfig(args[0])
		if err != nil {
			return err
		}
		if err := commitcv.ValidateConfig(*cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		fmt.Printf("Config OK: model=%s, database=%s, keys=%d\n",
			cfg.Completion.Model, cfg.Database.Driver, len(cfg.Keys))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("commitcvd " + version.String())
	},
}

func init() {
	serveCmd.Flags().StringVar(&cfgPath, "config", "", "config file path (JSON or YAML)")
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
	rootCmd.AddCommand(serveCmd, validateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
