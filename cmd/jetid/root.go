package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/jetid/internal/config"
	"github.com/danielpatrickdp/jetid/internal/logging"
)

var (
	// Global flags
	cfgFile      string
	output       string
	flagVersion  string
	flagQuality  string
	flagDisabled []string
	flagDB       string
	flagLogMode  string

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "jetid",
	Short: "Calorimeter noise jet-ID selection",
	Long: `jetid applies the CRAFT08 calorimeter noise jet-ID cuts to reconstructed jets.

Commands:
  select   Evaluate a jet file and record the run
  cuts     Show the configured cuts
  serve    Serve the selector over gRPC and HTTP

Settings come from flags, then JETID_* environment variables, then
jetid.yaml (or --config), then built-in defaults.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		overrides := &config.Config{
			Version: flagVersion,
			Quality: flagQuality,
			DBPath:  flagDB,
			LogMode: flagLogMode,
		}
		if cmd.Flags().Changed("disable") {
			overrides.DisabledCuts = append([]string{}, flagDisabled...)
		}
		c, err := config.Load(cfgFile, overrides)
		if err != nil {
			return err
		}
		cfg = c
		logger = logging.NewLogger(logging.Mode(cfg.LogMode), cmd.ErrOrStderr())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: $JETID_CONFIG or ./jetid.yaml)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&flagVersion, "jet-version", "", "Jet-ID version (CRAFT08)")
	rootCmd.PersistentFlags().StringVarP(&flagQuality, "quality", "q", "", "Jet-ID quality (LOOSE, TIGHT)")
	rootCmd.PersistentFlags().StringSliceVar(&flagDisabled, "disable", nil, "Cuts to ignore, comma separated")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database for selection runs")
	rootCmd.PersistentFlags().StringVar(&flagLogMode, "log-mode", "", "Log mode (dev, prod, silent)")
}

// writeStructured prints v as JSON or YAML. It reports false for table output.
func writeStructured(w io.Writer, v any) (bool, error) {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(v); err != nil {
			enc.Close()
			return true, err
		}
		return true, enc.Close()
	case "table", "":
		return false, nil
	}
	return false, fmt.Errorf("unknown output format %q (want table, json or yaml)", output)
}
