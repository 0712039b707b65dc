package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/samirrijal/cumulus/internal/pkg/config"
	"github.com/samirrijal/cumulus/internal/pkg/logging"
)

var (
	cfg       *config.Config
	logLevel  string
	logFormat string
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:           "monitor",
	Short:         "Border cloud monitoring: detect clouds over crossings from satellite imagery",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		logging.Setup(firstNonEmpty(logLevel, os.Getenv("LOG_LEVEL")), firstNonEmpty(logFormat, os.Getenv("LOG_FORMAT")))

		var err error
		cfg, err = config.Load("cumulus-monitor")
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "json or text (default $LOG_FORMAT or json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar and report")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
